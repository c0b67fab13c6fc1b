package main

import (
	"flag"
	"log"

	"github.com/uptrace/bun/migrate"

	"github.com/chainsafe/transfer-indexer/pkg/config"
	indexermigrations "github.com/chainsafe/transfer-indexer/pkg/migrations/indexerdb"
	"github.com/chainsafe/transfer-indexer/pkg/pgutil"
	"github.com/chainsafe/transfer-indexer/pkg/pgutil/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = migrations.Usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		migrations.Exitf("failed to load config: %v", err)
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		migrations.Exitf("failed to connect to database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	migrator := migrate.NewMigrator(db, indexermigrations.Migrations)
	if err := migrations.RunMigrations(migrator, flag.Args()...); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}
