// Package indexerdb registers the migrations for the indexer database.
package indexerdb

import "github.com/uptrace/bun/migrate"

// Migrations contains all migrations for the indexer database
var Migrations = migrate.NewMigrations()
