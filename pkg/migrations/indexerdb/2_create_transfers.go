package indexerdb

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
	"github.com/chainsafe/transfer-indexer/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if err := migrations.CreateSchema(ctx, db, (*dao.TransferDao)(nil)); err != nil {
			return err
		}
		return migrations.CreateModelIndexes(ctx, db, (*dao.TransferDao)(nil),
			"status", "type", "created_at")
	}, func(ctx context.Context, db *bun.DB) error {
		return migrations.DropTables(ctx, db, (*dao.TransferDao)(nil))
	})
}
