package indexerdb

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
	"github.com/chainsafe/transfer-indexer/pkg/pgutil/migrations"
)

func init() {
	eventModels := []any{
		(*dao.AcrossDepositDao)(nil),
		(*dao.AcrossFillDao)(nil),
		(*dao.CctpBurnDao)(nil),
		(*dao.CctpMessageSentDao)(nil),
		(*dao.CctpMintDao)(nil),
		(*dao.CctpSponsoredBurnDao)(nil),
		(*dao.OftSentDao)(nil),
		(*dao.OftReceivedDao)(nil),
	}
	uniqueIndexNames := map[any]string{
		eventModels[0]: "uq_across_deposits_event",
		eventModels[1]: "uq_across_fills_event",
		eventModels[2]: "uq_cctp_burns_event",
		eventModels[3]: "uq_cctp_message_sents_event",
		eventModels[4]: "uq_cctp_mints_event",
		eventModels[5]: "uq_cctp_sponsored_burns_event",
		eventModels[6]: "uq_oft_sents_event",
		eventModels[7]: "uq_oft_receiveds_event",
	}

	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if err := migrations.CreateSchema(ctx, db, eventModels...); err != nil {
			return err
		}
		for _, model := range eventModels {
			if err := migrations.CreateModelUniqueIndex(ctx, db, model,
				uniqueIndexNames[model], dao.EventUniqueColumns()...); err != nil {
				return err
			}
		}

		if err := migrations.CreateModelIndexes(ctx, db, (*dao.AcrossDepositDao)(nil), "unique_id"); err != nil {
			return err
		}
		if err := migrations.CreateModelIndexes(ctx, db, (*dao.AcrossFillDao)(nil), "unique_id"); err != nil {
			return err
		}
		if err := migrations.CreateModelIndexes(ctx, db, (*dao.CctpBurnDao)(nil), "nonce"); err != nil {
			return err
		}
		if err := migrations.CreateModelIndexes(ctx, db, (*dao.CctpMessageSentDao)(nil), "burn_event_id"); err != nil {
			return err
		}
		if err := migrations.CreateModelIndexes(ctx, db, (*dao.CctpMintDao)(nil), "nonce"); err != nil {
			return err
		}
		if err := migrations.CreateModelIndexes(ctx, db, (*dao.OftSentDao)(nil), "guid"); err != nil {
			return err
		}
		return migrations.CreateModelIndexes(ctx, db, (*dao.OftReceivedDao)(nil), "guid")
	}, func(ctx context.Context, db *bun.DB) error {
		return migrations.DropTables(ctx, db, eventModels...)
	})
}
