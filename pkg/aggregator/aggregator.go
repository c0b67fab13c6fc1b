// Package aggregator folds finality-tracked protocol events from all three
// bridges into one canonical transfer row per logical movement of value.
package aggregator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/chainsafe/transfer-indexer/internal/metrics"
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
	"github.com/chainsafe/transfer-indexer/pkg/pgutil"
)

// Aggregator maintains the canonical transfers table from partial,
// possibly out-of-order, possibly retracted protocol events.
type Aggregator struct {
	db     *bun.DB
	logger *zap.Logger
}

// New creates a new Aggregator
func New(db *bun.DB, logger *zap.Logger) *Aggregator {
	return &Aggregator{db: db, logger: logger}
}

// Apply folds one protocol event into its canonical transfer. Batches for
// the same transfer key can arrive concurrently from different chain
// scanners, so the whole find-or-create-merge sequence runs under a
// transaction-scoped advisory lock on the key.
func (a *Aggregator) Apply(ctx context.Context, ev ProtocolEvent) error {
	key := ev.TransferKey()

	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := pgutil.AdvisoryXactLock(ctx, tx, "transfer:"+key); err != nil {
			return fmt.Errorf("failed to lock transfer %s: %w", key, err)
		}

		transfer := new(dao.TransferDao)
		err := tx.NewSelect().
			Model(transfer).
			Where("unique_id = ?", key).
			Scan(ctx)

		if errors.Is(err, sql.ErrNoRows) {
			transfer = &dao.TransferDao{
				UniqueID: key,
				Type:     ev.TransferType(),
				Status:   dao.TransferStatusPending,
			}
			ev.Patch().apply(transfer)
			applyStatus(transfer, ev.UpdateKind())

			if _, err := tx.NewInsert().Model(transfer).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create transfer %s: %w", key, err)
			}

			a.observeCreate(transfer)
			a.logger.Debug("Created transfer",
				zap.String("unique_id", key),
				zap.String("type", string(transfer.Type)),
				zap.String("status", string(transfer.Status)))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up transfer %s: %w", key, err)
		}

		prevStatus := transfer.Status
		ev.Patch().apply(transfer)
		applyStatus(transfer, ev.UpdateKind())
		transfer.UpdatedAt = time.Now().UTC()

		if _, err := tx.NewUpdate().Model(transfer).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("failed to update transfer %s: %w", key, err)
		}

		if prevStatus != transfer.Status {
			metrics.TransfersTotal.WithLabelValues(string(transfer.Type), string(transfer.Status)).Inc()
		}
		return nil
	})
}

// ApplyRetraction handles the soft-deletion of a contributing event by a
// reorg: it nulls the corresponding link (and exclusively sourced fields),
// reverts status to match whatever side remains, and deletes the transfer
// entirely when no link of either side is left.
func (a *Aggregator) ApplyRetraction(ctx context.Context, key string, link Link) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := pgutil.AdvisoryXactLock(ctx, tx, "transfer:"+key); err != nil {
			return fmt.Errorf("failed to lock transfer %s: %w", key, err)
		}

		transfer := new(dao.TransferDao)
		err := tx.NewSelect().
			Model(transfer).
			Where("unique_id = ?", key).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up transfer %s: %w", key, err)
		}

		retractLink(transfer, link)
		hasSource, hasDestination := remainingLinks(transfer)

		if !hasSource && !hasDestination {
			if _, err := tx.NewDelete().Model(transfer).WherePK().Exec(ctx); err != nil {
				return fmt.Errorf("failed to delete transfer %s: %w", key, err)
			}
			a.logger.Info("Deleted transfer after retraction of last link",
				zap.String("unique_id", key),
				zap.String("link", string(link)))
			return nil
		}

		if hasDestination {
			transfer.Status = dao.TransferStatusFilled
		} else {
			transfer.Status = dao.TransferStatusPending
		}
		transfer.UpdatedAt = time.Now().UTC()

		if _, err := tx.NewUpdate().Model(transfer).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("failed to update transfer %s after retraction: %w", key, err)
		}

		a.logger.Info("Retracted event link from transfer",
			zap.String("unique_id", key),
			zap.String("link", string(link)),
			zap.String("status", string(transfer.Status)))
		return nil
	})
}

func (a *Aggregator) observeCreate(t *dao.TransferDao) {
	metrics.TransfersTotal.WithLabelValues(string(t.Type), string(t.Status)).Inc()
	if t.Amount == nil {
		return
	}
	amount, err := decimal.NewFromString(*t.Amount)
	if err != nil {
		a.logger.Warn("Failed to parse transfer amount",
			zap.String("unique_id", t.UniqueID),
			zap.String("amount", *t.Amount))
		return
	}
	f, _ := amount.Float64()
	metrics.TransferAmount.WithLabelValues(string(t.Type)).Observe(f)
}
