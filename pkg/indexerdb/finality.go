// Package indexerdb provides database operations for the transfer indexer,
// including the finality-aware chain event repository.
package indexerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Outcome classifies the result of one row's insert-or-update. Callers
// cascade a row into the deposit aggregator only for outcomes that carry
// new content; a bare FINALISED flips the finality flag without changing
// any compared column.
type Outcome string

const (
	OutcomeInserted            Outcome = "INSERTED"
	OutcomeUpdated             Outcome = "UPDATED"
	OutcomeFinalised           Outcome = "FINALISED"
	OutcomeUpdatedAndFinalised Outcome = "UPDATED_AND_FINALISED"
	OutcomeNothing             Outcome = "NOTHING"
)

// Changed reports whether the outcome carries new or changed content that
// must be folded into the deposit aggregator.
func (o Outcome) Changed() bool {
	return o == OutcomeInserted || o == OutcomeUpdated || o == OutcomeUpdatedAndFinalised
}

// JustFinalised reports whether this write flipped the finalised flag.
func (o Outcome) JustFinalised() bool {
	return o == OutcomeFinalised || o == OutcomeUpdatedAndFinalised
}

// UpsertResult pairs a stored row with its write classification. Row always
// carries the stored identity (id) after the call.
type UpsertResult[T any] struct {
	Row     T
	Outcome Outcome
}

// ErrMissingReorgColumns marks a caller configuration error: the entity
// handed to DeleteUnfinalisedBelow lacks the columns the reorg delete
// depends on. It is fatal for the calling task, never retried.
var ErrMissingReorgColumns = errors.New("entity is missing columns required for reorg deletion")

// UpsertWithFinalization inserts or updates rows keyed by uniqueCols.
//
// For an existing row the update is applied only when a compareCols value
// differs or the incoming row finalises a previously unfinalised one; the
// returned outcome tells the caller which of the two happened (or both, or
// neither). Calling it twice with identical input is a no-op on the second
// call.
func UpsertWithFinalization[T any](ctx context.Context, idb bun.IDB, rows []T, uniqueCols, compareCols []string) ([]UpsertResult[T], error) {
	results := make([]UpsertResult[T], 0, len(rows))

	for _, row := range rows {
		existing := newModel[T]()
		q := idb.NewSelect().Model(existing)
		for _, col := range uniqueCols {
			val, err := columnValue(row, col)
			if err != nil {
				return nil, err
			}
			q = q.Where("? = ?", bun.Ident(col), val)
		}

		err := q.Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := idb.NewInsert().Model(row).Exec(ctx); err != nil {
				return nil, fmt.Errorf("failed to insert %T: %w", row, err)
			}
			results = append(results, UpsertResult[T]{Row: row, Outcome: OutcomeInserted})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up existing %T: %w", row, err)
		}

		changed := false
		for _, col := range compareCols {
			incoming, err := columnValue(row, col)
			if err != nil {
				return nil, err
			}
			stored, err := columnValue(existing, col)
			if err != nil {
				return nil, err
			}
			if !valuesEqual(incoming, stored) {
				changed = true
				break
			}
		}

		incomingFinalised, err := boolColumn(row, "finalised")
		if err != nil {
			return nil, err
		}
		storedFinalised, err := boolColumn(existing, "finalised")
		if err != nil {
			return nil, err
		}
		justFinalised := incomingFinalised && !storedFinalised

		// Carry the stored identity onto the incoming row so callers can
		// link against it regardless of outcome.
		id, err := columnValue(existing, "id")
		if err != nil {
			return nil, err
		}
		if err := setColumnValue(row, "id", id); err != nil {
			return nil, err
		}

		outcome := OutcomeNothing
		switch {
		case changed && justFinalised:
			outcome = OutcomeUpdatedAndFinalised
		case changed:
			outcome = OutcomeUpdated
		case justFinalised:
			outcome = OutcomeFinalised
		}

		if outcome != OutcomeNothing {
			cols := make([]string, 0, len(compareCols)+1)
			cols = append(cols, compareCols...)
			// finalised flips one way only: write it when this call performs
			// the flip, never on a content-only update carrying a stale
			// unfinalised view of the row.
			if justFinalised && !contains(cols, "finalised") {
				cols = append(cols, "finalised")
			}
			if _, err := idb.NewUpdate().Model(row).Column(cols...).WherePK().Exec(ctx); err != nil {
				return nil, fmt.Errorf("failed to update %T: %w", row, err)
			}
		}

		results = append(results, UpsertResult[T]{Row: row, Outcome: outcome})
	}

	return results, nil
}

// DeleteUnfinalisedBelow soft-deletes every row of the entity for the given
// chain with block_number below the finality watermark that never became
// final: those blocks were reorged out. Returns the retracted rows so the
// caller can cascade retractions into the deposit aggregator.
//
// Soft delete (deleted_at) instead of hard delete: transfers and finalizer
// jobs hold foreign keys into these rows.
func DeleteUnfinalisedBelow[T any](ctx context.Context, idb bun.IDB, chainID, lastFinalisedBlock uint64) ([]T, error) {
	zero := newModel[T]()
	if !hasColumn(zero, "chain_id") || !hasColumn(zero, "deleted_at") {
		return nil, fmt.Errorf("%w: %T", ErrMissingReorgColumns, zero)
	}

	var rows []T
	err := idb.NewSelect().
		Model(&rows).
		Where("chain_id = ?", chainID).
		Where("block_number < ?", lastFinalisedBlock).
		Where("finalised = FALSE").
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select reorged rows for %T: %w", zero, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	_, err = idb.NewUpdate().
		Model(zero).
		Set("deleted_at = ?", now).
		Where("chain_id = ?", chainID).
		Where("block_number < ?", lastFinalisedBlock).
		Where("finalised = FALSE").
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to soft-delete reorged rows for %T: %w", zero, err)
	}

	for _, row := range rows {
		if err := setColumnValue(row, "deleted_at", &now); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}
