package indexerdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/chainsafe/transfer-indexer/pkg/indexerdb"
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
	"github.com/chainsafe/transfer-indexer/pkg/pgutil"
	"github.com/chainsafe/transfer-indexer/pkg/pgutil/migrations"
)

func setupEventTables(t *testing.T) *bun.DB {
	t.Helper()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	err := migrations.CreateSchema(ctx, db,
		(*dao.CctpBurnDao)(nil),
		(*dao.AcrossDepositDao)(nil))
	require.NoError(t, err)
	err = migrations.CreateModelUniqueIndex(ctx, db, (*dao.CctpBurnDao)(nil),
		"uq_cctp_burns_event", dao.EventUniqueColumns()...)
	require.NoError(t, err)
	return db
}

func testBurn(block uint64, logIndex uint32) *dao.CctpBurnDao {
	return &dao.CctpBurnDao{
		ChainEventBase: dao.ChainEventBase{
			ChainID:        1,
			BlockNumber:    block,
			TxHash:         "0xabc",
			LogIndex:       logIndex,
			BlockTimestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		Nonce:                42,
		BurnToken:            "0xtoken",
		Amount:               "1000000",
		Depositor:            "0xdepositor",
		MintRecipient:        "0xrecipient",
		SourceDomain:         0,
		DestinationDomain:    3,
		MinFinalityThreshold: 2000,
	}
}

var burnCompareCols = []string{"nonce", "burn_token", "amount", "depositor",
	"mint_recipient", "source_domain", "destination_domain",
	"destination_caller", "min_finality_threshold", "block_timestamp"}

func TestUpsertWithFinalizationOutcomes(t *testing.T) {
	db := setupEventTables(t)
	ctx := context.Background()

	results, err := indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{testBurn(100, 2)}, dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, indexerdb.OutcomeInserted, results[0].Outcome)
	assert.NotZero(t, results[0].Row.ID)
	storedID := results[0].Row.ID

	// Identical re-ingest is a no-op.
	results, err = indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{testBurn(100, 2)}, dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)
	assert.Equal(t, indexerdb.OutcomeNothing, results[0].Outcome)
	assert.Equal(t, storedID, results[0].Row.ID)

	// Changed content without finality flip.
	changed := testBurn(100, 2)
	changed.Amount = "2000000"
	results, err = indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{changed}, dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)
	assert.Equal(t, indexerdb.OutcomeUpdated, results[0].Outcome)

	// Finality flip without content change.
	finalised := testBurn(100, 2)
	finalised.Amount = "2000000"
	finalised.Finalised = true
	results, err = indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{finalised}, dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)
	assert.Equal(t, indexerdb.OutcomeFinalised, results[0].Outcome)
	assert.True(t, results[0].Outcome.JustFinalised())
	assert.False(t, results[0].Outcome.Changed())

	// A finalised row finalises exactly once.
	results, err = indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{finalised}, dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)
	assert.Equal(t, indexerdb.OutcomeNothing, results[0].Outcome)

	// Finalised never reverts: a content update carrying a stale
	// unfinalised view of the row changes content only and leaves the
	// stored flag set.
	stale := testBurn(100, 2)
	stale.Amount = "3000000"
	results, err = indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{stale}, dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)
	assert.Equal(t, indexerdb.OutcomeUpdated, results[0].Outcome)

	stored := new(dao.CctpBurnDao)
	err = db.NewSelect().Model(stored).Where("id = ?", storedID).Scan(ctx)
	require.NoError(t, err)
	assert.True(t, stored.Finalised)
	assert.Equal(t, "3000000", stored.Amount)
}

func TestUpsertWithFinalizationUpdatedAndFinalised(t *testing.T) {
	db := setupEventTables(t)
	ctx := context.Background()

	_, err := indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{testBurn(100, 2)}, dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)

	row := testBurn(100, 2)
	row.Amount = "5000000"
	row.Finalised = true
	results, err := indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{row}, dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)
	assert.Equal(t, indexerdb.OutcomeUpdatedAndFinalised, results[0].Outcome)
	assert.True(t, results[0].Outcome.Changed())
	assert.True(t, results[0].Outcome.JustFinalised())
}

func TestUpsertDistinguishesCompositeKey(t *testing.T) {
	db := setupEventTables(t)
	ctx := context.Background()

	// Same tx, different log index: two distinct events.
	results, err := indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{testBurn(100, 2), testBurn(100, 5)},
		dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, indexerdb.OutcomeInserted, results[0].Outcome)
	assert.Equal(t, indexerdb.OutcomeInserted, results[1].Outcome)
	assert.NotEqual(t, results[0].Row.ID, results[1].Row.ID)
}

func TestDeleteUnfinalisedBelow(t *testing.T) {
	db := setupEventTables(t)
	ctx := context.Background()

	reorged := testBurn(90, 1)
	finalisedBelow := testBurn(95, 1)
	finalisedBelow.Finalised = true
	aboveWatermark := testBurn(150, 1)

	_, err := indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{reorged, finalisedBelow, aboveWatermark},
		dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)

	deleted, err := indexerdb.DeleteUnfinalisedBelow[*dao.CctpBurnDao](ctx, db, 1, 100)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, uint64(90), deleted[0].BlockNumber)
	require.NotNil(t, deleted[0].DeletedAt)

	// Idempotent: already soft-deleted rows are not returned again.
	deleted, err = indexerdb.DeleteUnfinalisedBelow[*dao.CctpBurnDao](ctx, db, 1, 100)
	require.NoError(t, err)
	assert.Empty(t, deleted)

	// Finalised and above-watermark rows survive untouched.
	count, err := db.NewSelect().
		Model((*dao.CctpBurnDao)(nil)).
		Where("deleted_at IS NULL").
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteUnfinalisedBelowScopedToChain(t *testing.T) {
	db := setupEventTables(t)
	ctx := context.Background()

	otherChain := testBurn(90, 1)
	otherChain.ChainID = 2

	_, err := indexerdb.UpsertWithFinalization(ctx, db,
		[]*dao.CctpBurnDao{testBurn(90, 1), otherChain},
		dao.EventUniqueColumns(), burnCompareCols)
	require.NoError(t, err)

	deleted, err := indexerdb.DeleteUnfinalisedBelow[*dao.CctpBurnDao](ctx, db, 1, 100)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, uint64(1), deleted[0].ChainID)
}

type noReorgColumnsDao struct {
	bun.BaseModel `bun:"table:no_reorg_columns"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Value string `bun:"value"`
}

func TestDeleteUnfinalisedBelowRequiresReorgColumns(t *testing.T) {
	db := setupEventTables(t)

	_, err := indexerdb.DeleteUnfinalisedBelow[*noReorgColumnsDao](context.Background(), db, 1, 100)
	require.ErrorIs(t, err, indexerdb.ErrMissingReorgColumns)
}
