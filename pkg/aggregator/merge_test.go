package aggregator

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
)

func ptr[T any](v T) *T { return &v }

func TestApplyStatusDestinationAlwaysFills(t *testing.T) {
	transfer := &dao.TransferDao{Status: dao.TransferStatusPending}
	applyStatus(transfer, SideDestination)
	assert.Equal(t, dao.TransferStatusFilled, transfer.Status)
}

func TestApplyStatusSourceNeverDemotesFilled(t *testing.T) {
	// Orphan fill first, deposit second: the late source event must not
	// push a filled transfer back to pending.
	transfer := &dao.TransferDao{Status: dao.TransferStatusFilled}
	applyStatus(transfer, SideSource)
	assert.Equal(t, dao.TransferStatusFilled, transfer.Status)

	transfer = &dao.TransferDao{Status: dao.TransferStatusPending}
	applyStatus(transfer, SideSource)
	assert.Equal(t, dao.TransferStatusPending, transfer.Status)
}

func TestPatchSparseMerge(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	transfer := &dao.TransferDao{
		Depositor:     ptr("0xdepositor"),
		OriginChainID: ptr(uint64(1)),
	}

	// A destination-only patch leaves source fields alone.
	patch := TransferPatch{
		DestinationChainID: Set(uint64(10)),
		Recipient:          Set("0xrecipient"),
		BlockTimestamp:     Set(ts),
	}
	patch.apply(transfer)

	require.NotNil(t, transfer.Depositor)
	assert.Equal(t, "0xdepositor", *transfer.Depositor)
	assert.Equal(t, uint64(1), *transfer.OriginChainID)
	assert.Equal(t, uint64(10), *transfer.DestinationChainID)
	assert.Equal(t, "0xrecipient", *transfer.Recipient)
	assert.True(t, ts.Equal(*transfer.BlockTimestamp))
}

func TestPatchTimestampIsFirstSeen(t *testing.T) {
	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	transfer := &dao.TransferDao{}
	TransferPatch{BlockTimestamp: Set(first)}.apply(transfer)
	TransferPatch{BlockTimestamp: Set(later)}.apply(transfer)

	require.NotNil(t, transfer.BlockTimestamp)
	assert.True(t, first.Equal(*transfer.BlockTimestamp))
}

func TestPatchClearNullsField(t *testing.T) {
	transfer := &dao.TransferDao{Depositor: ptr("0xdepositor")}
	TransferPatch{Depositor: Clear[string]()}.apply(transfer)
	assert.Nil(t, transfer.Depositor)
}

func TestRetractLinkClearsExclusiveFields(t *testing.T) {
	transfer := &dao.TransferDao{
		OriginChainID:      ptr(uint64(1)),
		DestinationChainID: ptr(uint64(10)),
		Depositor:          ptr("0xdepositor"),
		Recipient:          ptr("0xrecipient"),
		Amount:             ptr("1000"),
		CctpBurnID:         ptr(int64(7)),
		CctpMintID:         ptr(int64(8)),
	}

	retractLink(transfer, LinkCctpBurn)

	assert.Nil(t, transfer.CctpBurnID)
	assert.Nil(t, transfer.Depositor)
	assert.Nil(t, transfer.OriginChainID)
	// Fields the destination side also provides survive.
	assert.NotNil(t, transfer.Recipient)
	assert.NotNil(t, transfer.Amount)
	assert.NotNil(t, transfer.CctpMintID)
}

func TestRemainingLinksAfterRetraction(t *testing.T) {
	transfer := &dao.TransferDao{
		AcrossDepositID: ptr(int64(1)),
		AcrossFillID:    ptr(int64(2)),
	}

	hasSource, hasDestination := remainingLinks(transfer)
	assert.True(t, hasSource)
	assert.True(t, hasDestination)

	retractLink(transfer, LinkAcrossFill)
	hasSource, hasDestination = remainingLinks(transfer)
	assert.True(t, hasSource)
	assert.False(t, hasDestination)

	retractLink(transfer, LinkAcrossDeposit)
	hasSource, hasDestination = remainingLinks(transfer)
	assert.False(t, hasSource)
	assert.False(t, hasDestination)
}

func TestTransferKeysMatchAcrossSides(t *testing.T) {
	depositID := big.NewInt(12345)
	fromDeposit := AcrossUniqueID(1, 10, depositID)
	fromFill := AcrossUniqueID(1, 10, big.NewInt(12345))
	assert.Equal(t, fromDeposit, fromFill)
	assert.NotEqual(t, fromDeposit, AcrossUniqueID(1, 42, depositID))

	burn := CctpBurn{Row: &dao.CctpBurnDao{Nonce: 99, DestinationDomain: 3}}
	mint := CctpMint{Row: &dao.CctpMintDao{Nonce: 99}, LocalDomain: 3}
	assert.Equal(t, burn.TransferKey(), mint.TransferKey())
	assert.Equal(t, "99-3", burn.TransferKey())
}
