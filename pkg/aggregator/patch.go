package aggregator

import (
	"time"

	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
)

type updateOp uint8

const (
	opUnset updateOp = iota
	opSet
	opClear
)

// Update is an optional field update. The zero value means "not provided":
// the stored value is left untouched. Set replaces it, Clear nulls it.
// The three states keep "absent" and "explicitly clear" distinguishable,
// which the sparse merge depends on.
type Update[T any] struct {
	op    updateOp
	value T
}

// Set returns an update that replaces the stored value with v.
func Set[T any](v T) Update[T] {
	return Update[T]{op: opSet, value: v}
}

// Clear returns an update that nulls the stored value.
func Clear[T any]() Update[T] {
	return Update[T]{op: opClear}
}

// Value returns the update's value and whether one was provided.
func (u Update[T]) Value() (T, bool) {
	return u.value, u.op == opSet
}

func (u Update[T]) apply(dst **T) {
	switch u.op {
	case opSet:
		v := u.value
		*dst = &v
	case opClear:
		*dst = nil
	}
}

// TransferPatch is a sparse update of a canonical transfer row. Only
// provided fields replace stored values; a destination-only update never
// nulls out source fields it was not given.
type TransferPatch struct {
	OriginChainID      Update[uint64]
	DestinationChainID Update[uint64]
	Depositor          Update[string]
	Recipient          Update[string]
	Amount             Update[string]
	BlockTimestamp     Update[time.Time]

	AcrossDepositID Update[int64]
	AcrossFillID    Update[int64]
	CctpBurnID      Update[int64]
	CctpMintID      Update[int64]
	OftSentID       Update[int64]
	OftReceivedID   Update[int64]
}

func (p TransferPatch) apply(t *dao.TransferDao) {
	p.OriginChainID.apply(&t.OriginChainID)
	p.DestinationChainID.apply(&t.DestinationChainID)
	p.Depositor.apply(&t.Depositor)
	p.Recipient.apply(&t.Recipient)
	p.Amount.apply(&t.Amount)

	// The transfer timestamp records the first-seen contributing event;
	// later events never move it.
	if t.BlockTimestamp == nil {
		p.BlockTimestamp.apply(&t.BlockTimestamp)
	}

	p.AcrossDepositID.apply(&t.AcrossDepositID)
	p.AcrossFillID.apply(&t.AcrossFillID)
	p.CctpBurnID.apply(&t.CctpBurnID)
	p.CctpMintID.apply(&t.CctpMintID)
	p.OftSentID.apply(&t.OftSentID)
	p.OftReceivedID.apply(&t.OftReceivedID)
}
