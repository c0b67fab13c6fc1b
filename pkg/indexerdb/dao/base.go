// Package dao contains the data access objects mapping directly to the
// indexer tables in PostgreSQL.
package dao

import "time"

// ChainEventBase holds the columns shared by every chain event table.
// Events are identified by the composite natural key
// (chain_id, block_number, tx_hash, log_index), globally unique per chain.
// Rows are soft-deleted via deleted_at instead of hard-deleted because
// transfers and finalizer jobs hold foreign keys into them.
type ChainEventBase struct {
	ID             int64      `bun:"id,pk,autoincrement"`
	ChainID        uint64     `bun:"chain_id,notnull"`
	BlockNumber    uint64     `bun:"block_number,notnull"`
	TxHash         string     `bun:"tx_hash,notnull,type:varchar(90)"`
	LogIndex       uint32     `bun:"log_index,notnull"`
	BlockTimestamp time.Time  `bun:"block_timestamp,notnull"`
	Finalised      bool       `bun:"finalised,notnull,default:false"`
	DeletedAt      *time.Time `bun:"deleted_at"`
}

// EventTxHash implements pair.Log.
func (e *ChainEventBase) EventTxHash() string { return e.TxHash }

// EventLogIndex implements pair.Log.
func (e *ChainEventBase) EventLogIndex() uint32 { return e.LogIndex }

// EventUniqueColumns is the canonical per-chain-event uniqueness tuple.
func EventUniqueColumns() []string {
	return []string{"chain_id", "block_number", "tx_hash", "log_index"}
}
