package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// ChainCursorDao maps to the 'chain_cursors' table: the last scanned block
// and finality watermark per chain, so scanners resume after a restart.
type ChainCursorDao struct {
	bun.BaseModel `bun:"table:chain_cursors,alias:cc"`

	ChainID            uint64    `bun:"chain_id,pk"`
	LastScannedBlock   uint64    `bun:"last_scanned_block,notnull"`
	LastFinalisedBlock uint64    `bun:"last_finalised_block,notnull"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}
