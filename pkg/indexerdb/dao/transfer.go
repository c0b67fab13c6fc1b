package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// TransferType identifies which bridge protocol produced a transfer.
type TransferType string

const (
	TransferTypeAcross TransferType = "across"
	TransferTypeCctp   TransferType = "cctp"
	TransferTypeOft    TransferType = "oft"
)

// TransferStatus represents the lifecycle of a canonical transfer.
// A transfer is FILLED iff a destination-side event is currently linked
// and not retracted; it reverts to PENDING if that link is retracted by a
// reorg while a source-side link remains.
type TransferStatus string

const (
	TransferStatusPending TransferStatus = "PENDING"
	TransferStatusFilled  TransferStatus = "FILLED"
)

// TransferDao maps to the 'transfers' table: one row per logical
// cross-chain transfer, keyed by the protocol-specific unique id.
// All payload columns are nullable: a transfer can exist with only
// destination-side links populated when the fill is indexed before its
// deposit (orphan fill).
type TransferDao struct {
	bun.BaseModel `bun:"table:transfers,alias:t"`

	ID                 int64          `bun:"id,pk,autoincrement"`
	UniqueID           string         `bun:"unique_id,unique,notnull,type:varchar(130)"`
	Type               TransferType   `bun:"type,notnull,type:varchar(10)"`
	Status             TransferStatus `bun:"status,notnull,type:varchar(10)"`
	OriginChainID      *uint64        `bun:"origin_chain_id"`
	DestinationChainID *uint64        `bun:"destination_chain_id"`
	Depositor          *string        `bun:"depositor,type:varchar(66)"`
	Recipient          *string        `bun:"recipient,type:varchar(66)"`
	Amount             *string        `bun:"amount,type:numeric(78,0)"`
	BlockTimestamp     *time.Time     `bun:"block_timestamp"`

	AcrossDepositID *int64 `bun:"across_deposit_id"`
	AcrossFillID    *int64 `bun:"across_fill_id"`
	CctpBurnID      *int64 `bun:"cctp_burn_id"`
	CctpMintID      *int64 `bun:"cctp_mint_id"`
	OftSentID       *int64 `bun:"oft_sent_id"`
	OftReceivedID   *int64 `bun:"oft_received_id"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}
