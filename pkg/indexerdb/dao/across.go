package dao

import "github.com/uptrace/bun"

// AcrossDepositDao maps to the 'across_deposits' table: source-side
// FundsDeposited events from a spoke pool.
type AcrossDepositDao struct {
	bun.BaseModel `bun:"table:across_deposits,alias:ad"`
	ChainEventBase

	// UniqueID is the bridge-internal content hash shared by the deposit
	// and its fill; it is the transfer key for this protocol.
	UniqueID           string `bun:"unique_id,notnull,type:varchar(66)"`
	DepositID          string `bun:"deposit_id,notnull,type:numeric(78,0)"`
	Depositor          string `bun:"depositor,notnull,type:varchar(66)"`
	Recipient          string `bun:"recipient,notnull,type:varchar(66)"`
	InputToken         string `bun:"input_token,notnull,type:varchar(66)"`
	OutputToken        string `bun:"output_token,type:varchar(66)"`
	InputAmount        string `bun:"input_amount,notnull,type:numeric(78,0)"`
	OutputAmount       string `bun:"output_amount,type:numeric(78,0)"`
	OriginChainID      uint64 `bun:"origin_chain_id,notnull"`
	DestinationChainID uint64 `bun:"destination_chain_id,notnull"`
}

// AcrossFillDao maps to the 'across_fills' table: destination-side
// FilledRelay events.
type AcrossFillDao struct {
	bun.BaseModel `bun:"table:across_fills,alias:af"`
	ChainEventBase

	UniqueID           string `bun:"unique_id,notnull,type:varchar(66)"`
	DepositID          string `bun:"deposit_id,notnull,type:numeric(78,0)"`
	Relayer            string `bun:"relayer,notnull,type:varchar(66)"`
	Recipient          string `bun:"recipient,notnull,type:varchar(66)"`
	OutputToken        string `bun:"output_token,type:varchar(66)"`
	OutputAmount       string `bun:"output_amount,type:numeric(78,0)"`
	OriginChainID      uint64 `bun:"origin_chain_id,notnull"`
	DestinationChainID uint64 `bun:"destination_chain_id,notnull"`
}
