package dao

import "github.com/uptrace/bun"

// Finality thresholds carried on burn events. Values at or below
// ThresholdFast use the "fast" attestation latency, everything else the
// "standard" one.
const ThresholdFast uint32 = 1000

// CctpBurnDao maps to the 'cctp_burns' table: source-side DepositForBurn
// events from a token messenger.
type CctpBurnDao struct {
	bun.BaseModel `bun:"table:cctp_burns,alias:cb"`
	ChainEventBase

	Nonce                 int64  `bun:"nonce,notnull"`
	BurnToken             string `bun:"burn_token,notnull,type:varchar(66)"`
	Amount                string `bun:"amount,notnull,type:numeric(78,0)"`
	Depositor             string `bun:"depositor,notnull,type:varchar(66)"`
	MintRecipient         string `bun:"mint_recipient,notnull,type:varchar(66)"`
	SourceDomain          uint32 `bun:"source_domain,notnull"`
	DestinationDomain     uint32 `bun:"destination_domain,notnull"`
	DestinationCaller     string `bun:"destination_caller,type:varchar(66)"`
	MinFinalityThreshold  uint32 `bun:"min_finality_threshold,notnull,default:2000"`
}

// CctpMessageSentDao maps to the 'cctp_message_sents' table: the raw
// transmitter message emitted in the same transaction as a burn. The pair
// matcher links it to its burn before storage; the attestation finalizer
// backfills the nonce once the attestation resolves it.
type CctpMessageSentDao struct {
	bun.BaseModel `bun:"table:cctp_message_sents,alias:cms"`
	ChainEventBase

	Message           []byte `bun:"message,notnull,type:bytea"`
	MessageHash       string `bun:"message_hash,notnull,type:varchar(66)"`
	SourceDomain      uint32 `bun:"source_domain,notnull"`
	DestinationDomain uint32 `bun:"destination_domain,notnull"`
	Nonce             *int64 `bun:"nonce"`
	BurnEventID       *int64 `bun:"burn_event_id"`
}

// CctpMintDao maps to the 'cctp_mints' table: destination-side
// MintAndWithdraw events merged with the MessageReceived log of the same
// transaction (nonce, source domain, caller).
type CctpMintDao struct {
	bun.BaseModel `bun:"table:cctp_mints,alias:cm"`
	ChainEventBase

	Nonce         int64  `bun:"nonce,notnull"`
	SourceDomain  uint32 `bun:"source_domain,notnull"`
	Caller        string `bun:"caller,type:varchar(66)"`
	MintRecipient string `bun:"mint_recipient,notnull,type:varchar(66)"`
	MintToken     string `bun:"mint_token,type:varchar(66)"`
	Amount        string `bun:"amount,notnull,type:numeric(78,0)"`
}

// CctpSponsoredBurnDao maps to the 'cctp_sponsored_burns' table: sponsorship
// events emitted by the per-chain periphery contract alongside a burn. The
// finalizer matches them to burns; they never feed the deposit aggregator.
type CctpSponsoredBurnDao struct {
	bun.BaseModel `bun:"table:cctp_sponsored_burns,alias:csb"`
	ChainEventBase

	Sponsor     string `bun:"sponsor,notnull,type:varchar(66)"`
	Signature   []byte `bun:"signature,notnull,type:bytea"`
	BurnEventID *int64 `bun:"burn_event_id"`
}
