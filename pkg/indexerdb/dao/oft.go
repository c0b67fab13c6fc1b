package dao

import "github.com/uptrace/bun"

// OftSentDao maps to the 'oft_sents' table: source-side OFTSent events.
// The GUID is assigned by the message bridge and shared with the receive
// side; it is the transfer key for this protocol.
type OftSentDao struct {
	bun.BaseModel `bun:"table:oft_sents,alias:os"`
	ChainEventBase

	GUID             string `bun:"guid,notnull,type:varchar(66)"`
	SrcEid           uint32 `bun:"src_eid,notnull"`
	DstEid           uint32 `bun:"dst_eid,notnull"`
	FromAddress      string `bun:"from_address,notnull,type:varchar(66)"`
	AmountSentLD     string `bun:"amount_sent_ld,notnull,type:numeric(78,0)"`
	AmountReceivedLD string `bun:"amount_received_ld,type:numeric(78,0)"`
}

// OftReceivedDao maps to the 'oft_receiveds' table: destination-side
// OFTReceived events.
type OftReceivedDao struct {
	bun.BaseModel `bun:"table:oft_receiveds,alias:or"`
	ChainEventBase

	GUID             string `bun:"guid,notnull,type:varchar(66)"`
	SrcEid           uint32 `bun:"src_eid,notnull"`
	ToAddress        string `bun:"to_address,notnull,type:varchar(66)"`
	AmountReceivedLD string `bun:"amount_received_ld,notnull,type:numeric(78,0)"`
}
