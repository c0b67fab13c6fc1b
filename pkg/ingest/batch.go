package ingest

import "github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"

// MessageReceived is the transient destination-side transmitter log. It is
// never stored: its nonce, source domain and caller are merged into the
// mint event of the same transaction before the mint is persisted.
type MessageReceived struct {
	TxHash       string
	LogIndex     uint32
	Caller       string
	SourceDomain uint32
	Nonce        int64
}

// EventTxHash implements pair.Log.
func (m *MessageReceived) EventTxHash() string { return m.TxHash }

// EventLogIndex implements pair.Log.
func (m *MessageReceived) EventLogIndex() uint32 { return m.LogIndex }

// Batch is everything one scan cycle extracted from a contiguous block
// range on a single chain. LastFinalisedBlock is the chain's finality
// watermark at scan time; every event at or below it is stored finalised.
type Batch struct {
	ChainID            uint64
	LastScannedBlock   uint64
	LastFinalisedBlock uint64

	AcrossDeposits []*dao.AcrossDepositDao
	AcrossFills    []*dao.AcrossFillDao

	CctpBurns          []*dao.CctpBurnDao
	CctpMessageSents   []*dao.CctpMessageSentDao
	CctpMints          []*dao.CctpMintDao
	CctpSponsoredBurns []*dao.CctpSponsoredBurnDao
	MessageReceiveds   []*MessageReceived

	OftSents     []*dao.OftSentDao
	OftReceiveds []*dao.OftReceivedDao
}
