package aggregator

import (
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
)

// Side tells the aggregator whether an event contributes the source or the
// destination half of a transfer.
type Side string

const (
	SideSource      Side = "SOURCE"
	SideDestination Side = "DESTINATION"
)

// ProtocolEvent is the tagged union of every event kind that feeds the
// canonical transfer. Each variant knows its transfer key, its side and
// the sparse patch it contributes; the aggregator never inspects protocol
// payloads directly.
type ProtocolEvent interface {
	TransferKey() string
	TransferType() dao.TransferType
	UpdateKind() Side
	Patch() TransferPatch

	isProtocolEvent()
}

// AcrossDeposit is a source-side native bridge deposit.
type AcrossDeposit struct {
	Row *dao.AcrossDepositDao
}

func (AcrossDeposit) isProtocolEvent()                {}
func (e AcrossDeposit) TransferKey() string           { return e.Row.UniqueID }
func (AcrossDeposit) TransferType() dao.TransferType  { return dao.TransferTypeAcross }
func (AcrossDeposit) UpdateKind() Side                { return SideSource }

func (e AcrossDeposit) Patch() TransferPatch {
	return TransferPatch{
		OriginChainID:      Set(e.Row.OriginChainID),
		DestinationChainID: Set(e.Row.DestinationChainID),
		Depositor:          Set(e.Row.Depositor),
		Recipient:          Set(e.Row.Recipient),
		Amount:             Set(e.Row.InputAmount),
		BlockTimestamp:     Set(e.Row.BlockTimestamp),
		AcrossDepositID:    Set(e.Row.ID),
	}
}

// AcrossFill is a destination-side native bridge fill.
type AcrossFill struct {
	Row *dao.AcrossFillDao
}

func (AcrossFill) isProtocolEvent()               {}
func (e AcrossFill) TransferKey() string          { return e.Row.UniqueID }
func (AcrossFill) TransferType() dao.TransferType { return dao.TransferTypeAcross }
func (AcrossFill) UpdateKind() Side               { return SideDestination }

func (e AcrossFill) Patch() TransferPatch {
	return TransferPatch{
		DestinationChainID: Set(e.Row.DestinationChainID),
		Recipient:          Set(e.Row.Recipient),
		BlockTimestamp:     Set(e.Row.BlockTimestamp),
		AcrossFillID:       Set(e.Row.ID),
	}
}

// CctpBurn is a source-side burn. DestinationChainID is resolved from the
// burn's destination domain by the caller when the domain is mapped to a
// configured chain; nil leaves the field untouched.
type CctpBurn struct {
	Row                *dao.CctpBurnDao
	DestinationChainID *uint64
}

func (CctpBurn) isProtocolEvent()               {}
func (CctpBurn) TransferType() dao.TransferType { return dao.TransferTypeCctp }
func (CctpBurn) UpdateKind() Side               { return SideSource }

func (e CctpBurn) TransferKey() string {
	return CctpUniqueID(e.Row.Nonce, e.Row.DestinationDomain)
}

func (e CctpBurn) Patch() TransferPatch {
	p := TransferPatch{
		OriginChainID:  Set(e.Row.ChainID),
		Depositor:      Set(e.Row.Depositor),
		Recipient:      Set(e.Row.MintRecipient),
		Amount:         Set(e.Row.Amount),
		BlockTimestamp: Set(e.Row.BlockTimestamp),
		CctpBurnID:     Set(e.Row.ID),
	}
	if e.DestinationChainID != nil {
		p.DestinationChainID = Set(*e.DestinationChainID)
	}
	return p
}

// CctpMint is a destination-side mint, merged with the message-received
// log of the same transaction. LocalDomain is the burn/mint domain of the
// chain the mint executed on; it equals the burn's destination domain, so
// both sides recompute the same transfer key.
type CctpMint struct {
	Row         *dao.CctpMintDao
	LocalDomain uint32
}

func (CctpMint) isProtocolEvent()               {}
func (CctpMint) TransferType() dao.TransferType { return dao.TransferTypeCctp }
func (CctpMint) UpdateKind() Side               { return SideDestination }

func (e CctpMint) TransferKey() string {
	return CctpUniqueID(e.Row.Nonce, e.LocalDomain)
}

func (e CctpMint) Patch() TransferPatch {
	return TransferPatch{
		DestinationChainID: Set(e.Row.ChainID),
		Recipient:          Set(e.Row.MintRecipient),
		Amount:             Set(e.Row.Amount),
		BlockTimestamp:     Set(e.Row.BlockTimestamp),
		CctpMintID:         Set(e.Row.ID),
	}
}

// OftSent is a source-side message bridge send.
type OftSent struct {
	Row *dao.OftSentDao
}

func (OftSent) isProtocolEvent()               {}
func (OftSent) TransferType() dao.TransferType { return dao.TransferTypeOft }
func (OftSent) UpdateKind() Side               { return SideSource }
func (e OftSent) TransferKey() string          { return OftUniqueID(e.Row.GUID) }

func (e OftSent) Patch() TransferPatch {
	return TransferPatch{
		OriginChainID:  Set(e.Row.ChainID),
		Depositor:      Set(e.Row.FromAddress),
		Amount:         Set(e.Row.AmountSentLD),
		BlockTimestamp: Set(e.Row.BlockTimestamp),
		OftSentID:      Set(e.Row.ID),
	}
}

// OftReceived is a destination-side message bridge receive.
type OftReceived struct {
	Row *dao.OftReceivedDao
}

func (OftReceived) isProtocolEvent()               {}
func (OftReceived) TransferType() dao.TransferType { return dao.TransferTypeOft }
func (OftReceived) UpdateKind() Side               { return SideDestination }
func (e OftReceived) TransferKey() string          { return OftUniqueID(e.Row.GUID) }

func (e OftReceived) Patch() TransferPatch {
	return TransferPatch{
		DestinationChainID: Set(e.Row.ChainID),
		Recipient:          Set(e.Row.ToAddress),
		Amount:             Set(e.Row.AmountReceivedLD),
		BlockTimestamp:     Set(e.Row.BlockTimestamp),
		OftReceivedID:      Set(e.Row.ID),
	}
}
