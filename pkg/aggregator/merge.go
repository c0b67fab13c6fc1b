package aggregator

import "github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"

// Link names a transfer foreign-key column pointing at a contributing
// chain event.
type Link string

const (
	LinkAcrossDeposit Link = "across_deposit_id"
	LinkAcrossFill    Link = "across_fill_id"
	LinkCctpBurn      Link = "cctp_burn_id"
	LinkCctpMint      Link = "cctp_mint_id"
	LinkOftSent       Link = "oft_sent_id"
	LinkOftReceived   Link = "oft_received_id"
)

// applyStatus enforces the status transition rule independently of the
// field merge: a destination event always marks the transfer FILLED, a
// source event marks it PENDING only when it is not already FILLED. A fill
// observed before its deposit is never demoted when the deposit arrives.
func applyStatus(t *dao.TransferDao, side Side) {
	switch side {
	case SideDestination:
		t.Status = dao.TransferStatusFilled
	case SideSource:
		if t.Status != dao.TransferStatusFilled {
			t.Status = dao.TransferStatusPending
		}
	}
}

// retractLink nulls the foreign key and the fields sourced exclusively
// from the retracted event. Fields both sides can provide stay in place.
func retractLink(t *dao.TransferDao, link Link) {
	switch link {
	case LinkAcrossDeposit:
		t.AcrossDepositID = nil
		t.Depositor = nil
		t.OriginChainID = nil
	case LinkAcrossFill:
		t.AcrossFillID = nil
	case LinkCctpBurn:
		t.CctpBurnID = nil
		t.Depositor = nil
		t.OriginChainID = nil
	case LinkCctpMint:
		t.CctpMintID = nil
	case LinkOftSent:
		t.OftSentID = nil
		t.Depositor = nil
		t.OriginChainID = nil
	case LinkOftReceived:
		t.OftReceivedID = nil
		t.Recipient = nil
		t.DestinationChainID = nil
	}
}

// remainingLinks reports which sides still have a contributing event
// linked after a retraction.
func remainingLinks(t *dao.TransferDao) (hasSource, hasDestination bool) {
	hasSource = t.AcrossDepositID != nil || t.CctpBurnID != nil || t.OftSentID != nil
	hasDestination = t.AcrossFillID != nil || t.CctpMintID != nil || t.OftReceivedID != nil
	return hasSource, hasDestination
}
