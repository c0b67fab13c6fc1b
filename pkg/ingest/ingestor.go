// Package ingest turns scanned chain events into finality-tracked rows and
// cascades every content-bearing write into the deposit aggregator.
package ingest

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/chainsafe/transfer-indexer/internal/metrics"
	"github.com/chainsafe/transfer-indexer/pkg/aggregator"
	"github.com/chainsafe/transfer-indexer/pkg/config"
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb"
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
	"github.com/chainsafe/transfer-indexer/pkg/pair"
)

// Content columns compared on re-ingest, per table. The transmitter
// message's nonce and the sponsorship event's burn link are excluded:
// both are backfilled by the finalizer and a rescan must not wipe them.
var (
	acrossDepositCols = []string{"unique_id", "deposit_id", "depositor", "recipient",
		"input_token", "output_token", "input_amount", "output_amount",
		"origin_chain_id", "destination_chain_id", "block_timestamp"}
	acrossFillCols = []string{"unique_id", "deposit_id", "relayer", "recipient",
		"output_token", "output_amount", "origin_chain_id", "destination_chain_id",
		"block_timestamp"}
	cctpBurnCols = []string{"nonce", "burn_token", "amount", "depositor",
		"mint_recipient", "source_domain", "destination_domain",
		"destination_caller", "min_finality_threshold", "block_timestamp"}
	cctpMessageSentCols = []string{"message", "message_hash", "source_domain",
		"destination_domain", "burn_event_id", "block_timestamp"}
	cctpMintCols = []string{"nonce", "source_domain", "caller", "mint_recipient",
		"mint_token", "amount", "block_timestamp"}
	cctpSponsoredCols = []string{"sponsor", "signature", "block_timestamp"}
	oftSentCols       = []string{"guid", "src_eid", "dst_eid", "from_address",
		"amount_sent_ld", "amount_received_ld", "block_timestamp"}
	oftReceivedCols = []string{"guid", "src_eid", "to_address",
		"amount_received_ld", "block_timestamp"}
)

// Ingestor persists one scanned batch at a time for a set of chains.
type Ingestor struct {
	store   *indexerdb.Store
	agg     *aggregator.Aggregator
	chains  map[uint64]config.ChainConfig
	domains map[uint32]uint64
	logger  *zap.Logger
}

// NewIngestor creates an Ingestor over the configured chains.
func NewIngestor(store *indexerdb.Store, agg *aggregator.Aggregator, chains []config.ChainConfig, logger *zap.Logger) *Ingestor {
	byID := make(map[uint64]config.ChainConfig, len(chains))
	byDomain := make(map[uint32]uint64, len(chains))
	for _, c := range chains {
		byID[c.ChainID] = c
		byDomain[c.CctpDomain] = c.ChainID
	}
	return &Ingestor{
		store:   store,
		agg:     agg,
		chains:  byID,
		domains: byDomain,
		logger:  logger,
	}
}

// ProcessBatch stores every event of the batch with its write
// classification, folds content-bearing writes into the canonical
// transfers, retracts events orphaned below the finality watermark, and
// advances the chain cursor. Re-processing the same batch is a no-op.
func (s *Ingestor) ProcessBatch(ctx context.Context, b *Batch) error {
	chain := strconv.FormatUint(b.ChainID, 10)
	s.stampFinality(b)

	mints := s.mergeMints(chain, b)

	if err := s.storeAcross(ctx, chain, b); err != nil {
		return err
	}
	if err := s.storeCctp(ctx, chain, b, mints); err != nil {
		return err
	}
	if err := s.storeOft(ctx, chain, b); err != nil {
		return err
	}

	if err := s.retractReorged(ctx, chain, b); err != nil {
		return err
	}

	if err := s.store.SetCursor(ctx, b.ChainID, b.LastScannedBlock, b.LastFinalisedBlock); err != nil {
		return err
	}
	metrics.LastScannedBlock.WithLabelValues(chain).Set(float64(b.LastScannedBlock))
	metrics.LastFinalisedBlock.WithLabelValues(chain).Set(float64(b.LastFinalisedBlock))
	return nil
}

// stampFinality marks every event at or below the watermark finalised.
func (s *Ingestor) stampFinality(b *Batch) {
	mark := func(e *dao.ChainEventBase) {
		e.Finalised = e.BlockNumber <= b.LastFinalisedBlock
	}
	for _, r := range b.AcrossDeposits {
		mark(&r.ChainEventBase)
	}
	for _, r := range b.AcrossFills {
		mark(&r.ChainEventBase)
	}
	for _, r := range b.CctpBurns {
		mark(&r.ChainEventBase)
	}
	for _, r := range b.CctpMessageSents {
		mark(&r.ChainEventBase)
	}
	for _, r := range b.CctpMints {
		mark(&r.ChainEventBase)
	}
	for _, r := range b.CctpSponsoredBurns {
		mark(&r.ChainEventBase)
	}
	for _, r := range b.OftSents {
		mark(&r.ChainEventBase)
	}
	for _, r := range b.OftReceiveds {
		mark(&r.ChainEventBase)
	}
}

// mergeMints pairs each mint with the transmitter receive log of its
// transaction and merges the nonce, source domain and caller into the
// mint row. A mint without a receive log has no computable transfer key
// and is dropped from the batch.
func (s *Ingestor) mergeMints(chain string, b *Batch) []*dao.CctpMintDao {
	pairs := pair.Match(b.CctpMints, b.MessageReceiveds, s.onUnmatched(chain, "cctp_mint_receive"))

	merged := make([]*dao.CctpMintDao, 0, len(pairs))
	for _, p := range pairs {
		p.Leading.Nonce = p.Correlated.Nonce
		p.Leading.SourceDomain = p.Correlated.SourceDomain
		p.Leading.Caller = p.Correlated.Caller
		merged = append(merged, p.Leading)
	}
	if dropped := len(b.CctpMints) - len(merged); dropped > 0 {
		s.logger.Warn("Dropping mints without a transmitter receive log",
			zap.String("chain", chain),
			zap.Int("count", dropped))
	}
	return merged
}

func (s *Ingestor) storeAcross(ctx context.Context, chain string, b *Batch) error {
	deposits, err := indexerdb.UpsertWithFinalization(ctx, s.store.DB(), b.AcrossDeposits, dao.EventUniqueColumns(), acrossDepositCols)
	if err != nil {
		return fmt.Errorf("failed to store deposits: %w", err)
	}
	for _, res := range deposits {
		s.observeStored(chain, "across_deposit", res.Outcome)
		if res.Outcome.Changed() {
			if err := s.agg.Apply(ctx, aggregator.AcrossDeposit{Row: res.Row}); err != nil {
				return err
			}
		}
	}

	fills, err := indexerdb.UpsertWithFinalization(ctx, s.store.DB(), b.AcrossFills, dao.EventUniqueColumns(), acrossFillCols)
	if err != nil {
		return fmt.Errorf("failed to store fills: %w", err)
	}
	for _, res := range fills {
		s.observeStored(chain, "across_fill", res.Outcome)
		if res.Outcome.Changed() {
			if err := s.agg.Apply(ctx, aggregator.AcrossFill{Row: res.Row}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Ingestor) storeCctp(ctx context.Context, chain string, b *Batch, mints []*dao.CctpMintDao) error {
	// The transmitter emits its message before the messenger emits the
	// burn, so the burn leads and the message correlates.
	burnPairs := pair.Match(b.CctpBurns, b.CctpMessageSents, s.onUnmatched(chain, "cctp_burn_message"))

	burns, err := indexerdb.UpsertWithFinalization(ctx, s.store.DB(), b.CctpBurns, dao.EventUniqueColumns(), cctpBurnCols)
	if err != nil {
		return fmt.Errorf("failed to store burns: %w", err)
	}
	for _, p := range burnPairs {
		p.Correlated.BurnEventID = &p.Leading.ID
	}

	for _, res := range burns {
		s.observeStored(chain, "cctp_burn", res.Outcome)
		if res.Outcome.Changed() {
			ev := aggregator.CctpBurn{Row: res.Row}
			if destChain, ok := s.domains[res.Row.DestinationDomain]; ok {
				ev.DestinationChainID = &destChain
			}
			if err := s.agg.Apply(ctx, ev); err != nil {
				return err
			}
		}
	}

	messages, err := indexerdb.UpsertWithFinalization(ctx, s.store.DB(), b.CctpMessageSents, dao.EventUniqueColumns(), cctpMessageSentCols)
	if err != nil {
		return fmt.Errorf("failed to store transmitter messages: %w", err)
	}
	for _, res := range messages {
		s.observeStored(chain, "cctp_message_sent", res.Outcome)
	}

	localDomain := s.chains[b.ChainID].CctpDomain
	mintResults, err := indexerdb.UpsertWithFinalization(ctx, s.store.DB(), mints, dao.EventUniqueColumns(), cctpMintCols)
	if err != nil {
		return fmt.Errorf("failed to store mints: %w", err)
	}
	for _, res := range mintResults {
		s.observeStored(chain, "cctp_mint", res.Outcome)
		if res.Outcome.Changed() {
			if err := s.agg.Apply(ctx, aggregator.CctpMint{Row: res.Row, LocalDomain: localDomain}); err != nil {
				return err
			}
		}
	}

	sponsored, err := indexerdb.UpsertWithFinalization(ctx, s.store.DB(), b.CctpSponsoredBurns, dao.EventUniqueColumns(), cctpSponsoredCols)
	if err != nil {
		return fmt.Errorf("failed to store sponsored burns: %w", err)
	}
	for _, res := range sponsored {
		s.observeStored(chain, "cctp_sponsored_burn", res.Outcome)
	}
	return nil
}

func (s *Ingestor) storeOft(ctx context.Context, chain string, b *Batch) error {
	sents, err := indexerdb.UpsertWithFinalization(ctx, s.store.DB(), b.OftSents, dao.EventUniqueColumns(), oftSentCols)
	if err != nil {
		return fmt.Errorf("failed to store sends: %w", err)
	}
	for _, res := range sents {
		s.observeStored(chain, "oft_sent", res.Outcome)
		if res.Outcome.Changed() {
			if err := s.agg.Apply(ctx, aggregator.OftSent{Row: res.Row}); err != nil {
				return err
			}
		}
	}

	receiveds, err := indexerdb.UpsertWithFinalization(ctx, s.store.DB(), b.OftReceiveds, dao.EventUniqueColumns(), oftReceivedCols)
	if err != nil {
		return fmt.Errorf("failed to store receives: %w", err)
	}
	for _, res := range receiveds {
		s.observeStored(chain, "oft_received", res.Outcome)
		if res.Outcome.Changed() {
			if err := s.agg.Apply(ctx, aggregator.OftReceived{Row: res.Row}); err != nil {
				return err
			}
		}
	}
	return nil
}

// retractReorged soft-deletes unfinalised events stranded below the
// watermark and unwinds their contribution to the canonical transfers.
func (s *Ingestor) retractReorged(ctx context.Context, chain string, b *Batch) error {
	db := s.store.DB()

	deposits, err := indexerdb.DeleteUnfinalisedBelow[*dao.AcrossDepositDao](ctx, db, b.ChainID, b.LastFinalisedBlock)
	if err != nil {
		return err
	}
	for _, row := range deposits {
		s.observeRetracted(chain, "across_deposit")
		if err := s.agg.ApplyRetraction(ctx, row.UniqueID, aggregator.LinkAcrossDeposit); err != nil {
			return err
		}
	}

	fills, err := indexerdb.DeleteUnfinalisedBelow[*dao.AcrossFillDao](ctx, db, b.ChainID, b.LastFinalisedBlock)
	if err != nil {
		return err
	}
	for _, row := range fills {
		s.observeRetracted(chain, "across_fill")
		if err := s.agg.ApplyRetraction(ctx, row.UniqueID, aggregator.LinkAcrossFill); err != nil {
			return err
		}
	}

	burns, err := indexerdb.DeleteUnfinalisedBelow[*dao.CctpBurnDao](ctx, db, b.ChainID, b.LastFinalisedBlock)
	if err != nil {
		return err
	}
	for _, row := range burns {
		s.observeRetracted(chain, "cctp_burn")
		key := aggregator.CctpUniqueID(row.Nonce, row.DestinationDomain)
		if err := s.agg.ApplyRetraction(ctx, key, aggregator.LinkCctpBurn); err != nil {
			return err
		}
	}

	messages, err := indexerdb.DeleteUnfinalisedBelow[*dao.CctpMessageSentDao](ctx, db, b.ChainID, b.LastFinalisedBlock)
	if err != nil {
		return err
	}
	for range messages {
		s.observeRetracted(chain, "cctp_message_sent")
	}

	localDomain := s.chains[b.ChainID].CctpDomain
	mints, err := indexerdb.DeleteUnfinalisedBelow[*dao.CctpMintDao](ctx, db, b.ChainID, b.LastFinalisedBlock)
	if err != nil {
		return err
	}
	for _, row := range mints {
		s.observeRetracted(chain, "cctp_mint")
		key := aggregator.CctpUniqueID(row.Nonce, localDomain)
		if err := s.agg.ApplyRetraction(ctx, key, aggregator.LinkCctpMint); err != nil {
			return err
		}
	}

	sponsored, err := indexerdb.DeleteUnfinalisedBelow[*dao.CctpSponsoredBurnDao](ctx, db, b.ChainID, b.LastFinalisedBlock)
	if err != nil {
		return err
	}
	for range sponsored {
		s.observeRetracted(chain, "cctp_sponsored_burn")
	}

	sents, err := indexerdb.DeleteUnfinalisedBelow[*dao.OftSentDao](ctx, db, b.ChainID, b.LastFinalisedBlock)
	if err != nil {
		return err
	}
	for _, row := range sents {
		s.observeRetracted(chain, "oft_sent")
		if err := s.agg.ApplyRetraction(ctx, aggregator.OftUniqueID(row.GUID), aggregator.LinkOftSent); err != nil {
			return err
		}
	}

	receiveds, err := indexerdb.DeleteUnfinalisedBelow[*dao.OftReceivedDao](ctx, db, b.ChainID, b.LastFinalisedBlock)
	if err != nil {
		return err
	}
	for _, row := range receiveds {
		s.observeRetracted(chain, "oft_received")
		if err := s.agg.ApplyRetraction(ctx, aggregator.OftUniqueID(row.GUID), aggregator.LinkOftReceived); err != nil {
			return err
		}
	}
	return nil
}

func (s *Ingestor) onUnmatched(chain, kind string) func(pair.Unmatched) {
	return func(u pair.Unmatched) {
		metrics.UnmatchedPairs.WithLabelValues(chain, kind, string(u.Side)).Inc()
		s.logger.Warn("Event left without a same-transaction partner",
			zap.String("chain", chain),
			zap.String("kind", kind),
			zap.String("side", string(u.Side)),
			zap.String("tx_hash", u.TxHash),
			zap.Uint32("log_index", u.LogIndex))
	}
}

func (s *Ingestor) observeStored(chain, protocol string, outcome indexerdb.Outcome) {
	metrics.EventsStored.WithLabelValues(chain, protocol, string(outcome)).Inc()
}

func (s *Ingestor) observeRetracted(chain, protocol string) {
	metrics.EventsRetracted.WithLabelValues(chain, protocol).Inc()
}
