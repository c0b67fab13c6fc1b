// Package finalizer schedules attestation retrieval and finalization
// publishing for burn events that need a destination-side mint.
package finalizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainsafe/transfer-indexer/internal/metrics"
	"github.com/chainsafe/transfer-indexer/pkg/config"
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	PendingBurns(ctx context.Context) ([]*dao.CctpBurnDao, error)
	BurnByID(ctx context.Context, id int64) (*dao.CctpBurnDao, error)
	MessageSentForBurn(ctx context.Context, burnEventID int64) (*dao.CctpMessageSentDao, error)
	SetMessageNonce(ctx context.Context, messageID, nonce int64) error
	SponsoredBurnsInTx(ctx context.Context, chainID uint64, txHash string) ([]*dao.CctpSponsoredBurnDao, error)
	SponsoredBurnByID(ctx context.Context, id int64) (*dao.CctpSponsoredBurnDao, error)
	LinkSponsoredBurn(ctx context.Context, sponsoredID, burnEventID int64) error
	UpsertFinalizerJob(ctx context.Context, job *dao.FinalizerJobDao) error
	StaleJobs(ctx context.Context, olderThan time.Time) ([]*dao.FinalizerJobDao, error)
	MintExists(ctx context.Context, sourceDomain uint32, nonce int64) (bool, error)
}

// AttestationFetcher retrieves completed attestations for a burn
// transaction.
type AttestationFetcher interface {
	FetchAttestation(ctx context.Context, domain uint32, txHash string) (*AttestationMessage, error)
}

// Scheduler drives the two finalizer passes: picking up newly indexed
// burns once their attestation latency has elapsed, and republishing jobs
// whose destination mint still has not landed.
type Scheduler struct {
	store     Store
	attestor  AttestationFetcher
	publisher Publisher
	cfg       config.FinalizerConfig
	chains    map[uint64]config.ChainConfig
	domains   map[uint32]uint64
	logger    *zap.Logger

	now func() time.Time
}

// NewScheduler creates a Scheduler over the configured chains.
func NewScheduler(store Store, attestor AttestationFetcher, publisher Publisher,
	cfg config.FinalizerConfig, chains []config.ChainConfig, logger *zap.Logger) *Scheduler {
	byID := make(map[uint64]config.ChainConfig, len(chains))
	byDomain := make(map[uint32]uint64, len(chains))
	for _, c := range chains {
		byID[c.ChainID] = c
		byDomain[c.CctpDomain] = c.ChainID
	}
	return &Scheduler{
		store:     store,
		attestor:  attestor,
		publisher: publisher,
		cfg:       cfg,
		chains:    byID,
		domains:   byDomain,
		logger:    logger,
		now:       time.Now,
	}
}

// Tick runs one scheduler cycle. Per-item failures are logged and skipped
// so one stuck burn never blocks the rest; a burn on a chain with no
// attestation latency configured is a deployment error and aborts the
// cycle instead.
func (s *Scheduler) Tick(ctx context.Context) error {
	if err := s.processNewBurns(ctx); err != nil {
		return err
	}
	return s.retryStaleJobs(ctx)
}

func (s *Scheduler) processNewBurns(ctx context.Context) error {
	burns, err := s.store.PendingBurns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending burns: %w", err)
	}

	for _, burn := range burns {
		latency, ok := s.cfg.AttestationLatency[burn.ChainID]
		if !ok {
			return fmt.Errorf("no attestation latency configured for chain %d", burn.ChainID)
		}

		wait := latency.Standard
		if burn.MinFinalityThreshold <= dao.ThresholdFast {
			wait = latency.Fast
		}
		if s.now().Before(burn.BlockTimestamp.Add(wait)) {
			metrics.FinalizerSkipped.WithLabelValues("not_due").Inc()
			continue
		}

		if err := s.finalizeBurn(ctx, burn); err != nil {
			s.logger.Error("Failed to finalize burn",
				zap.Int64("burn_event_id", burn.ID),
				zap.Uint64("chain_id", burn.ChainID),
				zap.String("tx_hash", burn.TxHash),
				zap.Error(err))
			metrics.ErrorsTotal.WithLabelValues("finalizer", "finalize_burn").Inc()
		}
	}
	return nil
}

func (s *Scheduler) finalizeBurn(ctx context.Context, burn *dao.CctpBurnDao) error {
	msg, err := s.store.MessageSentForBurn(ctx, burn.ID)
	if err != nil {
		return err
	}
	if msg == nil {
		metrics.FinalizerSkipped.WithLabelValues("message_missing").Inc()
		return fmt.Errorf("burn %d has no linked transmitter message", burn.ID)
	}

	sponsoredID, signature, err := s.matchSponsorship(ctx, burn)
	if err != nil {
		metrics.FinalizerSkipped.WithLabelValues("sponsorship_missing").Inc()
		return err
	}

	att, err := s.attestor.FetchAttestation(ctx, burn.SourceDomain, burn.TxHash)
	if err != nil {
		return fmt.Errorf("failed to fetch attestation: %w", err)
	}
	if att == nil {
		metrics.FinalizerSkipped.WithLabelValues("attestation_pending").Inc()
		return nil
	}

	nonce, err := att.Nonce()
	if err != nil {
		return err
	}
	if err := s.store.SetMessageNonce(ctx, msg.ID, nonce); err != nil {
		return err
	}

	messageBytes := msg.Message
	if decoded, err := hexutil.Decode(att.Message); err == nil {
		messageBytes = decoded
	}

	req := &PublishRequest{
		ID:                 uuid.New(),
		BurnEventID:        burn.ID,
		SourceDomain:       burn.SourceDomain,
		DestinationDomain:  burn.DestinationDomain,
		DestinationChainID: s.domains[burn.DestinationDomain],
		TxHash:             burn.TxHash,
		Message:            messageBytes,
		Attestation:        att.Attestation,
		SponsorSignature:   signature,
	}
	if err := s.publisher.Publish(ctx, req); err != nil {
		return fmt.Errorf("failed to publish finalization: %w", err)
	}
	metrics.FinalizerPublished.WithLabelValues("initial").Inc()

	job := &dao.FinalizerJobDao{
		BurnEventID:      burn.ID,
		Attestation:      att.Attestation,
		Message:          messageBytes,
		SponsoredEventID: sponsoredID,
		LastPublishedAt:  s.now().UTC(),
	}
	if err := s.store.UpsertFinalizerJob(ctx, job); err != nil {
		return err
	}

	s.logger.Info("Published finalization for burn",
		zap.Int64("burn_event_id", burn.ID),
		zap.Int64("nonce", nonce),
		zap.Bool("sponsored", sponsoredID != nil))
	return nil
}

// matchSponsorship decides whether a burn was routed through the sponsor
// periphery and, if so, finds its sponsorship event in the same
// transaction. The burn is sponsored when both the destination caller and
// the mint recipient equal the destination chain's periphery address. An
// expected sponsorship event that cannot be found is an error: publishing
// without the sponsor signature would produce an unexecutable instruction.
func (s *Scheduler) matchSponsorship(ctx context.Context, burn *dao.CctpBurnDao) (*int64, []byte, error) {
	destChainID, ok := s.domains[burn.DestinationDomain]
	if !ok {
		return nil, nil, nil
	}
	periphery := s.chains[destChainID].Contracts.CctpSponsorPeriphery
	if periphery == "" ||
		!strings.EqualFold(burn.DestinationCaller, periphery) ||
		!strings.EqualFold(burn.MintRecipient, periphery) {
		return nil, nil, nil
	}

	sponsored, err := s.store.SponsoredBurnsInTx(ctx, burn.ChainID, burn.TxHash)
	if err != nil {
		return nil, nil, err
	}

	match := s.pickSponsored(burn, sponsored)
	if match == nil {
		return nil, nil, fmt.Errorf("burn %d expects a sponsorship event in tx %s but none matched", burn.ID, burn.TxHash)
	}

	if match.BurnEventID == nil {
		if err := s.store.LinkSponsoredBurn(ctx, match.ID, burn.ID); err != nil {
			return nil, nil, err
		}
	}
	return &match.ID, match.Signature, nil
}

// pickSponsored selects the sponsorship event for a burn. On EVM chains
// the periphery emits the sponsorship log after the burn it sponsors, so
// the first unconsumed event with a larger log index wins. SVM programs
// give no such ordering guarantee, so any unconsumed event in the
// transaction matches.
func (s *Scheduler) pickSponsored(burn *dao.CctpBurnDao, sponsored []*dao.CctpSponsoredBurnDao) *dao.CctpSponsoredBurnDao {
	family := s.chains[burn.ChainID].Family

	for _, sp := range sponsored {
		if sp.BurnEventID != nil {
			if *sp.BurnEventID == burn.ID {
				return sp
			}
			continue
		}
		if family == config.FamilyEVM && sp.LogIndex <= burn.LogIndex {
			continue
		}
		return sp
	}
	return nil
}

func (s *Scheduler) retryStaleJobs(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.RetryDelay)
	jobs, err := s.store.StaleJobs(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale jobs: %w", err)
	}

	for _, job := range jobs {
		if err := s.retryJob(ctx, job); err != nil {
			s.logger.Error("Failed to retry finalizer job",
				zap.Int64("burn_event_id", job.BurnEventID),
				zap.Error(err))
			metrics.ErrorsTotal.WithLabelValues("finalizer", "retry_job").Inc()
		}
	}
	return nil
}

func (s *Scheduler) retryJob(ctx context.Context, job *dao.FinalizerJobDao) error {
	burn, err := s.store.BurnByID(ctx, job.BurnEventID)
	if err != nil {
		return err
	}
	if burn == nil || burn.DeletedAt != nil {
		metrics.FinalizerSkipped.WithLabelValues("burn_retracted").Inc()
		return nil
	}

	// The mint check is intentionally blind to the mint's finalised and
	// deleted_at state: any sighting of the mint means the instruction was
	// executed on the destination, and republishing a consumed nonce only
	// wastes gas.
	delivered, err := s.store.MintExists(ctx, burn.SourceDomain, burn.Nonce)
	if err != nil {
		return err
	}
	if delivered {
		metrics.FinalizerSkipped.WithLabelValues("delivered").Inc()
		return nil
	}

	var signature []byte
	if job.SponsoredEventID != nil {
		sp, err := s.store.SponsoredBurnByID(ctx, *job.SponsoredEventID)
		if err != nil {
			return err
		}
		if sp != nil {
			signature = sp.Signature
		}
	}

	req := &PublishRequest{
		ID:                 uuid.New(),
		BurnEventID:        burn.ID,
		SourceDomain:       burn.SourceDomain,
		DestinationDomain:  burn.DestinationDomain,
		DestinationChainID: s.domains[burn.DestinationDomain],
		TxHash:             burn.TxHash,
		Message:            job.Message,
		Attestation:        job.Attestation,
		SponsorSignature:   signature,
	}
	if err := s.publisher.Publish(ctx, req); err != nil {
		return fmt.Errorf("failed to republish finalization: %w", err)
	}
	metrics.FinalizerPublished.WithLabelValues("retry").Inc()

	job.LastPublishedAt = s.now().UTC()
	if err := s.store.UpsertFinalizerJob(ctx, job); err != nil {
		return err
	}

	s.logger.Info("Republished finalization for burn",
		zap.Int64("burn_event_id", burn.ID))
	return nil
}
