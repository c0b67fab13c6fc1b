package indexerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
)

// PendingBurns returns all non-retracted burn events that have no
// finalizer job yet, oldest first.
func (s *Store) PendingBurns(ctx context.Context) ([]*dao.CctpBurnDao, error) {
	var burns []*dao.CctpBurnDao
	err := s.db.NewSelect().
		Model(&burns).
		Where("cb.deleted_at IS NULL").
		Where("NOT EXISTS (SELECT 1 FROM finalizer_jobs fj WHERE fj.burn_event_id = cb.id)").
		Order("cb.block_timestamp ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending burns: %w", err)
	}
	return burns, nil
}

// BurnByID retrieves a burn event by row id, or nil when absent.
func (s *Store) BurnByID(ctx context.Context, id int64) (*dao.CctpBurnDao, error) {
	burn := new(dao.CctpBurnDao)
	err := s.db.NewSelect().
		Model(burn).
		Where("cb.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get burn %d: %w", id, err)
	}
	return burn, nil
}

// MessageSentForBurn returns the transmitter message linked to a burn, or
// nil when the pair matcher never linked one.
func (s *Store) MessageSentForBurn(ctx context.Context, burnEventID int64) (*dao.CctpMessageSentDao, error) {
	msg := new(dao.CctpMessageSentDao)
	err := s.db.NewSelect().
		Model(msg).
		Where("cms.burn_event_id = ?", burnEventID).
		Where("cms.deleted_at IS NULL").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message for burn %d: %w", burnEventID, err)
	}
	return msg, nil
}

// SetMessageNonce persists the attestation-resolved nonce onto a stored
// message-sent row.
func (s *Store) SetMessageNonce(ctx context.Context, messageID, nonce int64) error {
	_, err := s.db.NewUpdate().
		Model((*dao.CctpMessageSentDao)(nil)).
		Set("nonce = ?", nonce).
		Where("id = ?", messageID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set nonce on message %d: %w", messageID, err)
	}
	return nil
}

// SponsoredBurnsInTx returns the non-retracted sponsorship events observed
// in the given transaction.
func (s *Store) SponsoredBurnsInTx(ctx context.Context, chainID uint64, txHash string) ([]*dao.CctpSponsoredBurnDao, error) {
	var sponsored []*dao.CctpSponsoredBurnDao
	err := s.db.NewSelect().
		Model(&sponsored).
		Where("csb.chain_id = ?", chainID).
		Where("csb.tx_hash = ?", txHash).
		Where("csb.deleted_at IS NULL").
		Order("csb.log_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select sponsored burns for tx %s: %w", txHash, err)
	}
	return sponsored, nil
}

// SponsoredBurnByID retrieves a sponsorship event by row id, or nil when
// absent.
func (s *Store) SponsoredBurnByID(ctx context.Context, id int64) (*dao.CctpSponsoredBurnDao, error) {
	sponsored := new(dao.CctpSponsoredBurnDao)
	err := s.db.NewSelect().
		Model(sponsored).
		Where("csb.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sponsored burn %d: %w", id, err)
	}
	return sponsored, nil
}

// LinkSponsoredBurn records which burn a sponsorship event belongs to.
func (s *Store) LinkSponsoredBurn(ctx context.Context, sponsoredID, burnEventID int64) error {
	_, err := s.db.NewUpdate().
		Model((*dao.CctpSponsoredBurnDao)(nil)).
		Set("burn_event_id = ?", burnEventID).
		Where("id = ?", sponsoredID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to link sponsored burn %d: %w", sponsoredID, err)
	}
	return nil
}

// UpsertFinalizerJob inserts or refreshes the job row for a burn. Repeated
// runs before completion converge on one row per burn_event_id with the
// latest attestation values (last write wins).
func (s *Store) UpsertFinalizerJob(ctx context.Context, job *dao.FinalizerJobDao) error {
	_, err := s.db.NewInsert().
		Model(job).
		On("CONFLICT (burn_event_id) DO UPDATE").
		Set("attestation = EXCLUDED.attestation").
		Set("message = EXCLUDED.message").
		Set("sponsored_event_id = EXCLUDED.sponsored_event_id").
		Set("last_published_at = EXCLUDED.last_published_at").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert finalizer job for burn %d: %w", job.BurnEventID, err)
	}
	return nil
}

// FinalizerJobForBurn retrieves the job row for a burn, or nil when none
// exists yet.
func (s *Store) FinalizerJobForBurn(ctx context.Context, burnEventID int64) (*dao.FinalizerJobDao, error) {
	job := new(dao.FinalizerJobDao)
	err := s.db.NewSelect().
		Model(job).
		Where("burn_event_id = ?", burnEventID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get finalizer job for burn %d: %w", burnEventID, err)
	}
	return job, nil
}

// StaleJobs returns jobs whose last publish happened before the cutoff.
func (s *Store) StaleJobs(ctx context.Context, olderThan time.Time) ([]*dao.FinalizerJobDao, error) {
	var jobs []*dao.FinalizerJobDao
	err := s.db.NewSelect().
		Model(&jobs).
		Where("last_published_at < ?", olderThan).
		Order("last_published_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select stale jobs: %w", err)
	}
	return jobs, nil
}

// MintExists reports whether a destination-side mint has been indexed for
// the given source domain and nonce. It deliberately does not check the
// mint row's finalised or deleted_at state; see the retry pass for why.
func (s *Store) MintExists(ctx context.Context, sourceDomain uint32, nonce int64) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*dao.CctpMintDao)(nil)).
		Where("source_domain = ?", sourceDomain).
		Where("nonce = ?", nonce).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check mint existence: %w", err)
	}
	return exists, nil
}
