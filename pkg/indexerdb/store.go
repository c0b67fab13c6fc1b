package indexerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
)

// Store provides database operations for the transfer indexer
type Store struct {
	db *bun.DB
}

// NewStore creates a new database store
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying bun connection for advanced queries
func (s *Store) DB() *bun.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetCursor retrieves the scan cursor for a chain, or nil when the chain
// has never been scanned.
func (s *Store) GetCursor(ctx context.Context, chainID uint64) (*dao.ChainCursorDao, error) {
	cursor := new(dao.ChainCursorDao)
	err := s.db.NewSelect().
		Model(cursor).
		Where("chain_id = ?", chainID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor for chain %d: %w", chainID, err)
	}
	return cursor, nil
}

// SetCursor upserts the scan cursor for a chain.
func (s *Store) SetCursor(ctx context.Context, chainID, lastScanned, lastFinalised uint64) error {
	cursor := &dao.ChainCursorDao{
		ChainID:            chainID,
		LastScannedBlock:   lastScanned,
		LastFinalisedBlock: lastFinalised,
	}
	_, err := s.db.NewInsert().
		Model(cursor).
		On("CONFLICT (chain_id) DO UPDATE").
		Set("last_scanned_block = EXCLUDED.last_scanned_block").
		Set("last_finalised_block = EXCLUDED.last_finalised_block").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set cursor for chain %d: %w", chainID, err)
	}
	return nil
}

// ListTransfers retrieves the most recent transfers
func (s *Store) ListTransfers(ctx context.Context, limit int) ([]*dao.TransferDao, error) {
	var transfers []*dao.TransferDao
	err := s.db.NewSelect().
		Model(&transfers).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return transfers, nil
}

// GetTransferByUniqueID retrieves a transfer by its protocol-specific key,
// or nil when no such transfer exists.
func (s *Store) GetTransferByUniqueID(ctx context.Context, uniqueID string) (*dao.TransferDao, error) {
	transfer := new(dao.TransferDao)
	err := s.db.NewSelect().
		Model(transfer).
		Where("unique_id = ?", uniqueID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer %s: %w", uniqueID, err)
	}
	return transfer, nil
}
