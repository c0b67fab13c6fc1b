package engine

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/transfer-indexer/pkg/config"
	"github.com/chainsafe/transfer-indexer/pkg/evmscan"
)

// slowClient stalls inside BlockNumber and records whether the context was
// still live when the call finished.
type slowClient struct {
	mu      sync.Mutex
	ctxErrs []error
}

func (c *slowClient) BlockNumber(ctx context.Context) (uint64, error) {
	time.Sleep(20 * time.Millisecond)
	c.mu.Lock()
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	c.mu.Unlock()
	return 0, errors.New("rpc unavailable")
}

func (c *slowClient) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, errors.New("rpc unavailable")
}

func (c *slowClient) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return nil, errors.New("rpc unavailable")
}

func TestStopDrainsInFlightScan(t *testing.T) {
	client := &slowClient{}
	chain := config.ChainConfig{
		ChainID:         1,
		Family:          config.FamilyEVM,
		PollingInterval: 5 * time.Millisecond,
	}
	cfg := &config.Config{Chains: []config.ChainConfig{chain}}
	scanner := evmscan.NewScanner(client, chain, nil, zap.NewNop())
	eng := New(cfg, nil, map[uint64]*evmscan.Scanner{1: scanner}, nil, zap.NewNop())

	eng.Start()
	assert.True(t, eng.IsReady())

	// Stop while a scan is mid-flight; the scan must complete against a
	// live context rather than being cancelled under it.
	time.Sleep(15 * time.Millisecond)
	eng.Stop()
	assert.False(t, eng.IsReady())

	client.mu.Lock()
	defer client.mu.Unlock()
	require.NotEmpty(t, client.ctxErrs)
	for _, err := range client.ctxErrs {
		assert.NoError(t, err)
	}
}

func TestStopWithoutScanners(t *testing.T) {
	cfg := &config.Config{}
	eng := New(cfg, nil, nil, nil, zap.NewNop())

	eng.Start()
	eng.Stop()
	assert.False(t, eng.IsReady())
}
