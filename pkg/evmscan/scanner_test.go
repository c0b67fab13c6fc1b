package evmscan

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/transfer-indexer/pkg/config"
	"github.com/chainsafe/transfer-indexer/pkg/ingest"
)

type stubClient struct {
	blockNumberFn    func(ctx context.Context) (uint64, error)
	filterLogsFn     func(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	headerByNumberFn func(ctx context.Context, number *big.Int) (*types.Header, error)
}

func (c *stubClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.blockNumberFn(ctx)
}

func (c *stubClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.filterLogsFn(ctx, q)
}

func (c *stubClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.headerByNumberFn(ctx, number)
}

func TestBlockTimestampsCoversEveryBlock(t *testing.T) {
	client := &stubClient{
		headerByNumberFn: func(_ context.Context, number *big.Int) (*types.Header, error) {
			return &types.Header{Time: number.Uint64() * 10}, nil
		},
	}
	s := NewScanner(client, config.ChainConfig{ChainID: 1, ReceiptChunkSize: 4}, nil, zap.NewNop())

	// Several logs per block across enough blocks to keep the chunked
	// header fetchers running concurrently.
	var logs []types.Log
	for block := uint64(100); block < 150; block++ {
		for i := 0; i < 3; i++ {
			logs = append(logs, types.Log{BlockNumber: block})
		}
	}

	timestamps, err := s.blockTimestamps(context.Background(), logs)
	require.NoError(t, err)
	require.Len(t, timestamps, 50)
	for block := uint64(100); block < 150; block++ {
		assert.Equal(t, time.Unix(int64(block*10), 0).UTC(), timestamps[block])
	}
}

func TestBlockTimestampsEmptyLogs(t *testing.T) {
	s := NewScanner(&stubClient{}, config.ChainConfig{ChainID: 1}, nil, zap.NewNop())

	timestamps, err := s.blockTimestamps(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, timestamps)
}

func TestBlockTimestampsSurfacesHeaderError(t *testing.T) {
	client := &stubClient{
		headerByNumberFn: func(_ context.Context, number *big.Int) (*types.Header, error) {
			if number.Uint64() == 105 {
				return nil, errors.New("header unavailable")
			}
			return &types.Header{Time: 1}, nil
		},
	}
	s := NewScanner(client, config.ChainConfig{ChainID: 1, ReceiptChunkSize: 4}, nil, zap.NewNop())

	var logs []types.Log
	for block := uint64(100); block < 110; block++ {
		logs = append(logs, types.Log{BlockNumber: block})
	}

	_, err := s.blockTimestamps(context.Background(), logs)
	require.ErrorContains(t, err, "header unavailable")
}

func TestDecodeLogOFTSentStampsSourceEid(t *testing.T) {
	s := NewScanner(&stubClient{}, config.ChainConfig{ChainID: 1, OftEid: 30101}, nil, zap.NewNop())

	guid := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	from := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	data, err := oft.Events["OFTSent"].Inputs.NonIndexed().Pack(
		uint32(30184), big.NewInt(1000000), big.NewInt(999000))
	require.NoError(t, err)

	log := types.Log{
		BlockNumber: 120,
		TxHash:      common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333333"),
		Index:       7,
		Topics: []common.Hash{
			topicOFTSent,
			guid,
			common.BytesToHash(common.LeftPadBytes(from.Bytes(), 32)),
		},
		Data: data,
	}

	batch := &ingest.Batch{ChainID: 1}
	require.NoError(t, s.decodeLog(batch, log, time.Unix(1700000000, 0).UTC()))
	require.Len(t, batch.OftSents, 1)

	sent := batch.OftSents[0]
	assert.Equal(t, uint32(30101), sent.SrcEid)
	assert.Equal(t, uint32(30184), sent.DstEid)
	assert.Equal(t, guid.Hex(), sent.GUID)
	assert.Equal(t, from.Hex(), sent.FromAddress)
}
