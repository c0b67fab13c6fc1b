// Package evmscan extracts bridge events from EVM chains over JSON-RPC.
package evmscan

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/chainsafe/transfer-indexer/pkg/aggregator"
	"github.com/chainsafe/transfer-indexer/pkg/config"
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb"
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
	"github.com/chainsafe/transfer-indexer/pkg/ingest"
)

// Client is the JSON-RPC surface the scanner needs; *ethclient.Client
// satisfies it.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return client, nil
}

// Scanner extracts one chain's bridge events in contiguous block ranges,
// resuming from the persisted cursor.
type Scanner struct {
	client Client
	cfg    config.ChainConfig
	store  *indexerdb.Store
	logger *zap.Logger
}

// NewScanner creates a Scanner for one configured chain.
func NewScanner(client Client, cfg config.ChainConfig, store *indexerdb.Store, logger *zap.Logger) *Scanner {
	return &Scanner{
		client: client,
		cfg:    cfg,
		store:  store,
		logger: logger.With(zap.Uint64("chain_id", cfg.ChainID)),
	}
}

// Scan reads the next unscanned block range and returns it as a batch, or
// nil when the chain head has not advanced past the cursor.
func (s *Scanner) Scan(ctx context.Context) (*ingest.Batch, error) {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain head: %w", err)
	}

	from := s.cfg.StartBlock
	cursor, err := s.store.GetCursor(ctx, s.cfg.ChainID)
	if err != nil {
		return nil, err
	}
	if cursor != nil && cursor.LastScannedBlock >= from {
		from = cursor.LastScannedBlock + 1
	}
	if from > head {
		return nil, nil
	}

	to := head
	if s.cfg.BatchSize > 0 && to-from+1 > s.cfg.BatchSize {
		to = from + s.cfg.BatchSize - 1
	}

	var watermark uint64
	if head > s.cfg.ConfirmationBlocks {
		watermark = head - s.cfg.ConfirmationBlocks
	}
	if watermark > to {
		watermark = to
	}

	logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: s.watchedAddresses(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs %d-%d: %w", from, to, err)
	}

	timestamps, err := s.blockTimestamps(ctx, logs)
	if err != nil {
		return nil, err
	}

	batch := &ingest.Batch{
		ChainID:            s.cfg.ChainID,
		LastScannedBlock:   to,
		LastFinalisedBlock: watermark,
	}
	for _, log := range logs {
		if log.Removed || len(log.Topics) == 0 {
			continue
		}
		if err := s.decodeLog(batch, log, timestamps[log.BlockNumber]); err != nil {
			s.logger.Warn("Failed to decode log",
				zap.String("tx_hash", log.TxHash.Hex()),
				zap.Uint("log_index", log.Index),
				zap.Error(err))
		}
	}

	s.logger.Debug("Scanned block range",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Uint64("watermark", watermark),
		zap.Int("logs", len(logs)))
	return batch, nil
}

func (s *Scanner) watchedAddresses() []common.Address {
	var addrs []common.Address
	add := func(hex string) {
		if hex != "" {
			addrs = append(addrs, common.HexToAddress(hex))
		}
	}
	add(s.cfg.Contracts.AcrossSpokePool)
	add(s.cfg.Contracts.CctpTokenMessenger)
	add(s.cfg.Contracts.CctpMessageTransmitter)
	add(s.cfg.Contracts.CctpSponsorPeriphery)
	for _, adapter := range s.cfg.Contracts.OftAdapters {
		add(adapter)
	}
	return addrs
}

// blockTimestamps fetches the header timestamp for every block that carries
// a matched log, bounded to ReceiptChunkSize concurrent requests. The block
// set is snapshotted into a slice before any goroutine starts so the result
// map is only ever touched under the mutex.
func (s *Scanner) blockTimestamps(ctx context.Context, logs []types.Log) (map[uint64]time.Time, error) {
	seen := make(map[uint64]bool, len(logs))
	numbers := make([]uint64, 0, len(logs))
	for _, log := range logs {
		if !seen[log.BlockNumber] {
			seen[log.BlockNumber] = true
			numbers = append(numbers, log.BlockNumber)
		}
	}
	timestamps := make(map[uint64]time.Time, len(numbers))
	if len(numbers) == 0 {
		return timestamps, nil
	}

	chunk := s.cfg.ReceiptChunkSize
	if chunk <= 0 {
		chunk = 1
	}
	sem := make(chan struct{}, chunk)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for _, number := range numbers {
		wg.Add(1)
		sem <- struct{}{}
		go func(number uint64) {
			defer wg.Done()
			defer func() { <-sem }()

			header, err := s.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to get header %d: %w", number, err)
				}
				return
			}
			timestamps[number] = time.Unix(int64(header.Time), 0).UTC()
		}(number)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return timestamps, nil
}

func (s *Scanner) decodeLog(batch *ingest.Batch, log types.Log, timestamp time.Time) error {
	base := dao.ChainEventBase{
		ChainID:        s.cfg.ChainID,
		BlockNumber:    log.BlockNumber,
		TxHash:         log.TxHash.Hex(),
		LogIndex:       uint32(log.Index),
		BlockTimestamp: timestamp,
	}

	switch log.Topics[0] {
	case topicFundsDeposited:
		var ev fundsDepositedEvent
		if err := unpackLog(spokePool, &ev, "FundsDeposited", log); err != nil {
			return err
		}
		batch.AcrossDeposits = append(batch.AcrossDeposits, &dao.AcrossDepositDao{
			ChainEventBase:     base,
			UniqueID:           aggregator.AcrossUniqueID(s.cfg.ChainID, ev.DestinationChainId.Uint64(), ev.DepositId),
			DepositID:          ev.DepositId.String(),
			Depositor:          ev.Depositor.Hex(),
			Recipient:          ev.Recipient.Hex(),
			InputToken:         ev.InputToken.Hex(),
			OutputToken:        ev.OutputToken.Hex(),
			InputAmount:        ev.InputAmount.String(),
			OutputAmount:       ev.OutputAmount.String(),
			OriginChainID:      s.cfg.ChainID,
			DestinationChainID: ev.DestinationChainId.Uint64(),
		})

	case topicFilledRelay:
		var ev filledRelayEvent
		if err := unpackLog(spokePool, &ev, "FilledRelay", log); err != nil {
			return err
		}
		batch.AcrossFills = append(batch.AcrossFills, &dao.AcrossFillDao{
			ChainEventBase:     base,
			UniqueID:           aggregator.AcrossUniqueID(ev.OriginChainId.Uint64(), s.cfg.ChainID, ev.DepositId),
			DepositID:          ev.DepositId.String(),
			Relayer:            ev.Relayer.Hex(),
			Recipient:          ev.Recipient.Hex(),
			OutputToken:        ev.OutputToken.Hex(),
			OutputAmount:       ev.OutputAmount.String(),
			OriginChainID:      ev.OriginChainId.Uint64(),
			DestinationChainID: s.cfg.ChainID,
		})

	case topicDepositForBurn:
		var ev depositForBurnEvent
		if err := unpackLog(tokenMessenger, &ev, "DepositForBurn", log); err != nil {
			return err
		}
		batch.CctpBurns = append(batch.CctpBurns, &dao.CctpBurnDao{
			ChainEventBase:       base,
			Nonce:                int64(ev.Nonce),
			BurnToken:            ev.BurnToken.Hex(),
			Amount:               ev.Amount.String(),
			Depositor:            ev.Depositor.Hex(),
			MintRecipient:        hexutil.Encode(ev.MintRecipient[:]),
			SourceDomain:         s.cfg.CctpDomain,
			DestinationDomain:    ev.DestinationDomain,
			DestinationCaller:    hexutil.Encode(ev.DestinationCaller[:]),
			MinFinalityThreshold: ev.MinFinalityThreshold,
		})

	case topicMessageSent:
		var ev messageSentEvent
		if err := unpackLog(messageTransmitter, &ev, "MessageSent", log); err != nil {
			return err
		}
		source, destination, err := messageDomains(ev.Message)
		if err != nil {
			return err
		}
		batch.CctpMessageSents = append(batch.CctpMessageSents, &dao.CctpMessageSentDao{
			ChainEventBase:    base,
			Message:           ev.Message,
			MessageHash:       hexutil.Encode(crypto.Keccak256(ev.Message)),
			SourceDomain:      source,
			DestinationDomain: destination,
		})

	case topicMintAndWithdraw:
		var ev mintAndWithdrawEvent
		if err := unpackLog(tokenMessenger, &ev, "MintAndWithdraw", log); err != nil {
			return err
		}
		batch.CctpMints = append(batch.CctpMints, &dao.CctpMintDao{
			ChainEventBase: base,
			MintRecipient:  ev.MintRecipient.Hex(),
			MintToken:      ev.MintToken.Hex(),
			Amount:         ev.Amount.String(),
		})

	case topicMessageReceived:
		var ev messageReceivedEvent
		if err := unpackLog(messageTransmitter, &ev, "MessageReceived", log); err != nil {
			return err
		}
		batch.MessageReceiveds = append(batch.MessageReceiveds, &ingest.MessageReceived{
			TxHash:       base.TxHash,
			LogIndex:     base.LogIndex,
			Caller:       ev.Caller.Hex(),
			SourceDomain: ev.SourceDomain,
			Nonce:        int64(ev.Nonce),
		})

	case topicSponsoredBurn:
		var ev sponsoredBurnEvent
		if err := unpackLog(sponsorPeriphery, &ev, "SponsoredBurn", log); err != nil {
			return err
		}
		batch.CctpSponsoredBurns = append(batch.CctpSponsoredBurns, &dao.CctpSponsoredBurnDao{
			ChainEventBase: base,
			Sponsor:        ev.Sponsor.Hex(),
			Signature:      ev.Signature,
		})

	case topicOFTSent:
		var ev oftSentEvent
		if err := unpackLog(oft, &ev, "OFTSent", log); err != nil {
			return err
		}
		batch.OftSents = append(batch.OftSents, &dao.OftSentDao{
			ChainEventBase:   base,
			GUID:             hexutil.Encode(ev.Guid[:]),
			SrcEid:           s.cfg.OftEid,
			DstEid:           ev.DstEid,
			FromAddress:      ev.FromAddress.Hex(),
			AmountSentLD:     ev.AmountSentLD.String(),
			AmountReceivedLD: ev.AmountReceivedLD.String(),
		})

	case topicOFTReceived:
		var ev oftReceivedEvent
		if err := unpackLog(oft, &ev, "OFTReceived", log); err != nil {
			return err
		}
		batch.OftReceiveds = append(batch.OftReceiveds, &dao.OftReceivedDao{
			ChainEventBase:   base,
			GUID:             hexutil.Encode(ev.Guid[:]),
			SrcEid:           ev.SrcEid,
			ToAddress:        ev.ToAddress.Hex(),
			AmountReceivedLD: ev.AmountReceivedLD.String(),
		})
	}
	return nil
}
