// Package engine runs the per-chain scan loops and the finalizer loop as
// one supervised unit.
package engine

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainsafe/transfer-indexer/internal/metrics"
	"github.com/chainsafe/transfer-indexer/pkg/config"
	"github.com/chainsafe/transfer-indexer/pkg/evmscan"
	"github.com/chainsafe/transfer-indexer/pkg/finalizer"
	"github.com/chainsafe/transfer-indexer/pkg/ingest"
)

// Engine owns the background loops of the indexer: one scan loop per
// configured chain plus the finalizer tick loop when enabled.
type Engine struct {
	instanceID uuid.UUID
	cfg        *config.Config
	ingestor   *ingest.Ingestor
	scanners   map[uint64]*evmscan.Scanner
	scheduler  *finalizer.Scheduler
	logger     *zap.Logger

	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup
	ready  atomic.Bool
}

// New creates an Engine. scheduler may be nil when the finalizer is
// disabled.
func New(cfg *config.Config, ingestor *ingest.Ingestor, scanners map[uint64]*evmscan.Scanner,
	scheduler *finalizer.Scheduler, logger *zap.Logger) *Engine {
	return &Engine{
		instanceID: uuid.New(),
		cfg:        cfg,
		ingestor:   ingestor,
		scanners:   scanners,
		scheduler:  scheduler,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the background loops and returns immediately.
func (e *Engine) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.logger.Info("Starting indexer engine",
		zap.String("instance_id", e.instanceID.String()),
		zap.Int("chains", len(e.scanners)))

	for _, chain := range e.cfg.Chains {
		scanner, ok := e.scanners[chain.ChainID]
		if !ok {
			e.logger.Warn("No scanner for configured chain",
				zap.Uint64("chain_id", chain.ChainID),
				zap.String("family", string(chain.Family)))
			continue
		}
		e.wg.Add(1)
		go e.scanLoop(ctx, chain, scanner)
	}

	if e.scheduler != nil {
		e.wg.Add(1)
		go e.finalizerLoop(ctx)
	}

	e.ready.Store(true)
}

// Stop signals every loop and waits for them to drain. The context is
// cancelled only after the wait so an in-flight scan or tick finishes its
// writes instead of being interrupted mid-batch.
func (e *Engine) Stop() {
	e.ready.Store(false)
	close(e.stopCh)
	e.wg.Wait()
	if e.cancel != nil {
		e.cancel()
	}
	e.logger.Info("Indexer engine stopped")
}

// IsReady reports whether the background loops are running.
func (e *Engine) IsReady() bool {
	return e.ready.Load()
}

func (e *Engine) scanLoop(ctx context.Context, chain config.ChainConfig, scanner *evmscan.Scanner) {
	defer e.wg.Done()

	label := strconv.FormatUint(chain.ChainID, 10)
	ticker := time.NewTicker(chain.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			start := time.Now()
			batch, err := scanner.Scan(ctx)
			if err != nil {
				e.logger.Error("Scan cycle failed",
					zap.Uint64("chain_id", chain.ChainID),
					zap.Error(err))
				metrics.ErrorsTotal.WithLabelValues("scanner", "scan").Inc()
				continue
			}
			if batch == nil {
				continue
			}
			if err := e.ingestor.ProcessBatch(ctx, batch); err != nil {
				e.logger.Error("Batch ingestion failed",
					zap.Uint64("chain_id", chain.ChainID),
					zap.Error(err))
				metrics.ErrorsTotal.WithLabelValues("ingestor", "process_batch").Inc()
				continue
			}
			metrics.ScanDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		}
	}
}

func (e *Engine) finalizerLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Finalizer.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if err := e.scheduler.Tick(ctx); err != nil {
				e.logger.Error("Finalizer tick failed", zap.Error(err))
				metrics.ErrorsTotal.WithLabelValues("finalizer", "tick").Inc()
			}
		}
	}
}
