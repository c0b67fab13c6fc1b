package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chainsafe/transfer-indexer/pkg/aggregator"
	"github.com/chainsafe/transfer-indexer/pkg/config"
	"github.com/chainsafe/transfer-indexer/pkg/engine"
	"github.com/chainsafe/transfer-indexer/pkg/evmscan"
	"github.com/chainsafe/transfer-indexer/pkg/finalizer"
	"github.com/chainsafe/transfer-indexer/pkg/indexerdb"
	"github.com/chainsafe/transfer-indexer/pkg/ingest"
	"github.com/chainsafe/transfer-indexer/pkg/pgutil"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Indexer exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return err
	}
	store := indexerdb.NewStore(db)
	defer store.Close() //nolint:errcheck

	agg := aggregator.New(db, logger)
	ingestor := ingest.NewIngestor(store, agg, cfg.Chains, logger)

	ctx := context.Background()
	scanners := make(map[uint64]*evmscan.Scanner, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		if chain.Family != config.FamilyEVM {
			logger.Warn("Skipping chain with unsupported family",
				zap.Uint64("chain_id", chain.ChainID),
				zap.String("family", string(chain.Family)))
			continue
		}
		client, err := evmscan.Dial(ctx, chain.RPCURL)
		if err != nil {
			return err
		}
		scanners[chain.ChainID] = evmscan.NewScanner(client, chain, store, logger)
	}

	var scheduler *finalizer.Scheduler
	if cfg.Finalizer.Enabled {
		attestor := finalizer.NewAttestationClient(
			cfg.Finalizer.AttestationURL, cfg.Finalizer.Production, cfg.Finalizer.RequestTimeout)
		publisher := finalizer.NewLogPublisher(logger)
		scheduler = finalizer.NewScheduler(store, attestor, publisher, cfg.Finalizer, cfg.Chains, logger)
	}

	eng := engine.New(cfg, ingestor, scanners, scheduler, logger)
	eng.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           newRouter(store, eng),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	var metricsServer *http.Server
	if cfg.Monitoring.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("Starting metrics server", zap.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}
	eng.Stop()
	return nil
}

func newRouter(store *indexerdb.Store, eng *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := &handlers{store: store, engine: eng}
	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/transfers", h.listTransfers)
		r.Get("/transfers/{uniqueID}", h.getTransfer)
	})
	return r
}
