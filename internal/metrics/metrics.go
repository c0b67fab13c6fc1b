package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsStored counts chain event writes by write classification
	EventsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_stored_total",
			Help: "Total number of chain event writes by outcome",
		},
		[]string{"chain", "protocol", "outcome"},
	)

	// EventsRetracted counts events soft-deleted by reorg handling
	EventsRetracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_retracted_total",
			Help: "Total number of chain events retracted by reorgs",
		},
		[]string{"chain", "protocol"},
	)

	// TransfersTotal counts canonical transfer creations and status changes
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_transfers_total",
			Help: "Total number of canonical transfer status transitions",
		},
		[]string{"protocol", "status"},
	)

	// TransferAmount tracks the amount moved per transfer
	TransferAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexer_transfer_amount",
			Help:    "Amount of tokens transferred",
			Buckets: []float64{1e6, 1e7, 1e8, 1e9, 1e10, 1e12, 1e15, 1e18, 1e21},
		},
		[]string{"protocol"},
	)

	// UnmatchedPairs counts incomplete same-transaction event pairs
	UnmatchedPairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_unmatched_pairs_total",
			Help: "Total number of events left without a same-transaction partner",
		},
		[]string{"chain", "kind", "side"},
	)

	// FinalizerPublished counts finalization instructions published
	FinalizerPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_finalizer_published_total",
			Help: "Total number of finalization messages published",
		},
		[]string{"pass"},
	)

	// FinalizerSkipped counts finalizer items deferred or dropped per tick
	FinalizerSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_finalizer_skipped_total",
			Help: "Total number of finalizer items skipped by reason",
		},
		[]string{"reason"},
	)

	// ErrorsTotal counts errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// LastFinalisedBlock tracks the finality watermark per chain
	LastFinalisedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_last_finalised_block",
			Help: "Finality watermark by chain",
		},
		[]string{"chain"},
	)

	// LastScannedBlock tracks scan progress per chain
	LastScannedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_last_scanned_block",
			Help: "Last scanned block number by chain",
		},
		[]string{"chain"},
	)

	// ScanDuration tracks one scan cycle's wall time
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexer_scan_duration_seconds",
			Help:    "Scan cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)
)
