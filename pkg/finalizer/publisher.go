package finalizer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PublishRequest is one finalization instruction handed to relay
// infrastructure: the attested message plus the sponsor signature when the
// burn was sponsored.
type PublishRequest struct {
	ID                 uuid.UUID
	BurnEventID        int64
	SourceDomain       uint32
	DestinationDomain  uint32
	DestinationChainID uint64
	TxHash             string
	Message            []byte
	Attestation        string
	SponsorSignature   []byte
}

// Publisher delivers finalization instructions to whatever executes them
// on the destination chain.
type Publisher interface {
	Publish(ctx context.Context, req *PublishRequest) error
}

// LogPublisher writes finalization instructions to the structured log
// instead of a transport. It stands in for a real relay integration in
// deployments that only index.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the instruction and succeeds.
func (p *LogPublisher) Publish(_ context.Context, req *PublishRequest) error {
	p.logger.Info("Publishing finalization instruction",
		zap.String("request_id", req.ID.String()),
		zap.Int64("burn_event_id", req.BurnEventID),
		zap.Uint32("source_domain", req.SourceDomain),
		zap.Uint32("destination_domain", req.DestinationDomain),
		zap.Uint64("destination_chain_id", req.DestinationChainID),
		zap.String("tx_hash", req.TxHash),
		zap.Int("message_bytes", len(req.Message)),
		zap.Bool("sponsored", len(req.SponsorSignature) > 0))
	return nil
}
