package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// FinalizerJobDao maps to the 'finalizer_jobs' table: one row per burn
// event submitted for attestation, unique per burn_event_id. The row is
// the durability mechanism for published finalization instructions; the
// transport itself is fire-and-forget.
type FinalizerJobDao struct {
	bun.BaseModel `bun:"table:finalizer_jobs,alias:fj"`

	ID               int64     `bun:"id,pk,autoincrement"`
	BurnEventID      int64     `bun:"burn_event_id,unique,notnull"`
	Attestation      string    `bun:"attestation,notnull,type:text"`
	Message          []byte    `bun:"message,notnull,type:bytea"`
	SponsoredEventID *int64    `bun:"sponsored_event_id"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
	LastPublishedAt  time.Time `bun:"last_published_at,notnull"`
}
