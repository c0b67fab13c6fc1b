package pgutil

import (
	"context"
	"hash/fnv"

	"github.com/uptrace/bun"
)

// LockKey maps an arbitrary string key onto the bigint keyspace used by
// Postgres advisory locks. The mapping must be stable across processes:
// every writer of the same logical key has to land on the same lock.
func LockKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

// AdvisoryXactLock acquires a transaction-scoped advisory lock for key.
// The lock is released automatically when the enclosing transaction commits
// or rolls back. Callers block until the lock is granted; contention is
// scoped to a single logical key so waits resolve quickly.
func AdvisoryXactLock(ctx context.Context, tx bun.Tx, key string) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", LockKey(key))
	return err
}
