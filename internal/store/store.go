// Package store defines the persistence boundary of the orchestration
// core: a fast key-value cache for counters/results/stats and a durable,
// append-only ledger that is the source of truth for cost.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/waynewangyuxuan/graphex-aicore/internal/domain"
)

// ErrNotFound is a sentinel for "absent" results. None of the KVStore or
// Ledger implementations in this module returns it: Get reports a missing
// key with ok=false.
var ErrNotFound = errors.New("store: not found")

// KVStore is the fast counter/result/stats cache boundary described in
// spec §6: GET, SET with TTL, atomic INCRBYFLOAT, and FLUSHALL (tests
// only). Redis is the reference implementation (internal/store/rediscache);
// MemKVStore (memory.go, this package) provides an in-process double for tests that don't
// need miniredis.
type KVStore interface {
	// Get returns the stored string value, or ok=false if the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key with the given TTL. ttl<=0 means no
	// expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// SetIfAbsent stores value under key only if key does not already
	// exist, returning ok=false if it was already present (used for the
	// result cache's set-once semantics).
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (ok bool, err error)

	// IncrByFloat atomically adds delta to the float stored at key
	// (treating an absent key as 0) and returns the new value. If ttl>0
	// and the key did not previously exist, the new key is given that
	// TTL.
	IncrByFloat(ctx context.Context, key string, delta float64, ttl time.Duration) (float64, error)

	// FlushAll clears the entire keyspace. Tests only.
	FlushAll(ctx context.Context) error
}

// Ledger is the durable, append-only record of LLM usage — the source of
// truth for cost. Counter caches are a derived, TTL-bounded materialized
// view reconstructed from the Ledger on cache miss.
type Ledger interface {
	// Append writes one immutable usage record. Never mutated afterward.
	Append(ctx context.Context, rec domain.UsageRecord) error

	// SumCostSince returns the total cost of all records for userID with
	// Timestamp >= since. Used to reconstruct counter cache entries.
	SumCostSince(ctx context.Context, userID string, since time.Time) (float64, error)

	// RecordsSince returns all usage records for userID with Timestamp >=
	// since, for read-only aggregations (getUserSummary, getCostBreakdown).
	RecordsSince(ctx context.Context, userID string, since time.Time) ([]domain.UsageRecord, error)
}
