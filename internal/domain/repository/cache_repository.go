package repository

import (
	"context"
	"time"
)

// CacheStore is the port for the shared cache backend. Implementations
// must degrade gracefully: any backend fault is reported as a miss (or
// a no-op for writes), never as an error, so callers always fall back
// to the source of truth.
type CacheStore interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)

	// SetWithTTL stores a value with an expiry. Returns false if the
	// write could not be performed.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) bool

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) bool

	// DeleteMany removes the given keys and returns how many existed.
	DeleteMany(ctx context.Context, keys ...string) int
}

// PatternInvalidator is an optional capability of a CacheStore for
// wildcard invalidation of derived entries (resolved report payloads).
type PatternInvalidator interface {
	// DeleteByPattern removes every key matching the glob pattern and
	// returns how many were deleted.
	DeleteByPattern(ctx context.Context, pattern string) int
}
