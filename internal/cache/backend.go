// Package cache holds the storage backends shared by the report cache and the
// rate limiter: an in-process map for single instances and Redis for fleets.
package cache

import (
	"context"
	"time"
)

// CacheBackend defines the interface for cache implementations
type CacheBackend interface {
	// Get retrieves a value from the cache
	// Returns (value, found, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value in the cache with the given TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Close releases background workers or connections
	Close() error
}

// RateLimitStore counts events per key over a sliding window
type RateLimitStore interface {
	// Allow records one event for key and reports whether it is within limit.
	// remaining is how many more events the window accepts.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}
