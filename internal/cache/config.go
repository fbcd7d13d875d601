package cache

import "time"

// CacheConfig holds cache sizing and TTL configuration
type CacheConfig struct {
	ReportTTL       time.Duration
	RateLimitWindow time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
	KeyPrefix       string
}

// DefaultCacheConfig returns sensible defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ReportTTL:       5 * time.Minute, // Pages change; keep reports short-lived
		RateLimitWindow: 1 * time.Minute,
		MaxEntries:      10000,
		CleanupInterval: 2 * time.Minute,
		KeyPrefix:       "a11y:",
	}
}
