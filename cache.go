package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"a11y-server/internal/audit"
	"a11y-server/internal/cache"
	"a11y-server/internal/config"
)

var (
	// Cache backend (memory or redis)
	cacheBackend cache.CacheBackend

	// Per-client request limiter for the check endpoints
	rateLimitStore cache.RateLimitStore

	// Cache configuration
	cacheConfig cache.CacheConfig

	// Cache backend type for health reporting
	cacheBackendType string // "redis" or "memory"
)

// InitCaches initializes caches with Redis if a URL is configured, otherwise memory
func InitCaches(cfg *config.ServerConfig) error {
	cacheConfig = cache.DefaultCacheConfig()
	cacheConfig.ReportTTL = time.Duration(cfg.ReportCacheTTL)

	if cfg.RedisURL != "" {
		slog.Info("initializing Redis cache")
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cacheConfig.KeyPrefix)
		if err != nil {
			slog.Warn("Redis connection failed, using memory cache", "error", err)
			initMemoryCaches()
			return nil
		}

		cacheBackend = redisCache
		cacheBackendType = "redis"
		rateLimitStore = cache.NewRedisRateLimitStore(redisCache.Client(), cacheConfig.KeyPrefix)

		slog.Info("Redis cache initialized")
		return nil
	}

	initMemoryCaches()
	return nil
}

func initMemoryCaches() {
	slog.Info("initializing in-memory cache")

	cacheBackend = cache.NewMemoryCache(cacheConfig.MaxEntries, cacheConfig.CleanupInterval)
	cacheBackendType = "memory"
	rateLimitStore = cache.NewMemoryRateLimitStore()
}

// ReportCache provides typed access to cached reports
type ReportCache struct {
	backend cache.CacheBackend
	ttl     time.Duration
}

func NewReportCache(backend cache.CacheBackend, ttl time.Duration) *ReportCache {
	return &ReportCache{backend: backend, ttl: ttl}
}

func reportKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "report:" + hex.EncodeToString(sum[:])
}

// Get returns a cached report for url. Backend errors count as a miss.
func (c *ReportCache) Get(ctx context.Context, url string) (audit.Report, bool) {
	data, found, err := c.backend.Get(ctx, reportKey(url))
	if err != nil {
		slog.Warn("report cache get failed", "error", err)
		cacheMissesTotal.Add(1)
		return audit.Report{}, false
	}
	if !found {
		cacheMissesTotal.Add(1)
		return audit.Report{}, false
	}

	var report audit.Report
	if err := json.Unmarshal(data, &report); err != nil {
		slog.Warn("discarding undecodable cached report", "error", err)
		c.backend.Delete(ctx, reportKey(url))
		cacheMissesTotal.Add(1)
		return audit.Report{}, false
	}
	cacheHitsTotal.Add(1)
	return report, true
}

// Set stores a successful report. Failed fetches are never cached.
func (c *ReportCache) Set(ctx context.Context, report audit.Report) {
	if c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		slog.Error("failed to encode report for cache", "error", err)
		return
	}
	if err := c.backend.Set(ctx, reportKey(report.URL), data, c.ttl); err != nil {
		slog.Warn("report cache set failed", "error", err)
	}
}
