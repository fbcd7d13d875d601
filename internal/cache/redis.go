package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements CacheBackend using Redis
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a new Redis cache from URL
// URL format: redis://[:password@]host:port/db
func NewRedisCache(redisURL string, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Connection pool settings
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (r *RedisCache) key(k string) string {
	return r.prefix + k
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client for use by other stores
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// RedisRateLimitStore implements RateLimitStore using a sorted set per key
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimitStore creates a new Redis rate limit store
func NewRedisRateLimitStore(client *redis.Client, prefix string) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		client: client,
		prefix: prefix + "ratelimit:",
	}
}

// Trims the window, counts, and records the event only when under the limit.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)
	if count >= limit then
		return {0, 0}
	end

	redis.call('ZADD', key, now, ARGV[5])
	redis.call('PEXPIRE', key, ttl_ms)
	return {1, limit - count - 1}
`)

func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10)

	res, err := allowScript.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixNano(),
		now.Add(-window).UnixNano(),
		limit,
		(window + time.Minute).Milliseconds(),
		member,
	).Int64Slice()
	if err != nil {
		slog.Error("redis rate limit error", "error", err)
		// Fail open so a Redis outage does not take audits down with it
		return true, limit, nil
	}
	if len(res) != 2 {
		return true, limit, nil
	}
	return res[0] == 1, int(res[1]), nil
}
