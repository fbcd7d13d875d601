package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryCache implements CacheBackend using sync.Map
type MemoryCache struct {
	data            sync.Map
	maxSize         int
	cleanupInterval time.Duration
	stopCh          chan struct{}
	closeOnce       sync.Once
}

type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxSize int, cleanupInterval time.Duration) *MemoryCache {
	mc := &MemoryCache{
		maxSize:         maxSize,
		cleanupInterval: cleanupInterval,
		stopCh:          make(chan struct{}),
	}
	go mc.cleanupLoop()
	return mc
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := m.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*memoryCacheEntry)
	if time.Now().After(entry.expiresAt) {
		m.data.Delete(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data.Store(key, &memoryCacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

func (m *MemoryCache) Close() error {
	m.closeOnce.Do(func() { close(m.stopCh) })
	return nil
}

func (m *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

type keyExpiry struct {
	key       string
	expiresAt time.Time
}

func (m *MemoryCache) cleanup() {
	now := time.Now()
	var entries []keyExpiry

	// Remove expired entries and collect remaining
	m.data.Range(func(key, value any) bool {
		k := key.(string)
		entry := value.(*memoryCacheEntry)
		if now.After(entry.expiresAt) {
			m.data.Delete(k)
		} else {
			entries = append(entries, keyExpiry{k, entry.expiresAt})
		}
		return true
	})

	// Enforce max size by removing the entries closest to expiry
	if len(entries) > m.maxSize {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].expiresAt.Before(entries[j].expiresAt)
		})
		for _, e := range entries[:len(entries)-m.maxSize] {
			m.data.Delete(e.key)
		}
	}
}

// MemoryRateLimitStore implements RateLimitStore with per-key timestamp buckets
type MemoryRateLimitStore struct {
	buckets   sync.Map // map[string]*rateLimitBucket
	stopCh    chan struct{}
	closeOnce sync.Once
}

type rateLimitBucket struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// NewMemoryRateLimitStore creates a new in-memory rate limit store
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	store := &MemoryRateLimitStore{
		stopCh: make(chan struct{}),
	}
	go store.cleanupLoop()
	return store
}

func (s *MemoryRateLimitStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	val, _ := s.buckets.LoadOrStore(key, &rateLimitBucket{})
	bucket := val.(*rateLimitBucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-window)

	valid := bucket.timestamps[:0]
	for _, t := range bucket.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= limit {
		bucket.timestamps = valid
		return false, 0, nil
	}

	bucket.timestamps = append(valid, now)
	return true, limit - len(bucket.timestamps), nil
}

// Close stops the cleanup goroutine
func (s *MemoryRateLimitStore) Close() {
	s.closeOnce.Do(func() { close(s.stopCh) })
}

func (s *MemoryRateLimitStore) cleanupLoop() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryRateLimitStore) cleanup() {
	cutoff := time.Now().Add(-1 * time.Hour) // Clean buckets with no recent activity
	s.buckets.Range(func(key, value any) bool {
		bucket := value.(*rateLimitBucket)
		bucket.mu.Lock()
		idle := true
		for _, t := range bucket.timestamps {
			if t.After(cutoff) {
				idle = false
				break
			}
		}
		bucket.mu.Unlock()
		if idle {
			s.buckets.Delete(key)
		}
		return true
	})
}
