package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryCacheGetSet(t *testing.T) {
	mc := NewMemoryCache(10, time.Hour)
	defer mc.Close()
	ctx := context.Background()

	if _, found, _ := mc.Get(ctx, "missing"); found {
		t.Error("expected miss for unknown key")
	}

	if err := mc.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found, err := mc.Get(ctx, "k")
	if err != nil || !found || string(val) != "v" {
		t.Errorf("Get = %q, %v, %v", val, found, err)
	}

	mc.Delete(ctx, "k")
	if _, found, _ := mc.Get(ctx, "k"); found {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache(10, time.Hour)
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "short", []byte("x"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, found, _ := mc.Get(ctx, "short"); found {
		t.Error("expired entry was returned")
	}
}

func TestMemoryCacheCleanupEnforcesMaxSize(t *testing.T) {
	mc := NewMemoryCache(3, time.Hour)
	defer mc.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mc.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Duration(i+1)*time.Minute)
	}
	mc.cleanup()

	// The two entries closest to expiry are evicted first.
	for i := 0; i < 5; i++ {
		_, found, _ := mc.Get(ctx, fmt.Sprintf("k%d", i))
		if want := i >= 2; found != want {
			t.Errorf("k%d found = %v, want %v", i, found, want)
		}
	}
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	mc := NewMemoryCache(1, time.Hour)
	mc.Close()
	mc.Close()
}

func TestMemoryRateLimitStore(t *testing.T) {
	store := NewMemoryRateLimitStore()
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, err := store.Allow(ctx, "1.2.3.4", 3, time.Minute)
		if err != nil || !allowed {
			t.Fatalf("request %d rejected: %v", i, err)
		}
		if remaining != 2-i {
			t.Errorf("request %d remaining = %d, want %d", i, remaining, 2-i)
		}
	}

	if allowed, remaining, _ := store.Allow(ctx, "1.2.3.4", 3, time.Minute); allowed || remaining != 0 {
		t.Errorf("fourth request allowed=%v remaining=%d, want rejected", allowed, remaining)
	}

	if allowed, _, _ := store.Allow(ctx, "5.6.7.8", 3, time.Minute); !allowed {
		t.Error("other keys should have independent buckets")
	}
}

func TestMemoryRateLimitWindowSlides(t *testing.T) {
	store := NewMemoryRateLimitStore()
	defer store.Close()
	ctx := context.Background()

	store.Allow(ctx, "k", 1, 10*time.Millisecond)
	if allowed, _, _ := store.Allow(ctx, "k", 1, 10*time.Millisecond); allowed {
		t.Fatal("second request inside window should be rejected")
	}
	time.Sleep(20 * time.Millisecond)
	if allowed, _, _ := store.Allow(ctx, "k", 1, 10*time.Millisecond); !allowed {
		t.Error("request after window should be allowed")
	}
}
