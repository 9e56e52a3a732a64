package cache

import (
	"context"
	"testing"
	"time"

	"salonq/internal/models"

	"github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T, ttl time.Duration) (*QueueStatusCache, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	client := NewClient(srv.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	return NewQueueStatusCache(client, ttl), srv
}

func TestSetAndGet(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	status := models.QueueStatus{CurrentToken: 3, LastIssuedToken: 7, QueueLength: 4, TotalWaitTimeMinutes: 95}
	if err := cache.Set(ctx, 1, status); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, found, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if got != status {
		t.Fatalf("got %+v, want %+v", got, status)
	}
}

func TestGetMiss(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	_, found, err := cache.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected cache miss")
	}
}

func TestInvalidate(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, 1, models.QueueStatus{QueueLength: 2}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	_, found, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected miss after invalidation")
	}
}

func TestTTLExpiry(t *testing.T) {
	cache, srv := newTestCache(t, time.Second)
	ctx := context.Background()

	if err := cache.Set(ctx, 1, models.QueueStatus{QueueLength: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	srv.FastForward(2 * time.Second)

	_, found, err := cache.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected miss after TTL expiry")
	}
}

func TestNilClientDisablesCache(t *testing.T) {
	cache := NewQueueStatusCache(nil, time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, 1, models.QueueStatus{}); err != nil {
		t.Fatalf("set on nil client: %v", err)
	}
	_, found, err := cache.Get(ctx, 1)
	if err != nil || found {
		t.Fatalf("expected silent miss, got found=%v err=%v", found, err)
	}
	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate on nil client: %v", err)
	}
}
