package quota_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/quota"
	"plaques2gallery/internal/testsupport"
)

const redisPrefix = "test:quota"

func newRedisBackend(t *testing.T) (*quota.RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	backend, err := quota.NewRedisBackend(context.Background(), "redis://"+server.Addr()+"/0", redisPrefix, 48*time.Hour)
	if err != nil {
		t.Fatalf("NewRedisBackend failed: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend, server
}

func TestRedisCounterNeverExceedsLimitUnderConcurrency(t *testing.T) {
	backend, _ := newRedisBackend(t)
	counter := quota.New(backend, 20, 24*time.Hour, time.UTC)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := counter.TryAcquire(ctx)
			if err != nil {
				t.Errorf("TryAcquire failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 20 {
		t.Fatalf("expected 20 acquisitions, got %d", acquired)
	}
	usage, err := counter.Usage(ctx)
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if usage.Used != 20 || usage.Limit != 20 {
		t.Fatalf("unexpected usage %#v", usage)
	}
}

func TestRedisReleaseAndExhaust(t *testing.T) {
	backend, server := newRedisBackend(t)
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	counter := quota.New(backend, 5, 24*time.Hour, time.UTC, quota.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if usage, err := counter.Usage(ctx); err != nil || usage.Used != 0 {
		t.Fatalf("expected empty window, usage=%#v err=%v", usage, err)
	}

	lease, ok, err := counter.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("TryAcquire: ok=%v err=%v", ok, err)
	}
	key := redisPrefix + ":" + strconv.FormatInt(lease.WindowStart.Unix(), 10)
	if got, err := server.Get(key); err != nil || got != "1" {
		t.Fatalf("expected counter key %s = 1, got %q (%v)", key, got, err)
	}
	if ttl := server.TTL(key); ttl != 48*time.Hour {
		t.Fatalf("expected key to expire after 48h, got %s", ttl)
	}

	if err := counter.Release(ctx, lease); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := counter.Release(ctx, lease); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
	if remaining, _ := counter.Remaining(ctx); remaining != 5 {
		t.Fatalf("release must not go below zero, remaining=%d", remaining)
	}

	if err := counter.Exhaust(ctx); err != nil {
		t.Fatalf("Exhaust failed: %v", err)
	}
	if _, ok, _ := counter.TryAcquire(ctx); ok {
		t.Fatal("expected exhausted window to refuse")
	}
	if usage, _ := counter.Usage(ctx); usage.Used != 5 {
		t.Fatalf("expected usage pinned to the limit, got %d", usage.Used)
	}

	now = now.Add(24 * time.Hour)
	if _, ok, _ := counter.TryAcquire(ctx); !ok {
		t.Fatal("expected the next window to start fresh")
	}
}

func TestNewFromConfigSelectsRedisBackend(t *testing.T) {
	server := miniredis.RunT(t)
	cfg := testsupport.NewConfig(t)
	cfg.Quota.Backend = config.QuotaBackendRedis
	cfg.Quota.RedisURL = "redis://" + server.Addr() + "/0"
	cfg.Quota.Limit = 2

	counter, closeFn, err := quota.NewFromConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	defer closeFn()

	for i := 0; i < 2; i++ {
		if _, ok, err := counter.TryAcquire(context.Background()); err != nil || !ok {
			t.Fatalf("acquire %d: ok=%v err=%v", i, ok, err)
		}
	}
	if _, ok, _ := counter.TryAcquire(context.Background()); ok {
		t.Fatal("expected shared limit to hold")
	}
	if keys := server.Keys(); len(keys) != 1 {
		t.Fatalf("expected one window key, got %v", keys)
	}

	server.Close()
	if _, _, err := quota.NewFromConfig(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected an error when redis is unreachable")
	}
}
