package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := NewRedisCache("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	return c, s
}

func TestNewRedisCache(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	c, err := NewRedisCache("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisCache failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestGetOrComputeMissThenHit(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	computes := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computes++
		return []byte(`["a","b"]`), nil
	}

	first, err := c.GetOrCompute(ctx, "key-1", 30*time.Second, compute)
	if err != nil {
		t.Fatalf("first GetOrCompute failed: %v", err)
	}
	second, err := c.GetOrCompute(ctx, "key-1", 30*time.Second, compute)
	if err != nil {
		t.Fatalf("second GetOrCompute failed: %v", err)
	}

	if computes != 1 {
		t.Errorf("expected 1 compute, got %d", computes)
	}
	if string(first) != string(second) {
		t.Errorf("cached value differs: %q vs %q", first, second)
	}
}

func TestGetOrComputeRecomputesAfterTTL(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	computes := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computes++
		return []byte("value"), nil
	}

	if _, err := c.GetOrCompute(ctx, "key-ttl", 30*time.Second, compute); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	// Fast-forward time in miniredis past the TTL
	s.FastForward(31 * time.Second)

	if _, err := c.GetOrCompute(ctx, "key-ttl", 30*time.Second, compute); err != nil {
		t.Fatalf("GetOrCompute after expiry failed: %v", err)
	}
	if computes != 2 {
		t.Errorf("expected recompute after TTL, got %d computes", computes)
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	wantErr := errors.New("resolution failed")
	_, err := c.GetOrCompute(ctx, "key-err", 30*time.Second, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected compute error, got %v", err)
	}

	// A failed compute must not leave anything behind
	value, err := c.GetOrCompute(ctx, "key-err", 30*time.Second, func(ctx context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute after error failed: %v", err)
	}
	if string(value) != "ok" {
		t.Errorf("expected fresh compute, got %q", value)
	}
}

func TestGetOrComputeKeysAreIsolated(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	for _, kv := range []struct{ key, value string }{
		{"user-1|doc:a", "one"},
		{"user-2|doc:a", "two"},
	} {
		kv := kv
		got, err := c.GetOrCompute(ctx, kv.key, time.Minute, func(ctx context.Context) ([]byte, error) {
			return []byte(kv.value), nil
		})
		if err != nil {
			t.Fatalf("GetOrCompute(%s) failed: %v", kv.key, err)
		}
		if string(got) != kv.value {
			t.Errorf("GetOrCompute(%s) = %q, want %q", kv.key, got, kv.value)
		}
	}
}

func TestNoopAlwaysComputes(t *testing.T) {
	n := NewNoop()
	ctx := context.Background()
	computes := 0
	compute := func(ctx context.Context) ([]byte, error) {
		computes++
		return []byte("x"), nil
	}

	for i := 0; i < 3; i++ {
		if _, err := n.GetOrCompute(ctx, "same-key", time.Minute, compute); err != nil {
			t.Fatalf("Noop GetOrCompute failed: %v", err)
		}
	}
	if computes != 3 {
		t.Errorf("Noop should always compute, got %d computes for 3 calls", computes)
	}
}
