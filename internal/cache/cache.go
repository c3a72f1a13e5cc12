// Package cache provides the result cache used by hot-path access checks.
package cache

import (
	"context"
	"time"
)

// ComputeFn produces the value to cache on a miss.
type ComputeFn func(ctx context.Context) ([]byte, error)

// Cache is a compute-once, share-result, evict-after-TTL memoization port.
// Implementations must be safe for concurrent use. Staleness up to the TTL
// is acceptable by contract; there is no explicit invalidation.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFn) ([]byte, error)
}

// Noop always recomputes. Used in tests and when no cache backend is
// configured.
type Noop struct{}

// NewNoop creates a pass-through cache
func NewNoop() *Noop {
	return &Noop{}
}

// GetOrCompute invokes compute directly without storing anything
func (n *Noop) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFn) ([]byte, error) {
	return compute(ctx)
}
