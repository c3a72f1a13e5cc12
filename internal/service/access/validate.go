package access

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"lattice/internal/cache"
	models "lattice/internal/domain/models/access"
)

// DefaultValidateTTL is how long a validated accessible-items result may be
// served from cache. Callers tolerate staleness up to this window; there is
// no explicit invalidation on grant mutation.
const DefaultValidateTTL = 30 * time.Second

// Validator answers "which of these items can this user see at all", the
// membership test behind list endpoints. It is called on hot read paths, so
// results are memoized behind an injectable cache for a short TTL.
type Validator struct {
	resolver *Resolver
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewValidator creates a new accessible-items validator. Pass cache.NewNoop()
// to disable memoization.
func NewValidator(resolver *Resolver, resultCache cache.Cache, ttl time.Duration, logger *slog.Logger) *Validator {
	if ttl <= 0 {
		ttl = DefaultValidateTTL
	}
	return &Validator{
		resolver: resolver,
		cache:    resultCache,
		ttl:      ttl,
		logger:   logger,
	}
}

// ValidateAccessibleItems returns the subset of candidate items the user can
// access by any route: an explicit grant on the item itself, a public share,
// or inherited access through any containing project. The result is always a
// subset of the input — ancestor projects discovered along the way are never
// added — and preserves input order with duplicates removed.
func (v *Validator) ValidateAccessibleItems(ctx context.Context, userID string, items []models.Item) ([]models.Item, error) {
	if len(items) == 0 {
		return []models.Item{}, nil
	}

	key := validateCacheKey(userID, items)
	payload, err := v.cache.GetOrCompute(ctx, key, v.ttl, func(ctx context.Context) ([]byte, error) {
		accessible, err := v.computeAccessible(ctx, userID, items)
		if err != nil {
			return nil, err
		}
		return json.Marshal(accessible)
	})
	if err != nil {
		return nil, err
	}

	var accessible []models.Item
	if err := json.Unmarshal(payload, &accessible); err != nil {
		return nil, fmt.Errorf("decode accessible items: %w", err)
	}
	if accessible == nil {
		accessible = []models.Item{}
	}

	return accessible, nil
}

func (v *Validator) computeAccessible(ctx context.Context, userID string, items []models.Item) ([]models.Item, error) {
	levels, err := v.resolver.EffectiveAccessBatch(ctx, userID, items)
	if err != nil {
		return nil, err
	}

	accessible := []models.Item{}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.Key()] {
			continue
		}
		seen[item.Key()] = true
		if levels[item.ID] != nil {
			accessible = append(accessible, item)
		}
	}

	v.logger.Debug("computed accessible items",
		"user_id", userID,
		"candidates", len(items),
		"accessible", len(accessible),
	)

	return accessible, nil
}

// validateCacheKey is deterministic in the candidate set: the same user and
// items produce the same key regardless of input order.
func validateCacheKey(userID string, items []models.Item) string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key())
	}
	sort.Strings(keys)
	return userID + "|" + strings.Join(keys, ",")
}
