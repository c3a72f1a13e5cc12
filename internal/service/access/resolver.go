package access

import (
	"context"
	"fmt"
	"log/slog"

	"lattice/internal/domain"
	models "lattice/internal/domain/models/access"
	accessRepo "lattice/internal/domain/repositories/access"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Resolver computes effective access levels. It is a pure read-time
// computation: given the same stored grants it always returns the same
// result, and it never writes.
type Resolver struct {
	walker    *Walker
	grantRepo accessRepo.GrantRepository
	logger    *slog.Logger
}

// NewResolver creates a new access resolver
func NewResolver(walker *Walker, grantRepo accessRepo.GrantRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		walker:    walker,
		grantRepo: grantRepo,
		logger:    logger,
	}
}

// resolveRequest carries the validated inputs of a resolution call
type resolveRequest struct {
	UserID string
	Item   models.Item
}

func (r *Resolver) validateRequest(req *resolveRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Item, validation.By(validateItem)),
	)
}

func validateItem(value interface{}) error {
	item, ok := value.(models.Item)
	if !ok {
		return fmt.Errorf("not an item")
	}
	if item.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if !item.Type.Valid() {
		return fmt.Errorf("unknown item type %q", item.Type)
	}
	return nil
}

// EffectiveAccess resolves the single level a user holds on an item, or nil
// when the user holds none. Candidates are gathered from explicit grants on
// the item and every ancestor project, and from public shares on the same
// set; the result is the maximum under View < Comment < Edit < Owner.
// Owning the item's own share permission short-circuits to Owner before any
// aggregation. A nonexistent item resolves to nil, not an error.
func (r *Resolver) EffectiveAccess(ctx context.Context, userID string, item models.Item) (*models.Level, error) {
	req := &resolveRequest{UserID: userID, Item: item}
	if err := r.validateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	closure, err := r.walker.AncestorClosure(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("ancestor closure for %s: %w", item.Key(), err)
	}

	ids := probeIDs(item, closure)

	shares, err := r.grantRepo.ListShares(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", item.Key(), err)
	}

	// Owner short-circuit: ownership of the item's own share wins outright,
	// no matter what grant rows exist.
	for _, share := range shares {
		if share.ItemID == item.ID && share.OwnerID == userID {
			level := models.LevelOwner
			return &level, nil
		}
	}

	grants, err := r.grantRepo.ListUserGrants(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", item.Key(), err)
	}

	scope := make(map[string]bool, len(ids))
	for _, id := range ids {
		scope[id] = true
	}

	return r.reduce(userID, scope, grants, shares), nil
}

// EffectiveAccessBatch resolves many items for one user in a single store
// round trip per grant source. Every requested item id appears in the
// result, mapped to nil when the user holds nothing on it, and each entry
// equals what EffectiveAccess would return for that item alone.
func (r *Resolver) EffectiveAccessBatch(ctx context.Context, userID string, items []models.Item) (map[string]*models.Level, error) {
	result := make(map[string]*models.Level, len(items))
	for _, item := range items {
		result[item.ID] = nil
	}
	if len(items) == 0 {
		return result, nil
	}

	if err := validation.Validate(userID, validation.Required); err != nil {
		return nil, fmt.Errorf("%w: user_id: %v", domain.ErrValidation, err)
	}
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}

	closures, err := r.walker.AncestorClosureBatch(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("ancestor closures: %w", err)
	}

	// One probe set for the whole batch; reduction below stays scoped to
	// each item's own closure.
	union := make([]string, 0, len(items))
	inUnion := make(map[string]bool)
	for _, item := range items {
		for _, id := range probeIDs(item, closures[item.ID]) {
			if !inUnion[id] {
				inUnion[id] = true
				union = append(union, id)
			}
		}
	}

	grants, err := r.grantRepo.ListUserGrants(ctx, userID, union)
	if err != nil {
		return nil, fmt.Errorf("resolve batch: %w", err)
	}
	shares, err := r.grantRepo.ListShares(ctx, union)
	if err != nil {
		return nil, fmt.Errorf("resolve batch: %w", err)
	}

	for _, item := range items {
		ids := probeIDs(item, closures[item.ID])
		scope := make(map[string]bool, len(ids))
		for _, id := range ids {
			scope[id] = true
		}

		owned := false
		for _, share := range shares {
			if share.ItemID == item.ID && share.OwnerID == userID {
				owned = true
				break
			}
		}
		if owned {
			level := models.LevelOwner
			result[item.ID] = &level
			continue
		}

		result[item.ID] = r.reduce(userID, scope, grants, shares)
	}

	return result, nil
}

// probeIDs is the item itself plus its ancestor closure, deduplicated. For
// a project the closure already contains the project id.
func probeIDs(item models.Item, closure []string) []string {
	ids := make([]string, 0, len(closure)+1)
	seen := make(map[string]bool, len(closure)+1)
	ids = append(ids, item.ID)
	seen[item.ID] = true
	for _, id := range closure {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// reduce folds every candidate level within scope down to the maximum.
// Unparseable stored levels are dropped (and logged), never fatal. A public
// share missing its level is an upstream invariant violation; it defends to
// View with a warning.
func (r *Resolver) reduce(userID string, scope map[string]bool, grants []accessRepo.GrantLevelRow, shares []accessRepo.PublicShareRow) *models.Level {
	var best *models.Level

	consider := func(level models.Level) {
		if best == nil {
			l := level
			best = &l
			return
		}
		m := models.MaxLevel(*best, level)
		best = &m
	}

	for _, grant := range grants {
		if !scope[grant.ItemID] {
			continue
		}
		level, err := models.ParseLevel(grant.Level)
		if err != nil {
			r.logger.Warn("dropping grant with unparseable access level",
				"item_id", grant.ItemID,
				"access_level", grant.Level,
			)
			continue
		}
		consider(level)
	}

	for _, share := range shares {
		if !scope[share.ItemID] {
			continue
		}

		if share.OwnerID == userID {
			consider(models.LevelOwner)
			continue
		}

		if !share.IsPublic {
			continue
		}

		if share.PublicLevel == nil {
			r.logger.Warn("public share has no access level, defaulting to view",
				"item_id", share.ItemID,
			)
			consider(models.LevelView)
			continue
		}

		level, err := models.ParseLevel(*share.PublicLevel)
		if err != nil {
			r.logger.Warn("dropping public share with unparseable access level",
				"item_id", share.ItemID,
				"access_level", *share.PublicLevel,
			)
			continue
		}
		consider(level)
	}

	return best
}
