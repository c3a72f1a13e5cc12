package access

import (
	"context"

	"lattice/internal/domain/models/access"
)

// HierarchyRepository reads the item containment graph. Every method
// excludes soft-deleted rows, so a deleted project silently drops out of any
// chain that passes through it.
type HierarchyRepository interface {
	// GetItem returns the hierarchy row for one item, or nil if the item
	// does not exist or is soft-deleted.
	GetItem(ctx context.Context, item access.Item) (*access.ItemRow, error)

	// GetItems returns hierarchy rows for the given ids in one query.
	// Missing and soft-deleted ids are simply absent from the result.
	GetItems(ctx context.Context, itemIDs []string) (map[string]access.ItemRow, error)

	// CreateItem inserts an item row. Fixture/seed use only.
	CreateItem(ctx context.Context, row *access.ItemRow, name string) error
}
