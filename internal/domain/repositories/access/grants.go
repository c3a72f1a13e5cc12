package access

import (
	"context"

	"lattice/internal/domain/models/access"
)

// GrantLevelRow is one candidate access level found for a user on one of the
// item ids probed during resolution. Level is the raw stored text; decoding
// happens once, in the aggregation layer.
type GrantLevelRow struct {
	ItemID string
	Level  string
}

// PublicShareRow is the public-sharing slice of a share permission for one
// probed item id. PublicLevel stays raw text for the same reason.
type PublicShareRow struct {
	ItemID      string
	IsPublic    bool
	PublicLevel *string
	OwnerID     string
}

// GrantRepository defines read access to the persisted grant facts, plus the
// write operations the seed tooling needs. Resolution only ever reads.
type GrantRepository interface {
	// ListUserGrants returns every grant row for the user on any of the
	// given item ids. Duplicate (user, item) rows are returned as-is.
	ListUserGrants(ctx context.Context, userID string, itemIDs []string) ([]GrantLevelRow, error)

	// ListShares returns the share-permission rows for the given item ids,
	// public or not, excluding soft-deleted shares.
	ListShares(ctx context.Context, itemIDs []string) ([]PublicShareRow, error)

	// GetShareForItem retrieves the share permission for a single item.
	GetShareForItem(ctx context.Context, item access.Item) (*access.SharePermission, error)

	// ListChannelGrants returns the channel grants attached to a share
	// permission.
	ListChannelGrants(ctx context.Context, sharePermissionID string) ([]access.ChannelGrant, error)

	// CreateGrant inserts a grant row. Fixture/seed use only.
	CreateGrant(ctx context.Context, grant *access.Grant) error

	// CreateShare inserts a share permission. Fixture/seed use only.
	CreateShare(ctx context.Context, share *access.SharePermission) error

	// CreateChannelGrant inserts a channel grant. Fixture/seed use only.
	CreateChannelGrant(ctx context.Context, grant *access.ChannelGrant) error
}
