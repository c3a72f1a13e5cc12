package access

import "time"

// Grant is one persisted per-user grant row. Multiple rows may coexist for
// the same (user, item) pair — one per originating channel — so consumers
// must reduce with max rather than assume uniqueness.
type Grant struct {
	UserID        string     `json:"user_id" db:"user_id"`
	ItemID        string     `json:"item_id" db:"item_id"`
	ItemType      ItemType   `json:"item_type" db:"item_type"`
	Level         string     `json:"access_level" db:"access_level"`
	FromChannelID *string    `json:"granted_from_channel_id,omitempty" db:"granted_from_channel_id"`
	GrantedAt     *time.Time `json:"granted_at,omitempty" db:"granted_at"`
}

// SharePermission is the per-item sharing record: who owns the item and
// whether (and at what level) it is shared publicly. PublicLevel may be nil
// even when IsPublic is true; resolution defends that case to View.
type SharePermission struct {
	ID          string     `json:"id" db:"id"`
	ItemID      string     `json:"item_id" db:"item_id"`
	ItemType    ItemType   `json:"item_type" db:"item_type"`
	IsPublic    bool       `json:"is_public" db:"is_public"`
	PublicLevel *string    `json:"public_access_level,omitempty" db:"public_access_level"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ChannelGrant gives every member of a channel a level on a shared item.
// Membership is materialized into Grant rows (with FromChannelID set) by the
// channel-membership subsystem; the resolver never expands channels itself.
type ChannelGrant struct {
	SharePermissionID string `json:"share_permission_id" db:"share_permission_id"`
	ChannelID         string `json:"channel_id" db:"channel_id"`
	Level             string `json:"access_level" db:"access_level"`
}
