package access

import (
	"context"
	"fmt"

	"lattice/internal/domain"
	models "lattice/internal/domain/models/access"
	accessRepo "lattice/internal/domain/repositories/access"

	"lattice/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGrantRepository implements the GrantRepository interface
type PostgresGrantRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(config *postgres.RepositoryConfig) accessRepo.GrantRepository {
	return &PostgresGrantRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// ListUserGrants returns every grant row for the user on any of the given
// item ids. Duplicates per (user, item) are expected — one row per granting
// channel — and are returned unreduced.
func (r *PostgresGrantRepository) ListUserGrants(ctx context.Context, userID string, itemIDs []string) ([]accessRepo.GrantLevelRow, error) {
	if len(itemIDs) == 0 {
		return []accessRepo.GrantLevelRow{}, nil
	}

	query := fmt.Sprintf(`
		SELECT item_id, access_level
		FROM %s
		WHERE user_id = $1 AND item_id = ANY($2)
	`, r.tables.ItemGrants)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("list user grants: %w", err)
	}
	defer rows.Close()

	var grants []accessRepo.GrantLevelRow
	for rows.Next() {
		var row accessRepo.GrantLevelRow
		if err := rows.Scan(&row.ItemID, &row.Level); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	if grants == nil {
		grants = []accessRepo.GrantLevelRow{}
	}

	return grants, nil
}

// ListShares returns share-permission rows for the given item ids, public or
// not, excluding soft-deleted shares. Non-public rows are included so the
// caller can run its owner check against them.
func (r *PostgresGrantRepository) ListShares(ctx context.Context, itemIDs []string) ([]accessRepo.PublicShareRow, error) {
	if len(itemIDs) == 0 {
		return []accessRepo.PublicShareRow{}, nil
	}

	query := fmt.Sprintf(`
		SELECT item_id, is_public, public_access_level, owner_id
		FROM %s
		WHERE item_id = ANY($1) AND deleted_at IS NULL
	`, r.tables.SharePermissions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("list public shares: %w", err)
	}
	defer rows.Close()

	var shares []accessRepo.PublicShareRow
	for rows.Next() {
		var row accessRepo.PublicShareRow
		if err := rows.Scan(&row.ItemID, &row.IsPublic, &row.PublicLevel, &row.OwnerID); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}

	if shares == nil {
		shares = []accessRepo.PublicShareRow{}
	}

	return shares, nil
}

// GetShareForItem retrieves the share permission for a single item
func (r *PostgresGrantRepository) GetShareForItem(ctx context.Context, item models.Item) (*models.SharePermission, error) {
	query := fmt.Sprintf(`
		SELECT id, item_id, item_type, is_public, public_access_level, owner_id, created_at, updated_at
		FROM %s
		WHERE item_id = $1 AND item_type = $2 AND deleted_at IS NULL
	`, r.tables.SharePermissions)

	var share models.SharePermission
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, item.ID, item.Type).Scan(
		&share.ID,
		&share.ItemID,
		&share.ItemType,
		&share.IsPublic,
		&share.PublicLevel,
		&share.OwnerID,
		&share.CreatedAt,
		&share.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("share permission for %s: %w", item.Key(), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get share permission: %w", err)
	}

	return &share, nil
}

// ListChannelGrants returns the channel grants attached to a share permission
func (r *PostgresGrantRepository) ListChannelGrants(ctx context.Context, sharePermissionID string) ([]models.ChannelGrant, error) {
	query := fmt.Sprintf(`
		SELECT share_permission_id, channel_id, access_level
		FROM %s
		WHERE share_permission_id = $1
	`, r.tables.ChannelGrants)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, sharePermissionID)
	if err != nil {
		return nil, fmt.Errorf("list channel grants: %w", err)
	}
	defer rows.Close()

	var grants []models.ChannelGrant
	for rows.Next() {
		var grant models.ChannelGrant
		if err := rows.Scan(&grant.SharePermissionID, &grant.ChannelID, &grant.Level); err != nil {
			return nil, fmt.Errorf("scan channel grant: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel grants: %w", err)
	}

	if grants == nil {
		grants = []models.ChannelGrant{}
	}

	return grants, nil
}

// CreateGrant inserts a grant row
func (r *PostgresGrantRepository) CreateGrant(ctx context.Context, grant *models.Grant) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, item_id, item_type, access_level, granted_from_channel_id, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.ItemGrants)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		grant.UserID,
		grant.ItemID,
		grant.ItemType,
		grant.Level,
		grant.FromChannelID,
		grant.GrantedAt,
	)
	if err != nil {
		return fmt.Errorf("create grant: %w", err)
	}

	return nil
}

// CreateShare inserts a share permission
func (r *PostgresGrantRepository) CreateShare(ctx context.Context, share *models.SharePermission) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, item_id, item_type, is_public, public_access_level, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.SharePermissions)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		share.ID,
		share.ItemID,
		share.ItemType,
		share.IsPublic,
		share.PublicLevel,
		share.OwnerID,
		share.CreatedAt,
		share.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("share permission for %s/%s already exists", share.ItemType, share.ItemID)
		}
		return fmt.Errorf("create share permission: %w", err)
	}

	return nil
}

// CreateChannelGrant inserts a channel grant
func (r *PostgresGrantRepository) CreateChannelGrant(ctx context.Context, grant *models.ChannelGrant) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (share_permission_id, channel_id, access_level)
		VALUES ($1, $2, $3)
	`, r.tables.ChannelGrants)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, grant.SharePermissionID, grant.ChannelID, grant.Level)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("share permission %s does not exist: %w", grant.SharePermissionID, domain.ErrNotFound)
		}
		return fmt.Errorf("create channel grant: %w", err)
	}

	return nil
}
