package access

import (
	"context"
	"fmt"

	models "lattice/internal/domain/models/access"
	accessRepo "lattice/internal/domain/repositories/access"

	"lattice/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresHierarchyRepository implements the HierarchyRepository interface
type PostgresHierarchyRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewHierarchyRepository creates a new hierarchy repository
func NewHierarchyRepository(config *postgres.RepositoryConfig) accessRepo.HierarchyRepository {
	return &PostgresHierarchyRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetItem returns the hierarchy row for one item, or nil if the item does
// not exist or is soft-deleted. Absence is not an error here: resolution
// treats an unknown item as "no grants found".
func (r *PostgresHierarchyRepository) GetItem(ctx context.Context, item models.Item) (*models.ItemRow, error) {
	query := fmt.Sprintf(`
		SELECT id, item_type, parent_id
		FROM %s
		WHERE id = $1 AND item_type = $2 AND deleted_at IS NULL
	`, r.tables.Items)

	var row models.ItemRow
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, item.ID, item.Type).Scan(&row.ID, &row.Type, &row.ParentID)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	return &row, nil
}

// GetItems returns hierarchy rows for the given ids in one query. Missing
// and soft-deleted ids are absent from the result map.
func (r *PostgresHierarchyRepository) GetItems(ctx context.Context, itemIDs []string) (map[string]models.ItemRow, error) {
	result := make(map[string]models.ItemRow, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT id, item_type, parent_id
		FROM %s
		WHERE id = ANY($1) AND deleted_at IS NULL
	`, r.tables.Items)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row models.ItemRow
		if err := rows.Scan(&row.ID, &row.Type, &row.ParentID); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		result[row.ID] = row
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return result, nil
}

// CreateItem inserts an item row
func (r *PostgresHierarchyRepository) CreateItem(ctx context.Context, row *models.ItemRow, name string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, item_type, parent_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`, r.tables.Items)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, row.ID, row.Type, row.ParentID, name)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("item %s already exists", row.ID)
		}
		return fmt.Errorf("create item: %w", err)
	}

	return nil
}
