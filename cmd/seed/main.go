package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"lattice/internal/cache"
	"lattice/internal/config"
	"lattice/internal/repository/postgres"
	postgresAccess "lattice/internal/repository/postgres/access"
	"lattice/internal/seed"
	accessSvc "lattice/internal/service/access"

	models "lattice/internal/domain/models/access"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed fixtures")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Seeding permission graph (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	hierarchyRepo := postgresAccess.NewHierarchyRepository(repoConfig)
	grantRepo := postgresAccess.NewGrantRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Seed the demo workspace
	seeder := seed.NewWorkspaceSeeder(hierarchyRepo, grantRepo, txManager, logger)
	if err := seeder.Seed(ctx); err != nil {
		log.Fatalf("Failed to seed workspace: %v", err)
	}
	log.Println("Workspace seeded")

	// Resolve the seeded users against the seeded document as a smoke check.
	resultCache := buildCache(cfg, logger)
	walker := accessSvc.NewWalker(hierarchyRepo, logger)
	resolver := accessSvc.NewResolver(walker, grantRepo, logger)
	validator := accessSvc.NewValidator(resolver, resultCache,
		time.Duration(cfg.ValidateCacheTTLSeconds)*time.Second, logger)

	doc := models.Item{ID: seed.SeedDocumentID, Type: models.ItemTypeDocument}
	for _, userID := range []string{seed.SeedOwnerID, seed.SeedEditorID, seed.SeedViewerID} {
		level, err := resolver.EffectiveAccess(ctx, userID, doc)
		if err != nil {
			log.Fatalf("Failed to resolve access: %v", err)
		}
		resolved := "none"
		if level != nil {
			resolved = level.String()
		}
		logger.Info("resolved seeded access", "user_id", userID, "item_id", doc.ID, "access_level", resolved)
	}

	accessible, err := validator.ValidateAccessibleItems(ctx, seed.SeedViewerID, []models.Item{doc})
	if err != nil {
		log.Fatalf("Failed to validate accessible items: %v", err)
	}
	logger.Info("validated accessible items", "user_id", seed.SeedViewerID, "count", len(accessible))

	log.Println("Seeding complete!")
}

// buildCache returns a redis-backed cache when REDIS_URL is configured and a
// pass-through otherwise, so seeding works without a redis instance.
func buildCache(cfg *config.Config, logger *slog.Logger) cache.Cache {
	if cfg.RedisURL == "" {
		return cache.NewNoop()
	}
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, running without result cache", "error", err)
		return cache.NewNoop()
	}
	return redisCache
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")
	if err != nil {
		return err
	}

	// Items and projects share one table; parent_id is the containment link
	// (parent project for a project, containing project for anything else).
	createItems := `
		CREATE TABLE IF NOT EXISTS ` + tables.Items + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			item_type TEXT NOT NULL,
			parent_id UUID REFERENCES ` + tables.Items + `(id) ON DELETE SET NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createItems); err != nil {
		return err
	}

	// No unique constraint on (user_id, item_id, item_type): one row per
	// granting channel is legal, resolution reduces with max.
	createGrants := `
		CREATE TABLE IF NOT EXISTS ` + tables.ItemGrants + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			item_id UUID NOT NULL,
			item_type TEXT NOT NULL,
			access_level TEXT NOT NULL,
			granted_from_channel_id UUID,
			granted_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createGrants); err != nil {
		return err
	}

	createShares := `
		CREATE TABLE IF NOT EXISTS ` + tables.SharePermissions + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			item_id UUID NOT NULL,
			item_type TEXT NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			public_access_level TEXT,
			owner_id UUID NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			UNIQUE(item_id, item_type)
		)
	`
	if _, err := pool.Exec(ctx, createShares); err != nil {
		return err
	}

	createChannelGrants := `
		CREATE TABLE IF NOT EXISTS ` + tables.ChannelGrants + ` (
			share_permission_id UUID NOT NULL REFERENCES ` + tables.SharePermissions + `(id) ON DELETE CASCADE,
			channel_id UUID NOT NULL,
			access_level TEXT NOT NULL,
			PRIMARY KEY (share_permission_id, channel_id)
		)
	`
	if _, err := pool.Exec(ctx, createChannelGrants); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `items_parent ON ` + tables.Items + `(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `item_grants_user_item ON ` + tables.ItemGrants + `(user_id, item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `share_permissions_item ON ` + tables.SharePermissions + `(item_id)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops every table this tool manages, grant tables first so
// foreign keys don't get in the way.
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.ChannelGrants, tables.SharePermissions, tables.ItemGrants, tables.Items} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}
