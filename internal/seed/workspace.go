package seed

import (
	"context"
	"log/slog"
	"time"

	models "lattice/internal/domain/models/access"
	"lattice/internal/domain/repositories"
	accessRepo "lattice/internal/domain/repositories/access"

	"github.com/google/uuid"
)

// WorkspaceSeeder creates a demo permission graph: a three-level project
// hierarchy with documents and chats, explicit grants, a public share, and a
// channel grant materialized into per-member grant rows the way the
// channel-membership subsystem does in production.
type WorkspaceSeeder struct {
	hierarchyRepo accessRepo.HierarchyRepository
	grantRepo     accessRepo.GrantRepository
	txManager     repositories.TransactionManager
	logger        *slog.Logger
}

// NewWorkspaceSeeder creates a new workspace seeder
func NewWorkspaceSeeder(
	hierarchyRepo accessRepo.HierarchyRepository,
	grantRepo accessRepo.GrantRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *WorkspaceSeeder {
	return &WorkspaceSeeder{
		hierarchyRepo: hierarchyRepo,
		grantRepo:     grantRepo,
		txManager:     txManager,
		logger:        logger,
	}
}

// Fixed fixture ids so reseeding is idempotent-ish and results are easy to
// inspect by hand.
const (
	SeedOwnerID  = "00000000-0000-0000-0000-0000000000aa"
	SeedEditorID = "00000000-0000-0000-0000-0000000000bb"
	SeedViewerID = "00000000-0000-0000-0000-0000000000cc"

	SeedDocumentID = "22222222-2222-2222-2222-222222222221"

	seedRootProjectID = "11111111-1111-1111-1111-111111111111"
	seedTeamProjectID = "11111111-1111-1111-1111-111111111112"
	seedDocsProjectID = "11111111-1111-1111-1111-111111111113"
	seedNotesChatID   = "22222222-2222-2222-2222-222222222222"
	seedChannelID     = "33333333-3333-3333-3333-333333333331"
)

// Seed populates the demo workspace inside a single transaction.
func (s *WorkspaceSeeder) Seed(ctx context.Context) error {
	return s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.seedHierarchy(ctx); err != nil {
			return err
		}
		if err := s.seedShares(ctx); err != nil {
			return err
		}
		return s.seedGrants(ctx)
	})
}

// seedHierarchy creates root <- team <- docs projects, with a document and a
// chat inside the docs project.
func (s *WorkspaceSeeder) seedHierarchy(ctx context.Context) error {
	rootID := seedRootProjectID
	teamID := seedTeamProjectID
	docsID := seedDocsProjectID

	rows := []struct {
		row  models.ItemRow
		name string
	}{
		{models.ItemRow{ID: rootID, Type: models.ItemTypeProject, ParentID: nil}, "Acme Workspace"},
		{models.ItemRow{ID: teamID, Type: models.ItemTypeProject, ParentID: &rootID}, "Platform Team"},
		{models.ItemRow{ID: docsID, Type: models.ItemTypeProject, ParentID: &teamID}, "Design Docs"},
		{models.ItemRow{ID: SeedDocumentID, Type: models.ItemTypeDocument, ParentID: &docsID}, "Resolver Spec"},
		{models.ItemRow{ID: seedNotesChatID, Type: models.ItemTypeChat, ParentID: &docsID}, "Design Notes"},
	}

	for _, r := range rows {
		row := r.row
		if err := s.hierarchyRepo.CreateItem(ctx, &row, r.name); err != nil {
			return err
		}
		s.logger.Info("seeded item", "id", row.ID, "type", row.Type, "name", r.name)
	}

	return nil
}

// seedShares creates a share permission per shareable item: the root project
// owned by the seed owner, and a public edit share on the document.
func (s *WorkspaceSeeder) seedShares(ctx context.Context) error {
	now := time.Now()
	publicEdit := models.LevelEdit.String()

	shares := []models.SharePermission{
		{
			ID:        uuid.NewString(),
			ItemID:    seedRootProjectID,
			ItemType:  models.ItemTypeProject,
			IsPublic:  false,
			OwnerID:   SeedOwnerID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          uuid.NewString(),
			ItemID:      SeedDocumentID,
			ItemType:    models.ItemTypeDocument,
			IsPublic:    true,
			PublicLevel: &publicEdit,
			OwnerID:     SeedOwnerID,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	for i := range shares {
		if err := s.grantRepo.CreateShare(ctx, &shares[i]); err != nil {
			return err
		}
	}

	// Channel grant on the root project share, then materialize it into
	// per-member grant rows as the membership subsystem would.
	channelGrant := &models.ChannelGrant{
		SharePermissionID: shares[0].ID,
		ChannelID:         seedChannelID,
		Level:             models.LevelComment.String(),
	}
	if err := s.grantRepo.CreateChannelGrant(ctx, channelGrant); err != nil {
		return err
	}

	channelMembers := []string{SeedEditorID, SeedViewerID}
	grantedAt := now
	for _, member := range channelMembers {
		grant := &models.Grant{
			UserID:        member,
			ItemID:        seedRootProjectID,
			ItemType:      models.ItemTypeProject,
			Level:         channelGrant.Level,
			FromChannelID: &channelGrant.ChannelID,
			GrantedAt:     &grantedAt,
		}
		if err := s.grantRepo.CreateGrant(ctx, grant); err != nil {
			return err
		}
	}

	return nil
}

// seedGrants creates the explicit per-user grants.
func (s *WorkspaceSeeder) seedGrants(ctx context.Context) error {
	grantedAt := time.Now()

	grants := []models.Grant{
		// Owner grant row on the root project, created on project creation.
		{UserID: SeedOwnerID, ItemID: seedRootProjectID, ItemType: models.ItemTypeProject, Level: models.LevelOwner.String()},
		// Editor on the team project, inherited by everything below it.
		{UserID: SeedEditorID, ItemID: seedTeamProjectID, ItemType: models.ItemTypeProject, Level: models.LevelEdit.String()},
		// Viewer directly on the chat only.
		{UserID: SeedViewerID, ItemID: seedNotesChatID, ItemType: models.ItemTypeChat, Level: models.LevelView.String()},
	}

	for i := range grants {
		grants[i].GrantedAt = &grantedAt
		if err := s.grantRepo.CreateGrant(ctx, &grants[i]); err != nil {
			return err
		}
		s.logger.Info("seeded grant",
			"user_id", grants[i].UserID,
			"item_id", grants[i].ItemID,
			"access_level", grants[i].Level,
		)
	}

	return nil
}
