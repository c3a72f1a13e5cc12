package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"

	"lattice/internal/domain"
	models "lattice/internal/domain/models/access"
)

// fakeHierarchyRepo is an in-memory HierarchyRepository. Soft-deleted rows
// are modeled by the deleted set: like the real repository, they are simply
// absent from query results.
type fakeHierarchyRepo struct {
	items   map[string]models.ItemRow
	deleted map[string]bool
	queries int
}

func newFakeHierarchyRepo() *fakeHierarchyRepo {
	return &fakeHierarchyRepo{
		items:   make(map[string]models.ItemRow),
		deleted: make(map[string]bool),
	}
}

func (f *fakeHierarchyRepo) addProject(id string, parentID *string) {
	f.items[id] = models.ItemRow{ID: id, Type: models.ItemTypeProject, ParentID: parentID}
}

func (f *fakeHierarchyRepo) addItem(id string, itemType models.ItemType, projectID *string) {
	f.items[id] = models.ItemRow{ID: id, Type: itemType, ParentID: projectID}
}

func (f *fakeHierarchyRepo) GetItem(ctx context.Context, item models.Item) (*models.ItemRow, error) {
	row, ok := f.items[item.ID]
	if !ok || f.deleted[item.ID] || row.Type != item.Type {
		return nil, nil
	}
	return &row, nil
}

func (f *fakeHierarchyRepo) GetItems(ctx context.Context, itemIDs []string) (map[string]models.ItemRow, error) {
	f.queries++
	result := make(map[string]models.ItemRow)
	for _, id := range itemIDs {
		if row, ok := f.items[id]; ok && !f.deleted[id] {
			result[id] = row
		}
	}
	return result, nil
}

func (f *fakeHierarchyRepo) CreateItem(ctx context.Context, row *models.ItemRow, name string) error {
	f.items[row.ID] = *row
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// buildThreeLevelFixture creates p1 <- p2 <- p3 with a document in p3.
func buildThreeLevelFixture() *fakeHierarchyRepo {
	repo := newFakeHierarchyRepo()
	repo.addProject("p1", nil)
	repo.addProject("p2", strPtr("p1"))
	repo.addProject("p3", strPtr("p2"))
	repo.addItem("doc", models.ItemTypeDocument, strPtr("p3"))
	return repo
}

func sortedCopy(ids []string) []string {
	out := append([]string{}, ids...)
	sort.Strings(out)
	return out
}

func assertClosure(t *testing.T, got, want []string) {
	t.Helper()
	gotSorted, wantSorted := sortedCopy(got), sortedCopy(want)
	if len(gotSorted) != len(wantSorted) {
		t.Fatalf("closure = %v, want %v", got, want)
	}
	for i := range gotSorted {
		if gotSorted[i] != wantSorted[i] {
			t.Fatalf("closure = %v, want %v", got, want)
		}
	}
}

func TestAncestorClosure(t *testing.T) {
	tests := []struct {
		name string
		item models.Item
		want []string
	}{
		{
			name: "document in nested project",
			item: models.Item{ID: "doc", Type: models.ItemTypeDocument},
			want: []string{"p3", "p2", "p1"},
		},
		{
			name: "leaf project includes itself",
			item: models.Item{ID: "p3", Type: models.ItemTypeProject},
			want: []string{"p3", "p2", "p1"},
		},
		{
			name: "root project",
			item: models.Item{ID: "p1", Type: models.ItemTypeProject},
			want: []string{"p1"},
		},
		{
			name: "unknown item",
			item: models.Item{ID: "nope", Type: models.ItemTypeDocument},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			walker := NewWalker(buildThreeLevelFixture(), testLogger())
			got, err := walker.AncestorClosure(context.Background(), tt.item)
			if err != nil {
				t.Fatalf("AncestorClosure failed: %v", err)
			}
			assertClosure(t, got, tt.want)
		})
	}
}

func TestAncestorClosureItemOutsideProject(t *testing.T) {
	repo := newFakeHierarchyRepo()
	repo.addItem("orphan", models.ItemTypeChat, nil)
	walker := NewWalker(repo, testLogger())

	got, err := walker.AncestorClosure(context.Background(), models.Item{ID: "orphan", Type: models.ItemTypeChat})
	if err != nil {
		t.Fatalf("AncestorClosure failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty closure, got %v", got)
	}
}

func TestAncestorClosureStopsAtDeletedProject(t *testing.T) {
	repo := buildThreeLevelFixture()
	repo.deleted["p2"] = true
	walker := NewWalker(repo, testLogger())

	got, err := walker.AncestorClosure(context.Background(), models.Item{ID: "doc", Type: models.ItemTypeDocument})
	if err != nil {
		t.Fatalf("AncestorClosure failed: %v", err)
	}
	// The chain ends at the deleted p2: p1 is only reachable through it and
	// must not appear.
	assertClosure(t, got, []string{"p3"})
}

func TestAncestorClosureDetectsCycle(t *testing.T) {
	repo := newFakeHierarchyRepo()
	repo.addProject("a", strPtr("b"))
	repo.addProject("b", strPtr("a"))
	repo.addItem("doc", models.ItemTypeDocument, strPtr("a"))
	walker := NewWalker(repo, testLogger())

	_, err := walker.AncestorClosure(context.Background(), models.Item{ID: "doc", Type: models.ItemTypeDocument})
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	if !errors.Is(err, domain.ErrHierarchyCycle) {
		t.Errorf("expected ErrHierarchyCycle, got %v", err)
	}
}

func TestAncestorClosureSelfParentCycle(t *testing.T) {
	repo := newFakeHierarchyRepo()
	repo.addProject("a", strPtr("a"))
	walker := NewWalker(repo, testLogger())

	_, err := walker.AncestorClosure(context.Background(), models.Item{ID: "a", Type: models.ItemTypeProject})
	if !errors.Is(err, domain.ErrHierarchyCycle) {
		t.Errorf("expected ErrHierarchyCycle, got %v", err)
	}
}

func TestAncestorClosureBatch(t *testing.T) {
	repo := buildThreeLevelFixture()
	repo.addItem("chat", models.ItemTypeChat, strPtr("p2"))
	repo.addProject("q1", nil)
	repo.addItem("other", models.ItemTypeDocument, strPtr("q1"))
	walker := NewWalker(repo, testLogger())

	items := []models.Item{
		{ID: "doc", Type: models.ItemTypeDocument},
		{ID: "chat", Type: models.ItemTypeChat},
		{ID: "other", Type: models.ItemTypeDocument},
		{ID: "p2", Type: models.ItemTypeProject},
		{ID: "missing", Type: models.ItemTypeDocument},
	}

	got, err := walker.AncestorClosureBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("AncestorClosureBatch failed: %v", err)
	}

	assertClosure(t, got["doc"], []string{"p3", "p2", "p1"})
	assertClosure(t, got["chat"], []string{"p2", "p1"})
	assertClosure(t, got["other"], []string{"q1"})
	assertClosure(t, got["p2"], []string{"p2", "p1"})
	assertClosure(t, got["missing"], []string{})

	// Closures are independent: nothing from the q1 tree leaks into the p1
	// tree and vice versa.
	for _, id := range got["doc"] {
		if id == "q1" {
			t.Error("closure for doc contains unrelated project q1")
		}
	}
}

func TestAncestorClosureBatchMatchesSingle(t *testing.T) {
	repo := buildThreeLevelFixture()
	repo.addItem("chat", models.ItemTypeChat, strPtr("p2"))
	walker := NewWalker(repo, testLogger())
	ctx := context.Background()

	items := []models.Item{
		{ID: "doc", Type: models.ItemTypeDocument},
		{ID: "chat", Type: models.ItemTypeChat},
		{ID: "p1", Type: models.ItemTypeProject},
	}

	batch, err := walker.AncestorClosureBatch(ctx, items)
	if err != nil {
		t.Fatalf("AncestorClosureBatch failed: %v", err)
	}

	for _, item := range items {
		single, err := walker.AncestorClosure(ctx, item)
		if err != nil {
			t.Fatalf("AncestorClosure(%s) failed: %v", item.ID, err)
		}
		assertClosure(t, batch[item.ID], single)
	}
}

func TestAncestorClosureBatchTypeMismatchTreatedAsAbsent(t *testing.T) {
	repo := buildThreeLevelFixture()
	walker := NewWalker(repo, testLogger())
	ctx := context.Background()

	// "doc" is stored as a document. Requesting the same id under another
	// type must behave like an unknown item, in the batch exactly as in the
	// single walk.
	item := models.Item{ID: "doc", Type: models.ItemTypeChat}

	single, err := walker.AncestorClosure(ctx, item)
	if err != nil {
		t.Fatalf("AncestorClosure failed: %v", err)
	}
	assertClosure(t, single, []string{})

	batch, err := walker.AncestorClosureBatch(ctx, []models.Item{item})
	if err != nil {
		t.Fatalf("AncestorClosureBatch failed: %v", err)
	}
	assertClosure(t, batch["doc"], single)
}

func TestAncestorClosureDepthBound(t *testing.T) {
	repo := newFakeHierarchyRepo()
	var prev *string
	deepest := ""
	for i := 0; i < maxHierarchyDepth+2; i++ {
		id := fmt.Sprintf("p%03d", i)
		repo.addProject(id, prev)
		prev = strPtr(id)
		deepest = id
	}
	walker := NewWalker(repo, testLogger())
	item := models.Item{ID: deepest, Type: models.ItemTypeProject}

	_, err := walker.AncestorClosure(context.Background(), item)
	if !errors.Is(err, domain.ErrHierarchyDepth) {
		t.Fatalf("expected ErrHierarchyDepth, got %v", err)
	}
	// An over-deep chain is not a cycle and must not report as one.
	if errors.Is(err, domain.ErrHierarchyCycle) {
		t.Error("depth error must not match ErrHierarchyCycle")
	}

	_, err = walker.AncestorClosureBatch(context.Background(), []models.Item{item})
	if !errors.Is(err, domain.ErrHierarchyDepth) {
		t.Errorf("expected ErrHierarchyDepth from batch, got %v", err)
	}
}

func TestAncestorClosureBatchSharesChainQueries(t *testing.T) {
	repo := buildThreeLevelFixture()
	repo.addItem("doc2", models.ItemTypeDocument, strPtr("p3"))
	repo.addItem("doc3", models.ItemTypeDocument, strPtr("p2"))
	walker := NewWalker(repo, testLogger())

	items := []models.Item{
		{ID: "doc", Type: models.ItemTypeDocument},
		{ID: "doc2", Type: models.ItemTypeDocument},
		{ID: "doc3", Type: models.ItemTypeDocument},
	}

	repo.queries = 0
	if _, err := walker.AncestorClosureBatch(context.Background(), items); err != nil {
		t.Fatalf("AncestorClosureBatch failed: %v", err)
	}

	// One query for the items themselves plus one per hierarchy level, never
	// one per item.
	if repo.queries > 4 {
		t.Errorf("expected at most 4 hierarchy queries, got %d", repo.queries)
	}
}

func TestAncestorClosureBatchDetectsCycle(t *testing.T) {
	repo := newFakeHierarchyRepo()
	repo.addProject("a", strPtr("b"))
	repo.addProject("b", strPtr("c"))
	repo.addProject("c", strPtr("a"))
	repo.addItem("doc", models.ItemTypeDocument, strPtr("a"))
	walker := NewWalker(repo, testLogger())

	_, err := walker.AncestorClosureBatch(context.Background(), []models.Item{{ID: "doc", Type: models.ItemTypeDocument}})
	if !errors.Is(err, domain.ErrHierarchyCycle) {
		t.Errorf("expected ErrHierarchyCycle, got %v", err)
	}
}

func TestAncestorClosureBatchEmpty(t *testing.T) {
	walker := NewWalker(newFakeHierarchyRepo(), testLogger())
	got, err := walker.AncestorClosureBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("AncestorClosureBatch failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
