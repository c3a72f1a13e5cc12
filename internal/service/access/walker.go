package access

import (
	"context"
	"fmt"
	"log/slog"

	"lattice/internal/domain"
	models "lattice/internal/domain/models/access"
	accessRepo "lattice/internal/domain/repositories/access"
)

// maxHierarchyDepth bounds the parent-chain walk. Real workspaces nest a
// handful of levels deep; hitting this bound means the data is corrupt.
const maxHierarchyDepth = 64

// Walker computes ancestor closures over the project containment graph.
// The graph is stored as parent pointers; the walk is an explicit
// breadth-first traversal with a visited set, so a cycle in the stored data
// surfaces as domain.ErrHierarchyCycle instead of an infinite loop.
type Walker struct {
	hierarchyRepo accessRepo.HierarchyRepository
	logger        *slog.Logger
}

// NewWalker creates a new hierarchy walker
func NewWalker(hierarchyRepo accessRepo.HierarchyRepository, logger *slog.Logger) *Walker {
	return &Walker{
		hierarchyRepo: hierarchyRepo,
		logger:        logger,
	}
}

// AncestorClosure returns the ids of every project containing the item:
// its direct project and all transitive parents, including the item itself
// when the item is a project. An unknown or soft-deleted item, or an item
// outside any project, yields an empty closure.
func (w *Walker) AncestorClosure(ctx context.Context, item models.Item) ([]string, error) {
	row, err := w.hierarchyRepo.GetItem(ctx, item)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return []string{}, nil
	}

	closure := []string{}
	visited := make(map[string]bool)
	next := row.ParentID

	if row.Type == models.ItemTypeProject {
		closure = append(closure, row.ID)
		visited[row.ID] = true
	}

	for depth := 0; next != nil; depth++ {
		if depth >= maxHierarchyDepth {
			return nil, &domain.IntegrityError{
				Message: fmt.Sprintf("hierarchy deeper than %d at project %s", maxHierarchyDepth, *next),
				Err:     domain.ErrHierarchyDepth,
			}
		}
		if visited[*next] {
			return nil, &domain.IntegrityError{
				Message: fmt.Sprintf("cycle in project hierarchy at project %s", *next),
				Err:     domain.ErrHierarchyCycle,
			}
		}

		rows, err := w.hierarchyRepo.GetItems(ctx, []string{*next})
		if err != nil {
			return nil, err
		}

		parent, ok := rows[*next]
		if !ok {
			// Deleted or missing parent: the chain ends here and nothing
			// above it contributes.
			break
		}
		if parent.Type != models.ItemTypeProject {
			w.logger.Warn("parent link points at a non-project item",
				"item_id", parent.ID,
				"item_type", parent.Type,
			)
			break
		}

		closure = append(closure, parent.ID)
		visited[parent.ID] = true
		next = parent.ParentID
	}

	return closure, nil
}

// AncestorClosureBatch computes the closure of every item in one traversal,
// returning a map from item id to that item's own closure. Sub-closures are
// shared between items within the call, but each item's result stays scoped
// to its own chain.
func (w *Walker) AncestorClosureBatch(ctx context.Context, items []models.Item) (map[string][]string, error) {
	result := make(map[string][]string, len(items))
	if len(items) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.ID] {
			seen[item.ID] = true
			ids = append(ids, item.ID)
		}
	}

	// Load the requested items plus every reachable ancestor, one query per
	// hierarchy level. Ids already loaded are never re-fetched, so this
	// terminates even on cyclic data; the in-memory walk below is what
	// detects and reports the cycle.
	nodes, err := w.hierarchyRepo.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	for depth := 0; ; depth++ {
		if depth >= maxHierarchyDepth {
			return nil, &domain.IntegrityError{
				Message: fmt.Sprintf("hierarchy deeper than %d", maxHierarchyDepth),
				Err:     domain.ErrHierarchyDepth,
			}
		}

		var frontier []string
		for _, node := range nodes {
			if node.ParentID == nil {
				continue
			}
			if _, loaded := nodes[*node.ParentID]; !loaded && !seen[*node.ParentID] {
				seen[*node.ParentID] = true
				frontier = append(frontier, *node.ParentID)
			}
		}
		if len(frontier) == 0 {
			break
		}

		parents, err := w.hierarchyRepo.GetItems(ctx, frontier)
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			break
		}
		for id, node := range parents {
			nodes[id] = node
		}
	}

	// Per-project closures are memoized so chains shared between items are
	// only walked once.
	memo := make(map[string][]string)
	for _, item := range items {
		if _, done := result[item.ID]; done {
			continue
		}

		node, ok := nodes[item.ID]
		if !ok || node.Type != item.Type {
			// The id may exist under a different stored type; lookups key on
			// (id, type), so that counts as absent here too.
			result[item.ID] = []string{}
			continue
		}

		var start *string
		if node.Type == models.ItemTypeProject {
			start = &node.ID
		} else {
			start = node.ParentID
		}

		closure, err := w.projectClosure(start, nodes, memo)
		if err != nil {
			return nil, err
		}
		result[item.ID] = closure
	}

	return result, nil
}

// projectClosure walks the in-memory parent chain from the given project id,
// memoizing the closure of every project on the way.
func (w *Walker) projectClosure(start *string, nodes map[string]models.ItemRow, memo map[string][]string) ([]string, error) {
	if start == nil {
		return []string{}, nil
	}

	// Collect the unmemoized prefix of the chain.
	var path []string
	onPath := make(map[string]bool)
	next := start
	for next != nil {
		id := *next
		if _, ok := memo[id]; ok {
			break
		}
		if onPath[id] {
			return nil, &domain.IntegrityError{
				Message: fmt.Sprintf("cycle in project hierarchy at project %s", id),
				Err:     domain.ErrHierarchyCycle,
			}
		}

		node, ok := nodes[id]
		if !ok || node.Type != models.ItemTypeProject {
			// Deleted, missing, or mislinked: the chain ends before this id.
			next = nil
			break
		}

		path = append(path, id)
		onPath[id] = true
		next = node.ParentID
	}

	// Whatever the chain ended on (nil parent or a memoized project) is the
	// suffix shared by every project on the path.
	var suffix []string
	if next != nil {
		suffix = memo[*next]
	}

	for i := len(path) - 1; i >= 0; i-- {
		closure := make([]string, 0, len(suffix)+1)
		closure = append(closure, path[i])
		closure = append(closure, suffix...)
		memo[path[i]] = closure
		suffix = closure
	}

	if len(path) > 0 {
		return memo[path[0]], nil
	}
	if next != nil {
		return memo[*next], nil
	}
	return []string{}, nil
}
