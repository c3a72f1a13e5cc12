package access

import "fmt"

// ItemType identifies which kind of workspace object an item handle refers to.
type ItemType string

const (
	ItemTypeDocument    ItemType = "document"
	ItemTypeChat        ItemType = "chat"
	ItemTypeProject     ItemType = "project"
	ItemTypeEmailThread ItemType = "email_thread"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeDocument, ItemTypeChat, ItemTypeProject, ItemTypeEmailThread:
		return true
	default:
		return false
	}
}

// Item is a polymorphic handle to a permission-bearing workspace object.
type Item struct {
	ID   string   `json:"item_id"`
	Type ItemType `json:"item_type"`
}

// Key returns a stable "type:id" form used for map keys and cache keys.
func (i Item) Key() string {
	return fmt.Sprintf("%s:%s", i.Type, i.ID)
}

// ItemRow is an item as stored, including its place in the containment
// hierarchy. For a project, ParentID points at the parent project; for any
// other item type it points at the immediate containing project. Either may
// be nil (root project, or an item outside any project).
type ItemRow struct {
	ID       string   `db:"id"`
	Type     ItemType `db:"item_type"`
	ParentID *string  `db:"parent_id"`
}
