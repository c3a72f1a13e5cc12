package access

import "fmt"

// Level is a totally ordered access level: View < Comment < Edit < Owner.
// It is persisted as lowercase text in both the grants table and the
// share-permissions table; ParseLevel is the single decode boundary for both.
type Level int

const (
	LevelView Level = iota + 1
	LevelComment
	LevelEdit
	LevelOwner
)

// Textual encodings as stored in Postgres. Lowercase by convention; parsing
// is case-sensitive so a mis-cased row is treated as unparseable.
const (
	levelViewText    = "view"
	levelCommentText = "comment"
	levelEditText    = "edit"
	levelOwnerText   = "owner"
)

// ParseLevel decodes the persisted textual form of a level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case levelViewText:
		return LevelView, nil
	case levelCommentText:
		return LevelComment, nil
	case levelEditText:
		return LevelEdit, nil
	case levelOwnerText:
		return LevelOwner, nil
	default:
		return 0, fmt.Errorf("unknown access level %q", s)
	}
}

// String returns the persisted textual form.
func (l Level) String() string {
	switch l {
	case LevelView:
		return levelViewText
	case LevelComment:
		return levelCommentText
	case LevelEdit:
		return levelEditText
	case LevelOwner:
		return levelOwnerText
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= LevelView && l <= LevelOwner
}

// AtLeast reports whether l grants at least the access of other.
func (l Level) AtLeast(other Level) bool {
	return l >= other
}

// MaxLevel returns the higher of two levels.
func MaxLevel(a, b Level) Level {
	if a >= b {
		return a
	}
	return b
}
