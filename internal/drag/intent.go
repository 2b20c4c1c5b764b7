package drag

import "fmt"

// SubjectKind is what is being dragged.
type SubjectKind int

const (
	SubjectBookmark SubjectKind = iota
	SubjectCategory
	SubjectGroup
)

func (k SubjectKind) String() string {
	switch k {
	case SubjectBookmark:
		return "bookmark"
	case SubjectCategory:
		return "category"
	case SubjectGroup:
		return "group"
	}
	return "unknown"
}

// Subject identifies the dragged entity.
type Subject struct {
	Kind SubjectKind
	ID   string
}

// IntentKind classifies a drop.
type IntentKind int

const (
	IntentNone IntentKind = iota
	// IntentBookmark places a bookmark in CategoryID before or after
	// AnchorID, or at the end when AnchorID is empty.
	IntentBookmark
	// IntentReorder places a category or group among top-level items.
	IntentReorder
	// IntentGroup drops a category onto a standalone category to form a
	// new group with the target first.
	IntentGroup
	// IntentJoin drops a category onto a group.
	IntentJoin
	// IntentMerge drops a group onto another group.
	IntentMerge
	// IntentAbsorb drops a group onto a standalone category, pulling the
	// category in.
	IntentAbsorb
	// IntentTab places a category inside GroupID's tab strip.
	IntentTab
)

func (k IntentKind) String() string {
	switch k {
	case IntentNone:
		return "none"
	case IntentBookmark:
		return "bookmark"
	case IntentReorder:
		return "reorder"
	case IntentGroup:
		return "group"
	case IntentJoin:
		return "join"
	case IntentMerge:
		return "merge"
	case IntentAbsorb:
		return "absorb"
	case IntentTab:
		return "tab"
	}
	return "unknown"
}

// Intent is the resolved drop target for the current pointer position.
type Intent struct {
	Kind       IntentKind
	CategoryID string // IntentBookmark
	GroupID    string // IntentTab
	TargetID   string // IntentGroup, IntentJoin, IntentMerge, IntentAbsorb
	AnchorID   string // insert relative to this sibling; empty appends
	After      bool
}

func (in Intent) String() string {
	switch in.Kind {
	case IntentNone:
		return "none"
	case IntentBookmark:
		return fmt.Sprintf("bookmark cat=%s anchor=%s after=%t", in.CategoryID, in.AnchorID, in.After)
	case IntentReorder:
		return fmt.Sprintf("reorder anchor=%s after=%t", in.AnchorID, in.After)
	case IntentTab:
		return fmt.Sprintf("tab group=%s anchor=%s after=%t", in.GroupID, in.AnchorID, in.After)
	}
	return fmt.Sprintf("%s target=%s", in.Kind, in.TargetID)
}
