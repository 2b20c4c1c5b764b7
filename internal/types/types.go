package types

// Bookmark is a saved URL inside a category.
type Bookmark struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Icon       string  `json:"icon,omitempty"`
	CategoryID string  `json:"categoryId"`
	Order      float64 `json:"order"`
}

// Category owns bookmarks and optionally belongs to a group.
type Category struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Order   float64 `json:"order"`
	GroupID string  `json:"groupId,omitempty"` // empty if standalone
}

// Group (tab-group) owns categories through Category.GroupID.
type Group struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Order float64 `json:"order"`
}

func (b Bookmark) SortOrder() float64 { return b.Order }
func (b Bookmark) SortID() string      { return b.ID }
func (c Category) SortOrder() float64 { return c.Order }
func (c Category) SortID() string      { return c.ID }
func (g Group) SortOrder() float64    { return g.Order }
func (g Group) SortID() string         { return g.ID }

// Preferences holds per-user settings delivered by the preferences feed.
type Preferences struct {
	Theme        string `json:"theme,omitempty"`
	OpenInNewTab bool   `json:"openInNewTab,omitempty"`
	ShowIcons    bool   `json:"showIcons,omitempty"`
}

// LayoutKind distinguishes the two kinds of top-level layout items.
type LayoutKind int

const (
	LayoutCategory LayoutKind = iota
	LayoutGroup
)

func (k LayoutKind) String() string {
	if k == LayoutGroup {
		return "group"
	}
	return "category"
}

// LayoutItem is a display-only projection of a standalone category or a
// group with its member categories. It is never persisted.
type LayoutItem struct {
	Kind     LayoutKind
	Category Category   // set when Kind == LayoutCategory
	Group    Group      // set when Kind == LayoutGroup
	Members  []Category // sorted by (order, id)
}

// ID returns the id of the underlying category or group.
func (it LayoutItem) ID() string {
	if it.Kind == LayoutGroup {
		return it.Group.ID
	}
	return it.Category.ID
}

func (it LayoutItem) SortOrder() float64 {
	if it.Kind == LayoutGroup {
		return it.Group.Order
	}
	return it.Category.Order
}

func (it LayoutItem) SortID() string { return it.ID() }

// Snapshot is the persisted entity set.
type Snapshot struct {
	Groups      []Group     `json:"groups"`
	Categories  []Category  `json:"categories"`
	Bookmarks   []Bookmark  `json:"bookmarks"`
	Preferences Preferences `json:"preferences"`
}

// View is a consistent read of the store: every slice is sorted by
// (order, id) and Layout is derived from Groups and Categories.
type View struct {
	Snapshot
	Layout []LayoutItem
	Ready  bool
}

// Mode selects where the store's truth lives.
type Mode int

const (
	ModeLocal Mode = iota
	ModeSync
)

func (m Mode) String() string {
	if m == ModeSync {
		return "sync"
	}
	return "local"
}
