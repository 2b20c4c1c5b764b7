package drag

import (
	"github.com/lotas/lesezeichen/internal/order"
	"github.com/lotas/lesezeichen/internal/types"
)

// Store is the part of the entity store a drop needs: the current sibling
// lists and the mutations a drop maps to.
type Store interface {
	View() types.View
	Bookmark(id string) (types.Bookmark, bool)
	Category(id string) (types.Category, bool)
	BookmarksIn(categoryID string) []types.Bookmark
	Members(groupID string) []types.Category

	ReorderBookmark(id string, ord float64, categoryID string) error
	ReorderCategory(id string, ord float64) error
	ReorderGroup(id string, ord float64) error
	SetCategoryGroup(categoryID, groupID string, ord *float64) error
	CreateGroupFromCategories(name string, categoryIDs []string, ord float64) (types.Group, error)
	MergeGroups(sourceID, targetID string) error
}

// drop is the single store call an intent resolves to.
type drop struct {
	op  string
	run func() error
}

// insertion returns the index into rest (siblings without the subject) at
// which the subject lands, and whether that is where it already is.
func insertion[T order.Keyed](sibs []T, subjectID, anchorID string, after bool) (rest []T, idx int, same bool) {
	idx = len(sibs)
	if anchorID != "" {
		if i := order.IndexOf(sibs, anchorID); i >= 0 {
			idx = i
			if after {
				idx++
			}
		}
	}
	rest, old := order.Without(sibs, subjectID)
	if old >= 0 && idx > old {
		idx--
	}
	return rest, idx, old >= 0 && idx == old
}

// plan maps an intent to one store call. ok is false when the drop would
// change nothing or the entities it names are gone.
func plan(st Store, s Subject, in Intent) (d drop, ok bool) {
	switch in.Kind {
	case IntentBookmark:
		b, found := st.Bookmark(s.ID)
		if !found || s.Kind != SubjectBookmark {
			return drop{}, false
		}
		rest, idx, same := insertion(st.BookmarksIn(in.CategoryID), s.ID, in.AnchorID, in.After)
		if same {
			return drop{}, false
		}
		ord := order.Midpoint(rest, idx)
		cat := in.CategoryID
		if cat == b.CategoryID {
			cat = ""
		}
		return drop{op: "reorderBookmark", run: func() error { return st.ReorderBookmark(s.ID, ord, cat) }}, true

	case IntentReorder:
		rest, idx, same := insertion(st.View().Layout, s.ID, in.AnchorID, in.After)
		if same {
			return drop{}, false
		}
		ord := order.Midpoint(rest, idx)
		if s.Kind == SubjectGroup {
			return drop{op: "reorderGroup", run: func() error { return st.ReorderGroup(s.ID, ord) }}, true
		}
		c, found := st.Category(s.ID)
		if !found {
			return drop{}, false
		}
		if c.GroupID != "" {
			return drop{op: "setCategoryGroup", run: func() error { return st.SetCategoryGroup(s.ID, "", &ord) }}, true
		}
		return drop{op: "reorderCategory", run: func() error { return st.ReorderCategory(s.ID, ord) }}, true

	case IntentGroup:
		target, found := st.Category(in.TargetID)
		if !found || s.Kind != SubjectCategory {
			return drop{}, false
		}
		ids := []string{target.ID, s.ID}
		return drop{op: "createGroupFromCategories", run: func() error {
			_, err := st.CreateGroupFromCategories("", ids, target.Order)
			return err
		}}, true

	case IntentJoin:
		c, found := st.Category(s.ID)
		if !found || c.GroupID == in.TargetID {
			return drop{}, false
		}
		return drop{op: "setCategoryGroup", run: func() error { return st.SetCategoryGroup(s.ID, in.TargetID, nil) }}, true

	case IntentMerge:
		if s.Kind != SubjectGroup || s.ID == in.TargetID {
			return drop{}, false
		}
		return drop{op: "mergeGroups", run: func() error { return st.MergeGroups(s.ID, in.TargetID) }}, true

	case IntentAbsorb:
		if s.Kind != SubjectGroup {
			return drop{}, false
		}
		return drop{op: "setCategoryGroup", run: func() error { return st.SetCategoryGroup(in.TargetID, s.ID, nil) }}, true

	case IntentTab:
		c, found := st.Category(s.ID)
		if !found || s.Kind != SubjectCategory {
			return drop{}, false
		}
		rest, idx, same := insertion(st.Members(in.GroupID), s.ID, in.AnchorID, in.After)
		if same {
			return drop{}, false
		}
		ord := order.Midpoint(rest, idx)
		if c.GroupID == in.GroupID {
			return drop{op: "reorderCategory", run: func() error { return st.ReorderCategory(s.ID, ord) }}, true
		}
		return drop{op: "setCategoryGroup", run: func() error { return st.SetCategoryGroup(s.ID, in.GroupID, &ord) }}, true
	}
	return drop{}, false
}
