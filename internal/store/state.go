package store

import (
	"github.com/lotas/lesezeichen/internal/order"
	"github.com/lotas/lesezeichen/internal/types"
)

// state is the mutable entity set behind a View.
type state struct {
	groups     map[string]types.Group
	categories map[string]types.Category
	bookmarks  map[string]types.Bookmark
	prefs      types.Preferences
}

func newState() *state {
	return &state{
		groups:     make(map[string]types.Group),
		categories: make(map[string]types.Category),
		bookmarks:  make(map[string]types.Bookmark),
	}
}

func stateFromSnapshot(snap types.Snapshot) *state {
	st := newState()
	for _, g := range snap.Groups {
		st.groups[g.ID] = g
	}
	for _, c := range snap.Categories {
		st.categories[c.ID] = c
	}
	for _, b := range snap.Bookmarks {
		st.bookmarks[b.ID] = b
	}
	st.prefs = snap.Preferences
	return st
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.groups {
		out.groups[k] = v
	}
	for k, v := range st.categories {
		out.categories[k] = v
	}
	for k, v := range st.bookmarks {
		out.bookmarks[k] = v
	}
	out.prefs = st.prefs
	return out
}

// deleteCategory removes a category and its bookmarks.
func (st *state) deleteCategory(id string) {
	delete(st.categories, id)
	for bid, b := range st.bookmarks {
		if b.CategoryID == id {
			delete(st.bookmarks, bid)
		}
	}
}

// deleteGroup removes a group and ungroups its members, leaving their
// other fields untouched.
func (st *state) deleteGroup(id string) {
	delete(st.groups, id)
	for cid, c := range st.categories {
		if c.GroupID == id {
			c.GroupID = ""
			st.categories[cid] = c
		}
	}
}

// members returns the categories of a group sorted by (order, id).
func (st *state) members(groupID string) []types.Category {
	var out []types.Category
	for _, c := range st.categories {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	order.Sort(out)
	return out
}

// bookmarksIn returns the bookmarks of a category sorted by (order, id).
func (st *state) bookmarksIn(categoryID string) []types.Bookmark {
	var out []types.Bookmark
	for _, b := range st.bookmarks {
		if b.CategoryID == categoryID {
			out = append(out, b)
		}
	}
	order.Sort(out)
	return out
}

// snapshot returns the entity set as sorted slices, dropping entities that
// violate reference invariants: bookmarks of dead categories are omitted
// and group references to dead groups are cleared.
func (st *state) snapshot() types.Snapshot {
	snap := types.Snapshot{
		Groups:      make([]types.Group, 0, len(st.groups)),
		Categories:  make([]types.Category, 0, len(st.categories)),
		Bookmarks:   make([]types.Bookmark, 0, len(st.bookmarks)),
		Preferences: st.prefs,
	}
	for _, g := range st.groups {
		snap.Groups = append(snap.Groups, g)
	}
	for _, c := range st.categories {
		if c.GroupID != "" {
			if _, ok := st.groups[c.GroupID]; !ok {
				c.GroupID = ""
			}
		}
		snap.Categories = append(snap.Categories, c)
	}
	for _, b := range st.bookmarks {
		if _, ok := st.categories[b.CategoryID]; !ok {
			continue
		}
		snap.Bookmarks = append(snap.Bookmarks, b)
	}
	order.Sort(snap.Groups)
	order.Sort(snap.Categories)
	order.Sort(snap.Bookmarks)
	return snap
}

// buildLayout projects standalone categories and non-empty groups into one
// top-level sequence sorted by (order, id).
func buildLayout(snap types.Snapshot) []types.LayoutItem {
	members := make(map[string][]types.Category)
	var items []types.LayoutItem
	for _, c := range snap.Categories {
		if c.GroupID == "" {
			items = append(items, types.LayoutItem{Kind: types.LayoutCategory, Category: c})
			continue
		}
		// Categories are already sorted, so members stay sorted.
		members[c.GroupID] = append(members[c.GroupID], c)
	}
	for _, g := range snap.Groups {
		ms := members[g.ID]
		if len(ms) == 0 {
			continue
		}
		items = append(items, types.LayoutItem{Kind: types.LayoutGroup, Group: g, Members: ms})
	}
	order.Sort(items)
	return items
}
