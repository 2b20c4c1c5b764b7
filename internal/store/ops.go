package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lotas/lesezeichen/internal/order"
	"github.com/lotas/lesezeichen/internal/types"
	"github.com/lotas/lesezeichen/internal/undo"
)

// DefaultGroupName names groups created by dropping one category on another.
const DefaultGroupName = "New group"

// --- Categories ---

// CreateCategory appends a standalone category at the end of the layout.
func (s *Store) CreateCategory(name string) (types.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Category{}, fmt.Errorf("create category: empty name: %w", ErrInvalid)
	}
	s.mu.Lock()
	c := types.Category{
		ID:    s.newID(),
		Name:  name,
		Order: order.Midpoint(s.view.Layout, len(s.view.Layout)),
	}
	s.mu.Unlock()

	s.commit("createCategory",
		func(st *state) { st.categories[c.ID] = c },
		func(ctx context.Context, r Remote) error { return r.CreateCategory(ctx, c) },
		&undo.Action{
			Undo: func(context.Context) error { return s.DeleteCategory(c.ID) },
			Redo: func(context.Context) error { return s.restore(restoreSet{categories: []types.Category{c}}) },
		})
	return c, nil
}

// RenameCategory changes a category's name.
func (s *Store) RenameCategory(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename category: empty name: %w", ErrInvalid)
	}
	old, ok := s.Category(id)
	if !ok {
		return fmt.Errorf("rename category %s: %w", id, ErrNotFound)
	}
	if old.Name == name {
		return nil
	}
	s.commit("updateCategory",
		func(st *state) {
			if c, ok := st.categories[id]; ok {
				c.Name = name
				st.categories[id] = c
			}
		},
		func(ctx context.Context, r Remote) error { return r.UpdateCategory(ctx, id, name) },
		&undo.Action{
			Undo: func(context.Context) error { return s.RenameCategory(id, old.Name) },
			Redo: func(context.Context) error { return s.RenameCategory(id, name) },
		})
	return nil
}

// DeleteCategory removes a category and its bookmarks. A group left without
// members is removed as well.
func (s *Store) DeleteCategory(id string) error {
	s.mu.Lock()
	c, ok := s.cur.categories[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete category %s: %w", id, ErrNotFound)
	}
	bms := s.cur.bookmarksIn(id)
	emptied := s.emptiedGroupsLocked([]string{id})
	s.mu.Unlock()

	s.commit("deleteCategory",
		func(st *state) {
			st.deleteCategory(id)
			for _, g := range emptied {
				dropGroupIfEmpty(st, g.ID)
			}
		},
		func(ctx context.Context, r Remote) error { return r.DeleteCategory(ctx, id) },
		&undo.Action{
			Undo: func(context.Context) error {
				return s.restore(restoreSet{groups: emptied, categories: []types.Category{c}, bookmarks: bms})
			},
			Redo: func(context.Context) error { return s.DeleteCategory(id) },
		})
	return nil
}

// ReorderCategory sets a category's order key among its siblings.
func (s *Store) ReorderCategory(id string, ord float64) error {
	old, ok := s.Category(id)
	if !ok {
		return fmt.Errorf("reorder category %s: %w", id, ErrNotFound)
	}
	if old.Order == ord {
		return nil
	}
	s.commit("reorderCategory",
		func(st *state) {
			if c, ok := st.categories[id]; ok {
				c.Order = ord
				st.categories[id] = c
			}
		},
		func(ctx context.Context, r Remote) error { return r.ReorderCategory(ctx, id, ord) },
		&undo.Action{
			Undo: func(context.Context) error { return s.ReorderCategory(id, old.Order) },
			Redo: func(context.Context) error { return s.ReorderCategory(id, ord) },
		})
	return nil
}

// SetCategoryGroup moves a category into groupID, or to the top level when
// groupID is empty. A nil ord appends it after its new siblings. A group
// left without members is removed.
func (s *Store) SetCategoryGroup(categoryID, groupID string, ord *float64) error {
	s.mu.Lock()
	c, ok := s.cur.categories[categoryID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("set category group %s: %w", categoryID, ErrNotFound)
	}
	if groupID != "" {
		if _, ok := s.cur.groups[groupID]; !ok {
			s.mu.Unlock()
			return fmt.Errorf("set category group: group %s: %w", groupID, ErrNotFound)
		}
	}
	var newOrder float64
	switch {
	case ord != nil:
		newOrder = *ord
	case groupID != "":
		sibs, _ := order.Without(s.cur.members(groupID), categoryID)
		newOrder = order.Midpoint(sibs, len(sibs))
	default:
		sibs, _ := order.Without(s.view.Layout, categoryID)
		newOrder = order.Midpoint(sibs, len(sibs))
	}
	if c.GroupID == groupID && c.Order == newOrder {
		s.mu.Unlock()
		return nil
	}
	var emptied []types.Group
	if c.GroupID != groupID {
		emptied = s.emptiedGroupsLocked([]string{categoryID})
	}
	s.mu.Unlock()

	s.commit("setCategoryGroup",
		func(st *state) {
			if cur, ok := st.categories[categoryID]; ok {
				cur.GroupID = groupID
				cur.Order = newOrder
				st.categories[categoryID] = cur
			}
			for _, g := range emptied {
				dropGroupIfEmpty(st, g.ID)
			}
		},
		func(ctx context.Context, r Remote) error {
			return r.SetCategoryGroup(ctx, categoryID, groupID, &newOrder)
		},
		&undo.Action{
			Undo: func(context.Context) error {
				return s.restore(restoreSet{groups: emptied, categories: []types.Category{c}})
			},
			Redo: func(context.Context) error { return s.SetCategoryGroup(categoryID, groupID, &newOrder) },
		})
	return nil
}

// --- Groups ---

// CreateGroupFromCategories creates a group at order ord containing
// categoryIDs in the given sequence. Groups emptied by the move are removed.
func (s *Store) CreateGroupFromCategories(name string, categoryIDs []string, ord float64) (types.Group, error) {
	if len(categoryIDs) == 0 {
		return types.Group{}, fmt.Errorf("create group: no categories: %w", ErrInvalid)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultGroupName
	}
	seen := make(map[string]bool, len(categoryIDs))
	s.mu.Lock()
	for _, id := range categoryIDs {
		if seen[id] {
			s.mu.Unlock()
			return types.Group{}, fmt.Errorf("create group: duplicate category %s: %w", id, ErrInvalid)
		}
		seen[id] = true
		if _, ok := s.cur.categories[id]; !ok {
			s.mu.Unlock()
			return types.Group{}, fmt.Errorf("create group: category %s: %w", id, ErrNotFound)
		}
	}
	g := types.Group{ID: s.newID(), Name: name, Order: ord}
	s.mu.Unlock()

	s.createGroup(g, categoryIDs)
	return g, nil
}

func (s *Store) createGroup(g types.Group, categoryIDs []string) {
	ids := append([]string(nil), categoryIDs...)

	s.mu.Lock()
	old := make([]types.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.cur.categories[id]; ok {
			old = append(old, c)
		}
	}
	emptied := s.emptiedGroupsLocked(ids)
	s.mu.Unlock()

	s.commit("createGroupFromCategories",
		func(st *state) {
			st.groups[g.ID] = g
			for i, id := range ids {
				if c, ok := st.categories[id]; ok {
					c.GroupID = g.ID
					c.Order = float64(i + 1)
					st.categories[id] = c
				}
			}
			for _, eg := range emptied {
				dropGroupIfEmpty(st, eg.ID)
			}
		},
		func(ctx context.Context, r Remote) error { return r.CreateGroupFromCategories(ctx, g, ids) },
		&undo.Action{
			Undo: func(context.Context) error {
				return s.restore(restoreSet{groups: emptied, categories: old, dropGroups: []string{g.ID}})
			},
			Redo: func(context.Context) error {
				s.createGroup(g, ids)
				return nil
			},
		})
}

// RenameGroup changes a group's name.
func (s *Store) RenameGroup(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename group: empty name: %w", ErrInvalid)
	}
	old, ok := s.Group(id)
	if !ok {
		return fmt.Errorf("rename group %s: %w", id, ErrNotFound)
	}
	if old.Name == name {
		return nil
	}
	s.commit("updateGroup",
		func(st *state) {
			if g, ok := st.groups[id]; ok {
				g.Name = name
				st.groups[id] = g
			}
		},
		func(ctx context.Context, r Remote) error { return r.UpdateGroup(ctx, id, name) },
		&undo.Action{
			Undo: func(context.Context) error { return s.RenameGroup(id, old.Name) },
			Redo: func(context.Context) error { return s.RenameGroup(id, name) },
		})
	return nil
}

// DeleteGroup removes a group. Its members become standalone categories
// with their other fields unchanged.
func (s *Store) DeleteGroup(id string) error {
	s.mu.Lock()
	g, ok := s.cur.groups[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete group %s: %w", id, ErrNotFound)
	}
	members := s.cur.members(id)
	s.mu.Unlock()

	s.commit("deleteGroup",
		func(st *state) { st.deleteGroup(id) },
		func(ctx context.Context, r Remote) error { return r.DeleteGroup(ctx, id) },
		&undo.Action{
			Undo: func(context.Context) error {
				return s.restore(restoreSet{groups: []types.Group{g}, categories: members})
			},
			Redo: func(context.Context) error { return s.DeleteGroup(id) },
		})
	return nil
}

// ReorderGroup sets a group's order key among the top-level items.
func (s *Store) ReorderGroup(id string, ord float64) error {
	old, ok := s.Group(id)
	if !ok {
		return fmt.Errorf("reorder group %s: %w", id, ErrNotFound)
	}
	if old.Order == ord {
		return nil
	}
	s.commit("reorderGroup",
		func(st *state) {
			if g, ok := st.groups[id]; ok {
				g.Order = ord
				st.groups[id] = g
			}
		},
		func(ctx context.Context, r Remote) error { return r.ReorderGroup(ctx, id, ord) },
		&undo.Action{
			Undo: func(context.Context) error { return s.ReorderGroup(id, old.Order) },
			Redo: func(context.Context) error { return s.ReorderGroup(id, ord) },
		})
	return nil
}

// MergeGroups dissolves source into target. Source members are appended
// after target's members, keeping their relative order.
func (s *Store) MergeGroups(sourceID, targetID string) error {
	if sourceID == targetID {
		return fmt.Errorf("merge group %s into itself: %w", sourceID, ErrInvalid)
	}
	s.mu.Lock()
	src, ok := s.cur.groups[sourceID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("merge groups: source %s: %w", sourceID, ErrNotFound)
	}
	if _, ok := s.cur.groups[targetID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("merge groups: target %s: %w", targetID, ErrNotFound)
	}
	srcMembers := s.cur.members(sourceID)
	moved := MergedOrders(s.cur.members(targetID), srcMembers)
	s.mu.Unlock()

	s.commit("mergeGroups",
		func(st *state) {
			for id, ord := range moved {
				if c, ok := st.categories[id]; ok {
					c.GroupID = targetID
					c.Order = ord
					st.categories[id] = c
				}
			}
			st.deleteGroup(sourceID)
		},
		func(ctx context.Context, r Remote) error { return r.MergeGroups(ctx, sourceID, targetID) },
		&undo.Action{
			Undo: func(context.Context) error {
				return s.restore(restoreSet{groups: []types.Group{src}, categories: srcMembers})
			},
			Redo: func(context.Context) error { return s.MergeGroups(sourceID, targetID) },
		})
	return nil
}

// MergedOrders returns the order keys source members receive when appended
// after target members: last target order + 1, + 2, ... The backend uses
// the same rule so the echo matches.
func MergedOrders(target, source []types.Category) map[string]float64 {
	var last float64
	if len(target) > 0 {
		last = target[len(target)-1].Order
	}
	out := make(map[string]float64, len(source))
	for i, c := range source {
		out[c.ID] = last + float64(i+1)
	}
	return out
}

// --- Bookmarks ---

// CreateBookmark appends a bookmark to a category. An empty title falls
// back to the URL.
func (s *Store) CreateBookmark(categoryID, title, url, icon string) (types.Bookmark, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return types.Bookmark{}, fmt.Errorf("create bookmark: empty url: %w", ErrInvalid)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = url
	}
	s.mu.Lock()
	if _, ok := s.cur.categories[categoryID]; !ok {
		s.mu.Unlock()
		return types.Bookmark{}, fmt.Errorf("create bookmark: category %s: %w", categoryID, ErrNotFound)
	}
	sibs := s.cur.bookmarksIn(categoryID)
	b := types.Bookmark{
		ID:         s.newID(),
		Title:      title,
		URL:        url,
		Icon:       icon,
		CategoryID: categoryID,
		Order:      order.Midpoint(sibs, len(sibs)),
	}
	s.mu.Unlock()

	s.commit("createBookmark",
		func(st *state) { st.bookmarks[b.ID] = b },
		func(ctx context.Context, r Remote) error { return r.CreateBookmark(ctx, b) },
		&undo.Action{
			Undo: func(context.Context) error { return s.DeleteBookmark(b.ID) },
			Redo: func(context.Context) error { return s.restore(restoreSet{bookmarks: []types.Bookmark{b}}) },
		})
	return b, nil
}

// UpdateBookmark changes a bookmark's title, URL and icon.
func (s *Store) UpdateBookmark(id, title, url, icon string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("update bookmark: empty url: %w", ErrInvalid)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = url
	}
	old, ok := s.Bookmark(id)
	if !ok {
		return fmt.Errorf("update bookmark %s: %w", id, ErrNotFound)
	}
	if old.Title == title && old.URL == url && old.Icon == icon {
		return nil
	}
	s.commit("updateBookmark",
		func(st *state) {
			if b, ok := st.bookmarks[id]; ok {
				b.Title, b.URL, b.Icon = title, url, icon
				st.bookmarks[id] = b
			}
		},
		func(ctx context.Context, r Remote) error { return r.UpdateBookmark(ctx, id, title, url, icon) },
		&undo.Action{
			Undo: func(context.Context) error { return s.UpdateBookmark(id, old.Title, old.URL, old.Icon) },
			Redo: func(context.Context) error { return s.UpdateBookmark(id, title, url, icon) },
		})
	return nil
}

// DeleteBookmark removes a bookmark.
func (s *Store) DeleteBookmark(id string) error {
	b, ok := s.Bookmark(id)
	if !ok {
		return fmt.Errorf("delete bookmark %s: %w", id, ErrNotFound)
	}
	s.commit("deleteBookmark",
		func(st *state) { delete(st.bookmarks, id) },
		func(ctx context.Context, r Remote) error { return r.DeleteBookmark(ctx, id) },
		&undo.Action{
			Undo: func(context.Context) error { return s.restore(restoreSet{bookmarks: []types.Bookmark{b}}) },
			Redo: func(context.Context) error { return s.DeleteBookmark(id) },
		})
	return nil
}

// ReorderBookmark sets a bookmark's order key. A non-empty categoryID that
// differs from the current one moves it across categories.
func (s *Store) ReorderBookmark(id string, ord float64, categoryID string) error {
	s.mu.Lock()
	old, ok := s.cur.bookmarks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("reorder bookmark %s: %w", id, ErrNotFound)
	}
	target := categoryID
	if target == "" {
		target = old.CategoryID
	}
	if _, ok := s.cur.categories[target]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("reorder bookmark: category %s: %w", target, ErrNotFound)
	}
	s.mu.Unlock()

	if old.Order == ord && old.CategoryID == target {
		return nil
	}
	cross := ""
	if target != old.CategoryID {
		cross = target
	}
	s.commit("reorderBookmark",
		func(st *state) {
			if b, ok := st.bookmarks[id]; ok {
				b.Order = ord
				b.CategoryID = target
				st.bookmarks[id] = b
			}
		},
		func(ctx context.Context, r Remote) error { return r.ReorderBookmark(ctx, id, ord, cross) },
		&undo.Action{
			Undo: func(context.Context) error { return s.ReorderBookmark(id, old.Order, old.CategoryID) },
			Redo: func(context.Context) error { return s.ReorderBookmark(id, ord, target) },
		})
	return nil
}

// SetPreferences replaces the user's preferences. Not undoable.
func (s *Store) SetPreferences(p types.Preferences) {
	s.commit("updatePreferences",
		func(st *state) { st.prefs = p },
		func(ctx context.Context, r Remote) error { return r.UpdatePreferences(ctx, p) },
		nil)
}

// --- Restore ---

// restoreSet describes entities to put back exactly as captured.
type restoreSet struct {
	groups     []types.Group
	categories []types.Category
	bookmarks  []types.Bookmark
	dropGroups []string // deleted after the categories are restored
}

// restore puts captured entities back. The remote calls are derived from
// what is currently present so the backend converges on the same values.
func (s *Store) restore(rs restoreSet) error {
	var calls []func(ctx context.Context, r Remote) error

	s.mu.Lock()
	for _, g := range rs.groups {
		cur, ok := s.cur.groups[g.ID]
		switch {
		case !ok:
			calls = append(calls, func(ctx context.Context, r Remote) error { return r.CreateGroup(ctx, g) })
		default:
			if cur.Name != g.Name {
				calls = append(calls, func(ctx context.Context, r Remote) error { return r.UpdateGroup(ctx, g.ID, g.Name) })
			}
			if cur.Order != g.Order {
				calls = append(calls, func(ctx context.Context, r Remote) error { return r.ReorderGroup(ctx, g.ID, g.Order) })
			}
		}
	}
	for _, c := range rs.categories {
		cur, ok := s.cur.categories[c.ID]
		if !ok {
			calls = append(calls, func(ctx context.Context, r Remote) error { return r.CreateCategory(ctx, c) })
			continue
		}
		if cur.Name != c.Name {
			calls = append(calls, func(ctx context.Context, r Remote) error { return r.UpdateCategory(ctx, c.ID, c.Name) })
		}
		switch {
		case cur.GroupID != c.GroupID:
			ord := c.Order
			calls = append(calls, func(ctx context.Context, r Remote) error {
				return r.SetCategoryGroup(ctx, c.ID, c.GroupID, &ord)
			})
		case cur.Order != c.Order:
			calls = append(calls, func(ctx context.Context, r Remote) error { return r.ReorderCategory(ctx, c.ID, c.Order) })
		}
	}
	for _, b := range rs.bookmarks {
		cur, ok := s.cur.bookmarks[b.ID]
		if !ok {
			calls = append(calls, func(ctx context.Context, r Remote) error { return r.CreateBookmark(ctx, b) })
			continue
		}
		if cur.Title != b.Title || cur.URL != b.URL || cur.Icon != b.Icon {
			calls = append(calls, func(ctx context.Context, r Remote) error {
				return r.UpdateBookmark(ctx, b.ID, b.Title, b.URL, b.Icon)
			})
		}
		if cur.Order != b.Order || cur.CategoryID != b.CategoryID {
			cross := ""
			if cur.CategoryID != b.CategoryID {
				cross = b.CategoryID
			}
			calls = append(calls, func(ctx context.Context, r Remote) error {
				return r.ReorderBookmark(ctx, b.ID, b.Order, cross)
			})
		}
	}
	// The backend drops a group when its last member leaves, so a group the
	// moves above empty needs no delete of its own.
	movedOut := make(map[string]string, len(rs.categories))
	for _, c := range rs.categories {
		if cur, ok := s.cur.categories[c.ID]; ok && cur.GroupID != c.GroupID {
			movedOut[c.ID] = cur.GroupID
		}
	}
	for _, id := range rs.dropGroups {
		if _, ok := s.cur.groups[id]; !ok {
			continue
		}
		kept := false
		for _, c := range s.cur.categories {
			if c.GroupID == id && movedOut[c.ID] != id {
				kept = true
				break
			}
		}
		if kept {
			calls = append(calls, func(ctx context.Context, r Remote) error { return r.DeleteGroup(ctx, id) })
		}
	}
	s.mu.Unlock()

	s.commit("restore",
		func(st *state) {
			for _, g := range rs.groups {
				st.groups[g.ID] = g
			}
			for _, c := range rs.categories {
				st.categories[c.ID] = c
			}
			for _, b := range rs.bookmarks {
				st.bookmarks[b.ID] = b
			}
			for _, id := range rs.dropGroups {
				st.deleteGroup(id)
			}
		},
		func(ctx context.Context, r Remote) error {
			for _, call := range calls {
				if err := call(ctx, r); err != nil {
					return err
				}
			}
			return nil
		},
		nil)
	return nil
}

// --- helpers ---

// emptiedGroupsLocked returns the groups that would have no members left
// once every category in ids has moved out of them.
func (s *Store) emptiedGroupsLocked(ids []string) []types.Group {
	leaving := make(map[string]bool, len(ids))
	for _, id := range ids {
		leaving[id] = true
	}
	var out []types.Group
	seen := make(map[string]bool)
	for _, id := range ids {
		c, ok := s.cur.categories[id]
		if !ok || c.GroupID == "" || seen[c.GroupID] {
			continue
		}
		seen[c.GroupID] = true
		remaining := 0
		for _, m := range s.cur.members(c.GroupID) {
			if !leaving[m.ID] {
				remaining++
			}
		}
		if remaining > 0 {
			continue
		}
		if g, ok := s.cur.groups[c.GroupID]; ok {
			out = append(out, g)
		}
	}
	return out
}

func dropGroupIfEmpty(st *state, id string) {
	for _, c := range st.categories {
		if c.GroupID == id {
			return
		}
	}
	delete(st.groups, id)
}
