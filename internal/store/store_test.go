package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/lotas/lesezeichen/internal/gate"
	"github.com/lotas/lesezeichen/internal/types"
	"github.com/lotas/lesezeichen/internal/undo"
)

// fakeRemote records every call by name. When hold is set, calls block
// until it is closed.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string
	fail  error
	hold  chan struct{}
}

func (f *fakeRemote) record(format string, args ...any) error {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.fail
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) CreateCategory(_ context.Context, c types.Category) error {
	return f.record("createCategory %s", c.ID)
}
func (f *fakeRemote) UpdateCategory(_ context.Context, id, name string) error {
	return f.record("updateCategory %s %s", id, name)
}
func (f *fakeRemote) DeleteCategory(_ context.Context, id string) error {
	return f.record("deleteCategory %s", id)
}
func (f *fakeRemote) ReorderCategory(_ context.Context, id string, order float64) error {
	return f.record("reorderCategory %s %g", id, order)
}
func (f *fakeRemote) CreateGroup(_ context.Context, g types.Group) error {
	return f.record("createGroup %s", g.ID)
}
func (f *fakeRemote) UpdateGroup(_ context.Context, id, name string) error {
	return f.record("updateGroup %s %s", id, name)
}
func (f *fakeRemote) DeleteGroup(_ context.Context, id string) error {
	return f.record("deleteGroup %s", id)
}
func (f *fakeRemote) ReorderGroup(_ context.Context, id string, order float64) error {
	return f.record("reorderGroup %s %g", id, order)
}
func (f *fakeRemote) MergeGroups(_ context.Context, sourceID, targetID string) error {
	return f.record("mergeGroups %s %s", sourceID, targetID)
}
func (f *fakeRemote) CreateGroupFromCategories(_ context.Context, g types.Group, ids []string) error {
	return f.record("createGroupFromCategories %s %v", g.ID, ids)
}
func (f *fakeRemote) CreateBookmark(_ context.Context, b types.Bookmark) error {
	return f.record("createBookmark %s", b.ID)
}
func (f *fakeRemote) UpdateBookmark(_ context.Context, id, title, url, icon string) error {
	return f.record("updateBookmark %s", id)
}
func (f *fakeRemote) DeleteBookmark(_ context.Context, id string) error {
	return f.record("deleteBookmark %s", id)
}
func (f *fakeRemote) ReorderBookmark(_ context.Context, id string, order float64, categoryID string) error {
	return f.record("reorderBookmark %s %g %s", id, order, categoryID)
}
func (f *fakeRemote) SetCategoryGroup(_ context.Context, categoryID, groupID string, order *float64) error {
	return f.record("setCategoryGroup %s %s", categoryID, groupID)
}
func (f *fakeRemote) UpdatePreferences(_ context.Context, p types.Preferences) error {
	return f.record("updatePreferences %s", p.Theme)
}

type fakePersister struct {
	saves int
	last  types.Snapshot
}

func (p *fakePersister) SaveLocal(snap types.Snapshot) error {
	p.saves++
	p.last = snap
	return nil
}

type fixture struct {
	store   *Store
	history *undo.Stack
	remote  *fakeRemote
	persist *fakePersister
	renders []types.View
}

func newFixture(t *testing.T, mode types.Mode, g *gate.Gate) *fixture {
	t.Helper()
	f := &fixture{
		history: undo.New(0),
		remote:  &fakeRemote{},
		persist: &fakePersister{},
	}
	n := 0
	f.store = New(Options{
		Mode:      mode,
		Remote:    f.remote,
		Persister: f.persist,
		History:   f.history,
		Gate:      g,
		Render:    func(v types.View) { f.renders = append(f.renders, v) },
		NewID: func() string {
			n++
			return fmt.Sprintf("new%02d", n)
		},
	})
	t.Cleanup(f.store.Close)
	return f
}

func idsOf[T interface{ SortID() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.SortID())
	}
	return out
}

func seed() types.Snapshot {
	return types.Snapshot{
		Groups: []types.Group{{ID: "g1", Name: "Work", Order: 2}},
		Categories: []types.Category{
			{ID: "a", Name: "A", Order: 1},
			{ID: "p", Name: "P", Order: 1, GroupID: "g1"},
			{ID: "r", Name: "R", Order: 2, GroupID: "g1"},
			{ID: "q", Name: "Q", Order: 3},
		},
		Bookmarks: []types.Bookmark{
			{ID: "b1", Title: "one", URL: "https://one", CategoryID: "a", Order: 1},
			{ID: "b2", Title: "two", URL: "https://two", CategoryID: "a", Order: 2},
			{ID: "b3", Title: "three", URL: "https://three", CategoryID: "a", Order: 3},
			{ID: "b4", Title: "four", URL: "https://four", CategoryID: "q", Order: 1},
		},
	}
}

func TestSyncRendersOnlyAfterAllFeeds(t *testing.T) {
	orders := [][]string{
		{"categories", "bookmarks", "groups"},
		{"groups", "categories", "bookmarks"},
		{"bookmarks", "groups", "categories"},
	}
	snap := seed()
	for _, seq := range orders {
		f := newFixture(t, types.ModeSync, nil)
		f.store.ApplyPreferences(types.Preferences{Theme: "dark"})
		for i, name := range seq {
			switch name {
			case "categories":
				f.store.ApplyCategories(snap.Categories)
			case "bookmarks":
				f.store.ApplyBookmarks(snap.Bookmarks)
			case "groups":
				f.store.ApplyGroups(snap.Groups)
			}
			if i < 2 {
				assert.Equal(t, len(f.renders), 0)
				assert.Equal(t, f.store.Ready(), false)
			}
		}
		assert.Equal(t, len(f.renders), 1)
		v := f.renders[0]
		assert.Equal(t, v.Ready, true)
		assert.Equal(t, len(v.Categories), 4)
		assert.Equal(t, len(v.Bookmarks), 4)
		assert.Equal(t, v.Preferences.Theme, "dark")
		assert.Equal(t, idsOf(v.Layout), []string{"a", "g1", "q"})
	}
}

func TestLocalFeedsIgnored(t *testing.T) {
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())
	f.store.ApplyCategories(nil)
	assert.Equal(t, len(f.store.Snapshot().Categories), 4)
}

func TestLocalMutationPersistsAndUndoes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	c, err := f.store.CreateCategory("  Reading ")
	assert.Equal(t, err, nil)
	assert.Equal(t, c.Name, "Reading")
	assert.Equal(t, c.Order, float64(4)) // after q at 3
	b, err := f.store.CreateBookmark(c.ID, "", "https://go.dev", "")
	assert.Equal(t, err, nil)
	assert.Equal(t, b.Title, "https://go.dev")
	assert.Equal(t, b.Order, float64(1))

	assert.Equal(t, f.persist.saves, 2)
	assert.Equal(t, len(f.persist.last.Categories), 5)
	assert.Equal(t, len(f.remote.Calls()), 0)

	assert.Equal(t, f.history.Undo(ctx), nil)
	_, ok := f.store.Bookmark(b.ID)
	assert.Equal(t, ok, false)
	assert.Equal(t, f.history.Undo(ctx), nil)
	_, ok = f.store.Category(c.ID)
	assert.Equal(t, ok, false)

	assert.Equal(t, f.history.Redo(ctx), nil)
	assert.Equal(t, f.history.Redo(ctx), nil)
	got, ok := f.store.Bookmark(b.ID)
	assert.Equal(t, ok, true)
	assert.Equal(t, got, b)
	u, r := f.history.Len()
	assert.Equal(t, u, 2)
	assert.Equal(t, r, 0)
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	_, err := f.store.CreateCategory("   ")
	assert.Equal(t, errors.Is(err, ErrInvalid), true)
	_, err = f.store.CreateBookmark("missing", "x", "https://x", "")
	assert.Equal(t, errors.Is(err, ErrNotFound), true)
	assert.Equal(t, errors.Is(f.store.DeleteGroup("nope"), ErrNotFound), true)
	assert.Equal(t, errors.Is(f.store.MergeGroups("g1", "g1"), ErrInvalid), true)
	_, err = f.store.CreateGroupFromCategories("", []string{"a", "a"}, 1)
	assert.Equal(t, errors.Is(err, ErrInvalid), true)

	u, _ := f.history.Len()
	assert.Equal(t, u, 0)
}

func TestNoOpMutationsAreNotRecorded(t *testing.T) {
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	assert.Equal(t, f.store.RenameCategory("a", "A"), nil)
	assert.Equal(t, f.store.ReorderBookmark("b1", 1, ""), nil)
	assert.Equal(t, f.store.ReorderGroup("g1", 2), nil)

	u, _ := f.history.Len()
	assert.Equal(t, u, 0)
	assert.Equal(t, f.persist.saves, 0)
}

func TestReorderBookmarkBetweenSiblings(t *testing.T) {
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	// Move b1 between b2 (2) and b3 (3).
	assert.Equal(t, f.store.ReorderBookmark("b1", 2.5, ""), nil)
	assert.Equal(t, idsOf(f.store.BookmarksIn("a")), []string{"b2", "b1", "b3"})
}

func TestCrossCategoryMoveAndUndo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	assert.Equal(t, f.store.ReorderBookmark("b2", 0.5, "q"), nil)
	assert.Equal(t, idsOf(f.store.BookmarksIn("a")), []string{"b1", "b3"})
	assert.Equal(t, idsOf(f.store.BookmarksIn("q")), []string{"b2", "b4"})

	assert.Equal(t, f.history.Undo(ctx), nil)
	assert.Equal(t, idsOf(f.store.BookmarksIn("a")), []string{"b1", "b2", "b3"})
	assert.Equal(t, idsOf(f.store.BookmarksIn("q")), []string{"b4"})
}

func TestDeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	assert.Equal(t, f.store.DeleteCategory("a"), nil)
	assert.Equal(t, len(f.store.Snapshot().Bookmarks), 1)

	assert.Equal(t, f.history.Undo(ctx), nil)
	assert.Equal(t, idsOf(f.store.BookmarksIn("a")), []string{"b1", "b2", "b3"})
}

func TestLastMemberLeavingRemovesGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	assert.Equal(t, f.store.SetCategoryGroup("p", "", nil), nil)
	_, ok := f.store.Group("g1")
	assert.Equal(t, ok, true)

	assert.Equal(t, f.store.DeleteCategory("r"), nil)
	_, ok = f.store.Group("g1")
	assert.Equal(t, ok, false)
	assert.Equal(t, idsOf(f.store.View().Layout), []string{"a", "q", "p"})

	assert.Equal(t, f.history.Undo(ctx), nil)
	assert.Equal(t, idsOf(f.store.Members("g1")), []string{"r"})
	assert.Equal(t, f.history.Undo(ctx), nil)
	assert.Equal(t, idsOf(f.store.Members("g1")), []string{"p", "r"})
}

func TestDeleteGroupUngroupsMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	assert.Equal(t, f.store.DeleteGroup("g1"), nil)
	p, _ := f.store.Category("p")
	assert.Equal(t, p.GroupID, "")
	assert.Equal(t, p.Order, float64(1))
	assert.Equal(t, len(f.store.Snapshot().Categories), 4)

	assert.Equal(t, f.history.Undo(ctx), nil)
	assert.Equal(t, idsOf(f.store.Members("g1")), []string{"p", "r"})
}

func TestCreateGroupFromCategories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	// Dropping a onto q: target first.
	g, err := f.store.CreateGroupFromCategories("", []string{"q", "a"}, 3)
	assert.Equal(t, err, nil)
	assert.Equal(t, g.Name, DefaultGroupName)
	assert.Equal(t, idsOf(f.store.Members(g.ID)), []string{"q", "a"})
	assert.Equal(t, idsOf(f.store.View().Layout), []string{"g1", g.ID})

	assert.Equal(t, f.history.Undo(ctx), nil)
	_, ok := f.store.Group(g.ID)
	assert.Equal(t, ok, false)
	assert.Equal(t, idsOf(f.store.View().Layout), []string{"a", "g1", "q"})

	assert.Equal(t, f.history.Redo(ctx), nil)
	assert.Equal(t, idsOf(f.store.Members(g.ID)), []string{"q", "a"})
}

func TestCreateGroupEmptiesSourceGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	g, err := f.store.CreateGroupFromCategories("Mixed", []string{"p", "r"}, 5)
	assert.Equal(t, err, nil)
	_, ok := f.store.Group("g1")
	assert.Equal(t, ok, false)

	assert.Equal(t, f.history.Undo(ctx), nil)
	_, ok = f.store.Group(g.ID)
	assert.Equal(t, ok, false)
	assert.Equal(t, idsOf(f.store.Members("g1")), []string{"p", "r"})
}

func TestMergeGroups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, types.ModeLocal, nil)
	snap := seed()
	snap.Groups = append(snap.Groups, types.Group{ID: "g2", Name: "Home", Order: 4})
	snap.Categories = append(snap.Categories,
		types.Category{ID: "x", Name: "X", Order: 1, GroupID: "g2"},
		types.Category{ID: "y", Name: "Y", Order: 2, GroupID: "g2"},
	)
	f.store.UseLocal(snap)

	assert.Equal(t, f.store.MergeGroups("g2", "g1"), nil)
	assert.Equal(t, idsOf(f.store.Members("g1")), []string{"p", "r", "x", "y"})
	y, _ := f.store.Category("y")
	assert.Equal(t, y.Order, float64(4))
	_, ok := f.store.Group("g2")
	assert.Equal(t, ok, false)

	assert.Equal(t, f.history.Undo(ctx), nil)
	assert.Equal(t, idsOf(f.store.Members("g2")), []string{"x", "y"})
	assert.Equal(t, idsOf(f.store.Members("g1")), []string{"p", "r"})
}

func TestActiveTabDefaultsToFirstMember(t *testing.T) {
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())

	assert.Equal(t, f.store.ActiveTab("g1"), "p")
	f.store.SetActiveTab("g1", "r")
	assert.Equal(t, f.store.ActiveTab("g1"), "r")
	assert.Equal(t, f.store.DeleteCategory("r"), nil)
	assert.Equal(t, f.store.ActiveTab("g1"), "p")
}

func TestModeSwitchClearsHistory(t *testing.T) {
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())
	assert.Equal(t, f.store.RenameCategory("a", "Alpha"), nil)
	assert.Equal(t, f.history.CanUndo(), true)

	f.store.UseSync()
	assert.Equal(t, f.history.CanUndo(), false)
	assert.Equal(t, f.store.Mode(), types.ModeSync)
	assert.Equal(t, f.store.Ready(), false)
}

func syncFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, types.ModeSync, nil)
	snap := seed()
	f.store.ApplyCategories(snap.Categories)
	f.store.ApplyBookmarks(snap.Bookmarks)
	f.store.ApplyGroups(snap.Groups)
	return f
}

func TestSyncDispatchesInOrder(t *testing.T) {
	f := syncFixture(t)

	assert.Equal(t, f.store.ReorderBookmark("b1", 2.5, ""), nil)
	assert.Equal(t, f.store.RenameGroup("g1", "Office"), nil)
	f.store.Wait()

	assert.Equal(t, f.remote.Calls(), []string{
		"reorderBookmark b1 2.5 ",
		"updateGroup g1 Office",
	})
	assert.Equal(t, f.store.Pending(), 0)
	assert.Equal(t, f.persist.saves, 0)
}

func TestOptimisticChangeSurvivesRacingFeed(t *testing.T) {
	f := syncFixture(t)
	f.remote.hold = make(chan struct{})

	b, err := f.store.CreateBookmark("q", "go", "https://go.dev", "")
	assert.Equal(t, err, nil)
	assert.Equal(t, f.store.Pending(), 1)

	// A delivery that predates the create must not drop it.
	f.store.ApplyBookmarks(seed().Bookmarks)
	assert.Equal(t, idsOf(f.store.BookmarksIn("q")), []string{"b4", b.ID})

	close(f.remote.hold)
	f.store.Wait()
	assert.Equal(t, f.store.Pending(), 0)

	// Echo arrives.
	f.store.ApplyBookmarks(append(seed().Bookmarks, b))
	assert.Equal(t, idsOf(f.store.BookmarksIn("q")), []string{"b4", b.ID})
}

func TestRemoteFailureIsReported(t *testing.T) {
	f := newFixture(t, types.ModeSync, nil)
	var mu sync.Mutex
	var failed []string
	f.store.onRemoteError = func(op string, err error) {
		mu.Lock()
		failed = append(failed, op)
		mu.Unlock()
	}
	snap := seed()
	f.store.ApplyCategories(snap.Categories)
	f.store.ApplyBookmarks(snap.Bookmarks)
	f.store.ApplyGroups(snap.Groups)
	f.remote.fail = errors.New("boom")

	assert.Equal(t, f.store.DeleteBookmark("b1"), nil)
	f.store.Wait()
	mu.Lock()
	assert.Equal(t, failed, []string{"deleteBookmark"})
	mu.Unlock()

	// Optimistic state stays until the next delivery reconciles it.
	_, ok := f.store.Bookmark("b1")
	assert.Equal(t, ok, false)
	f.store.ApplyBookmarks(snap.Bookmarks)
	_, ok = f.store.Bookmark("b1")
	assert.Equal(t, ok, true)
}

func TestUndoInSyncModeIssuesRestoreCalls(t *testing.T) {
	ctx := context.Background()
	f := syncFixture(t)

	assert.Equal(t, f.store.DeleteGroup("g1"), nil)
	assert.Equal(t, f.history.Undo(ctx), nil)
	f.store.Wait()

	assert.Equal(t, f.remote.Calls(), []string{
		"deleteGroup g1",
		"createGroup g1",
		"setCategoryGroup p g1",
		"setCategoryGroup r g1",
	})
	assert.Equal(t, idsOf(f.store.Members("g1")), []string{"p", "r"})
}

func TestUndoGroupFormationLeavesDropToBackend(t *testing.T) {
	ctx := context.Background()
	f := syncFixture(t)

	g, err := f.store.CreateGroupFromCategories("", []string{"q", "a"}, 3)
	assert.Equal(t, err, nil)
	assert.Equal(t, f.history.Undo(ctx), nil)
	f.store.Wait()

	// Moving the last member out drops the group on the backend.
	assert.Equal(t, f.remote.Calls(), []string{
		"createGroupFromCategories " + g.ID + " [q a]",
		"setCategoryGroup q ",
		"setCategoryGroup a ",
	})
	_, ok := f.store.Group(g.ID)
	assert.Equal(t, ok, false)
}

func TestRestoreDeletesGroupThatKeepsMembers(t *testing.T) {
	f := syncFixture(t)

	// p stays in g1, so the group must be deleted outright.
	assert.Equal(t, f.store.restore(restoreSet{
		categories: []types.Category{{ID: "r", Name: "R", Order: 2}},
		dropGroups: []string{"g1"},
	}), nil)
	f.store.Wait()
	assert.Equal(t, f.remote.Calls(), []string{
		"setCategoryGroup r ",
		"deleteGroup g1",
	})
	_, ok := f.store.Group("g1")
	assert.Equal(t, ok, false)
	got, _ := f.store.Category("p")
	assert.Equal(t, got.GroupID, "")
}

func TestMixedSequenceUndoRedoRoundTrip(t *testing.T) {
	modes := []struct {
		name  string
		setup func(t *testing.T) *fixture
	}{
		{"local", func(t *testing.T) *fixture {
			f := newFixture(t, types.ModeLocal, nil)
			f.store.UseLocal(seed())
			return f
		}},
		{"sync", syncFixture},
	}
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			ctx := context.Background()
			f := m.setup(t)
			before := f.store.Snapshot()

			g, err := f.store.CreateGroupFromCategories("Pair", []string{"q", "a"}, 3)
			assert.Equal(t, err, nil)
			steps := []func() error{
				func() error { return f.store.SetCategoryGroup("p", "", nil) },
				func() error { return f.store.ReorderBookmark("b1", 2.5, "") },
				func() error { return f.store.ReorderBookmark("b3", 0.5, "q") },
				func() error { return f.store.RenameGroup(g.ID, "Reading") },
				func() error { return f.store.DeleteCategory("r") },
				func() error { return f.store.DeleteCategory("a") },
				func() error { return f.store.DeleteBookmark("b4") },
			}
			for i, step := range steps {
				if err := step(); err != nil {
					t.Fatalf("step %d: %v", i, err)
				}
			}
			f.store.Wait()
			after := f.store.Snapshot()
			n := len(steps) + 1
			u, _ := f.history.Len()
			assert.Equal(t, u, n)

			// g1 lost both members along the way.
			_, ok := f.store.Group("g1")
			assert.Equal(t, ok, false)

			for i := 0; i < n; i++ {
				assert.Equal(t, f.history.Undo(ctx), nil)
			}
			f.store.Wait()
			assert.Equal(t, f.store.Snapshot(), before)

			for i := 0; i < n; i++ {
				assert.Equal(t, f.history.Redo(ctx), nil)
			}
			f.store.Wait()
			assert.Equal(t, f.store.Snapshot(), after)
			u, r := f.history.Len()
			assert.Equal(t, u, n)
			assert.Equal(t, r, 0)
		})
	}
}

func TestGateDefersRenderDuringDrag(t *testing.T) {
	g := gate.New()
	f := newFixture(t, types.ModeLocal, g)
	f.store.UseLocal(seed())
	before := len(f.renders)

	g.BeginDrag()
	assert.Equal(t, f.store.RenameCategory("a", "One"), nil)
	assert.Equal(t, f.store.RenameCategory("a", "Two"), nil)
	assert.Equal(t, len(f.renders), before)

	g.EndDrag()
	assert.Equal(t, len(f.renders), before+1)
	last := f.renders[len(f.renders)-1]
	assert.Equal(t, last.Categories[0].Name, "Two")
}

func TestPushLocalUploadsParentsFirst(t *testing.T) {
	f := newFixture(t, types.ModeLocal, nil)
	f.store.UseLocal(seed())
	r := &fakeRemote{}

	assert.Equal(t, f.store.PushLocal(context.Background(), r), nil)
	calls := r.Calls()
	assert.Equal(t, calls[0], "createGroup g1")
	assert.Equal(t, calls[len(calls)-1], "updatePreferences ")
	assert.Equal(t, len(calls), 1+4+4+1)

	f.store.UseSync()
	assert.NotEqual(t, f.store.PushLocal(context.Background(), r), nil)
}
