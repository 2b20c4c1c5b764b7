// Package store holds the client-side view of groups, categories and
// bookmarks, applies optimistic mutations and reconciles them with the
// backend subscriptions.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/gate"
	"github.com/lotas/lesezeichen/internal/types"
	"github.com/lotas/lesezeichen/internal/undo"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

const remoteTimeout = 15 * time.Second

// feed identifies one of the three entity subscriptions.
type feed uint8

const (
	feedCategories feed = 1 << iota
	feedBookmarks
	feedGroups

	allFeeds = feedCategories | feedBookmarks | feedGroups
)

func (f feed) String() string {
	switch f {
	case feedCategories:
		return "categories"
	case feedBookmarks:
		return "bookmarks"
	case feedGroups:
		return "groups"
	case 0:
		return "preferences"
	}
	return "unknown"
}

// pendingOp is an optimistic mutation whose remote call has not settled.
type pendingOp struct {
	seq   uint64
	op    string
	apply func(*state)
}

// Options wires a Store to its collaborators. Every field is optional.
type Options struct {
	Mode      types.Mode
	Remote    Remote
	Persister Persister
	History   *undo.Stack
	Gate      *gate.Gate

	// Render receives the current view after every state change that is
	// allowed to render.
	Render func(types.View)

	// OnRemoteError is called from the dispatcher goroutine when a remote
	// mutation fails. The optimistic state is left in place.
	OnRemoteError func(op string, err error)

	// NewID generates entity ids. Defaults to ULIDs.
	NewID func() string
}

// Store is the single source of truth for the rendered tree.
//
// Mutations and feed deliveries are expected to come from one UI loop.
// Reads are safe from any goroutine and never observe a half-applied
// rebuild.
type Store struct {
	mu   sync.Mutex
	mode types.Mode
	cur  *state
	view types.View

	// Sync mode inputs.
	base    *state
	have    feed
	pending []pendingOp
	seq     uint64

	activeTab map[string]string

	remote        Remote
	persist       Persister
	history       *undo.Stack
	gate          *gate.Gate
	render        func(types.View)
	onRemoteError func(op string, err error)
	newID         func() string

	queue *dispatcher
}

// New creates a Store. In local mode it starts empty and ready; call
// UseLocal to load persisted data. In sync mode it waits for all three
// entity feeds before the first render.
func New(opts Options) *Store {
	s := &Store{
		remote:        opts.Remote,
		persist:       opts.Persister,
		history:       opts.History,
		gate:          opts.Gate,
		render:        opts.Render,
		onRemoteError: opts.OnRemoteError,
		newID:         opts.NewID,
		activeTab:     make(map[string]string),
	}
	if s.newID == nil {
		s.newID = func() string { return ulid.Make().String() }
	}
	s.queue = newDispatcher(s.runRemote)
	s.reset(opts.Mode, nil)
	return s
}

// Close waits for queued remote calls and stops the dispatcher.
func (s *Store) Close() {
	s.queue.close()
}

// Wait blocks until every queued remote call has settled.
func (s *Store) Wait() {
	s.queue.wait()
}

// reset switches mode under the lock. snap seeds local mode.
func (s *Store) reset(mode types.Mode, snap *types.Snapshot) {
	s.mu.Lock()
	s.mode = mode
	s.pending = nil
	s.have = 0
	if mode == types.ModeLocal {
		s.base = nil
		if snap != nil {
			s.cur = stateFromSnapshot(*snap)
		} else {
			s.cur = newState()
		}
	} else {
		s.base = newState()
		s.cur = newState()
	}
	s.refreshLocked()
	s.mu.Unlock()
}

// UseLocal switches to local mode with snap as the truth. Undo history is
// cleared because its closures may reference ids from the other mode.
func (s *Store) UseLocal(snap types.Snapshot) {
	s.reset(types.ModeLocal, &snap)
	if s.history != nil {
		s.history.Clear()
	}
	applog.Info("store.mode", "mode", "local", "categories", len(snap.Categories), "bookmarks", len(snap.Bookmarks))
	s.requestRender()
}

// UseSync switches to sync mode. Nothing renders until every entity feed
// has delivered at least once.
func (s *Store) UseSync() {
	s.reset(types.ModeSync, nil)
	if s.history != nil {
		s.history.Clear()
	}
	applog.Info("store.mode", "mode", "sync")
}

// Mode returns the active mode.
func (s *Store) Mode() types.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Ready reports whether the view may be rendered.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Ready
}

// View returns a consistent read of the current state.
func (s *Store) View() types.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Snapshot returns the current entity set.
func (s *Store) Snapshot() types.Snapshot {
	return s.View().Snapshot
}

// Digest returns a sha256 over the canonical JSON of the current snapshot.
func (s *Store) Digest() string {
	snap := s.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Category returns a category by id.
func (s *Store) Category(id string) (types.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cur.categories[id]
	return c, ok
}

// Group returns a group by id.
func (s *Store) Group(id string) (types.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.cur.groups[id]
	return g, ok
}

// Bookmark returns a bookmark by id.
func (s *Store) Bookmark(id string) (types.Bookmark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.cur.bookmarks[id]
	return b, ok
}

// BookmarksIn returns a category's bookmarks sorted by (order, id).
func (s *Store) BookmarksIn(categoryID string) []types.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.bookmarksIn(categoryID)
}

// Members returns a group's categories sorted by (order, id).
func (s *Store) Members(groupID string) []types.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.members(groupID)
}

// ActiveTab returns the visible category of a group, defaulting to its
// first member.
func (s *Store) ActiveTab(groupID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.cur.members(groupID)
	if len(ms) == 0 {
		return ""
	}
	want := s.activeTab[groupID]
	for _, c := range ms {
		if c.ID == want {
			return want
		}
	}
	return ms[0].ID
}

// SetActiveTab selects the visible category of a group. It is view state
// only: it is not persisted and not undoable.
func (s *Store) SetActiveTab(groupID, categoryID string) {
	s.mu.Lock()
	if s.activeTab[groupID] == categoryID {
		s.mu.Unlock()
		return
	}
	s.activeTab[groupID] = categoryID
	s.mu.Unlock()
	s.requestRender()
}

// ApplyCategories replaces the categories feed payload.
func (s *Store) ApplyCategories(cs []types.Category) {
	s.applyFeed(feedCategories, len(cs), func(b *state) {
		b.categories = make(map[string]types.Category, len(cs))
		for _, c := range cs {
			b.categories[c.ID] = c
		}
	})
}

// ApplyBookmarks replaces the bookmarks feed payload.
func (s *Store) ApplyBookmarks(bs []types.Bookmark) {
	s.applyFeed(feedBookmarks, len(bs), func(b *state) {
		b.bookmarks = make(map[string]types.Bookmark, len(bs))
		for _, bm := range bs {
			b.bookmarks[bm.ID] = bm
		}
	})
}

// ApplyGroups replaces the groups feed payload.
func (s *Store) ApplyGroups(gs []types.Group) {
	s.applyFeed(feedGroups, len(gs), func(b *state) {
		b.groups = make(map[string]types.Group, len(gs))
		for _, g := range gs {
			b.groups[g.ID] = g
		}
	})
}

// ApplyPreferences replaces the preferences feed payload. It does not gate
// the first render.
func (s *Store) ApplyPreferences(p types.Preferences) {
	s.applyFeed(0, 1, func(b *state) { b.prefs = p })
}

func (s *Store) applyFeed(f feed, n int, set func(*state)) {
	s.mu.Lock()
	if s.mode != types.ModeSync {
		s.mu.Unlock()
		applog.Info("store.feed.ignored", "feed", f, "mode", "local")
		return
	}
	set(s.base)
	s.have |= f
	if s.have&allFeeds != allFeeds {
		s.mu.Unlock()
		applog.Info("store.feed.waiting", "feed", f, "items", n)
		return
	}
	s.rebuildLocked()
	pending := len(s.pending)
	s.mu.Unlock()

	applog.Info("store.rebuild", "feed", f, "items", n, "pending", pending)
	s.requestRender()
}

// rebuildLocked recomputes the visible state as the latest payloads plus
// every unsettled optimistic mutation.
func (s *Store) rebuildLocked() {
	cur := s.base.clone()
	for _, p := range s.pending {
		p.apply(cur)
	}
	s.cur = cur
	s.refreshLocked()
}

// refreshLocked derives the view from cur.
func (s *Store) refreshLocked() {
	snap := s.cur.snapshot()
	s.view = types.View{
		Snapshot: snap,
		Layout:   buildLayout(snap),
		Ready:    s.mode == types.ModeLocal || s.have&allFeeds == allFeeds,
	}
}

func (s *Store) requestRender() {
	if s.render == nil {
		return
	}
	fn := func() {
		v := s.View()
		if !v.Ready {
			return
		}
		s.render(v)
	}
	if s.gate != nil {
		s.gate.RequestRender(fn)
		return
	}
	fn()
}

// commit applies an optimistic mutation, persists or dispatches it, and
// records its inverse.
func (s *Store) commit(op string, apply func(*state), call func(ctx context.Context, r Remote) error, inv *undo.Action) {
	s.mu.Lock()
	apply(s.cur)
	mode := s.mode
	var seq uint64
	if mode == types.ModeSync {
		s.seq++
		seq = s.seq
		s.pending = append(s.pending, pendingOp{seq: seq, op: op, apply: apply})
	}
	s.refreshLocked()
	snap := s.view.Snapshot
	s.mu.Unlock()

	if mode == types.ModeLocal && s.persist != nil {
		if err := s.persist.SaveLocal(snap); err != nil {
			applog.Error("store.persist", err, "op", op)
		}
	}

	if inv != nil && s.history != nil {
		inv.Name = op
		s.history.Push(*inv)
	}

	s.requestRender()

	if mode != types.ModeSync {
		return
	}
	if s.remote == nil || call == nil {
		s.settle(seq)
		return
	}
	remote := s.remote
	s.queue.enqueue(remoteJob{
		seq: seq,
		op:  op,
		call: func(ctx context.Context) error {
			return call(ctx, remote)
		},
	})
}

func (s *Store) runRemote(j remoteJob) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()

	err := j.call(ctx)
	s.settle(j.seq)
	if err != nil {
		applog.Error("store.remote", err, "op", j.op, "seq", j.seq)
		if s.onRemoteError != nil {
			s.onRemoteError(j.op, err)
		}
		return
	}
	applog.Info("store.remote.ok", "op", j.op, "seq", j.seq)
}

// settle drops a pending mutation from the overlay. The visible state is
// not rebuilt here: the next feed delivery reconciles it.
func (s *Store) settle(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pending {
		if p.seq == seq {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of optimistic mutations awaiting the backend.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// PushLocal uploads the current local snapshot to r, parents first. It is
// used when a local-mode user switches to sync.
func (s *Store) PushLocal(ctx context.Context, r Remote) error {
	s.mu.Lock()
	if s.mode != types.ModeLocal {
		s.mu.Unlock()
		return fmt.Errorf("push local: store is in %s mode", s.mode)
	}
	snap := s.cur.snapshot()
	s.mu.Unlock()

	for _, g := range snap.Groups {
		if err := r.CreateGroup(ctx, g); err != nil {
			return fmt.Errorf("push group %q: %w", g.Name, err)
		}
	}
	for _, c := range snap.Categories {
		if err := r.CreateCategory(ctx, c); err != nil {
			return fmt.Errorf("push category %q: %w", c.Name, err)
		}
	}
	for _, b := range snap.Bookmarks {
		if err := r.CreateBookmark(ctx, b); err != nil {
			return fmt.Errorf("push bookmark %q: %w", b.URL, err)
		}
	}
	if err := r.UpdatePreferences(ctx, snap.Preferences); err != nil {
		return fmt.Errorf("push preferences: %w", err)
	}
	applog.Info("store.push_local", "groups", len(snap.Groups), "categories", len(snap.Categories), "bookmarks", len(snap.Bookmarks))
	return nil
}
