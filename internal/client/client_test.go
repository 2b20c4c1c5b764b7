package client

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/lotas/lesezeichen/internal/auth"
	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/server"
	"github.com/lotas/lesezeichen/internal/storage"
	"github.com/lotas/lesezeichen/internal/store"
	"github.com/lotas/lesezeichen/internal/types"
	"github.com/lotas/lesezeichen/internal/undo"
)

var secret = []byte("test-secret")

func backend(t *testing.T) string {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "backend.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ts := httptest.NewServer(server.New(db, secret, 0).Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := auth.Mint(secret, user, time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return tok
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// connect wires a sync-mode store to a fresh client.
func connect(t *testing.T, url, user string) (*store.Store, *Client) {
	t.Helper()
	var st *store.Store
	ready := make(chan struct{})
	c, err := Dial(context.Background(), url, token(t, user), func(m protocol.Message) {
		<-ready
		if err := Deliver(st, m); err != nil {
			t.Errorf("Deliver: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	st = store.New(store.Options{Mode: types.ModeSync, Remote: c})
	close(ready)
	t.Cleanup(func() {
		st.Close()
		c.Close()
	})
	eventually(t, "initial feeds", st.Ready)
	return st, c
}

func TestStoreRoundTrip(t *testing.T) {
	url := backend(t)
	st, c := connect(t, url, "alice")

	cat, err := st.CreateCategory("Reading")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := st.CreateBookmark(cat.ID, "Go", "https://go.dev", ""); err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	st.Wait()
	assert.Equal(t, st.Pending(), 0)

	// The echo matches the optimistic copy.
	v := st.View()
	assert.Equal(t, len(v.Categories), 1)
	assert.Equal(t, v.Categories[0].ID, cat.ID)
	assert.Equal(t, len(v.Bookmarks), 1)
	assert.Equal(t, c.Revision(), int64(2))

	// A second device of the same user converges.
	other, _ := connect(t, url, "alice")
	assert.Equal(t, other.Digest(), st.Digest())

	rev, err := c.Watermark(context.Background())
	assert.Equal(t, err, nil)
	assert.Equal(t, rev, int64(2))
}

func TestGroupOpsConverge(t *testing.T) {
	url := backend(t)
	st, _ := connect(t, url, "alice")

	a, _ := st.CreateCategory("A")
	b, _ := st.CreateCategory("B")
	g, err := st.CreateGroupFromCategories("", []string{b.ID, a.ID}, 1)
	if err != nil {
		t.Fatalf("CreateGroupFromCategories: %v", err)
	}
	st.Wait()

	members := st.Members(g.ID)
	assert.Equal(t, len(members), 2)
	assert.Equal(t, members[0].ID, b.ID)

	if err := st.DeleteCategory(b.ID); err != nil {
		t.Fatal(err)
	}
	if err := st.DeleteCategory(a.ID); err != nil {
		t.Fatal(err)
	}
	st.Wait()
	_, ok := st.Group(g.ID)
	assert.Equal(t, ok, false)
	assert.Equal(t, len(st.View().Groups), 0)
}

func TestAckErrors(t *testing.T) {
	url := backend(t)
	_, alice := connect(t, url, "alice")
	_, bob := connect(t, url, "bob")
	ctx := context.Background()

	err := alice.DeleteCategory(ctx, "missing")
	assert.Equal(t, errors.Is(err, store.ErrNotFound), true)
	assert.Equal(t, strings.Count(err.Error(), "not found"), 1)

	if err := alice.CreateCategory(ctx, types.Category{ID: "mine", Name: "Mine", Order: 1}); err != nil {
		t.Fatal(err)
	}
	err = bob.UpdateCategory(ctx, "mine", "stolen")
	assert.Equal(t, errors.Is(err, ErrUnauthorized), true)

	err = alice.ReorderCategory(ctx, "mine", 2)
	assert.Equal(t, err, nil)
}

func TestAckErrorText(t *testing.T) {
	ok := false
	tests := []struct {
		ack  protocol.Message
		want string
	}{
		{protocol.Message{OK: &ok, Code: protocol.CodeNotFound, Error: "not found"}, "delete group: not found"},
		{protocol.Message{OK: &ok, Code: protocol.CodeNotFound, Error: "group g: not found"}, "delete group: group g: not found"},
		{protocol.Message{OK: &ok, Code: protocol.CodeNotFound}, "delete group: not found"},
		{protocol.Message{OK: &ok, Code: protocol.CodeInvalid, Error: "name required"}, "delete group: name required: invalid"},
	}
	for _, tt := range tests {
		err := ackError("delete group", tt.ack)
		assert.Equal(t, err.Error(), tt.want)
	}
	assert.Equal(t, errors.Is(ackError("x", tests[1].ack), store.ErrNotFound), true)
}

func TestUndoGroupFormationConverges(t *testing.T) {
	url := backend(t)
	var (
		mu     sync.Mutex
		failed []error
	)
	var st *store.Store
	ready := make(chan struct{})
	c, err := Dial(context.Background(), url, token(t, "alice"), func(m protocol.Message) {
		<-ready
		if err := Deliver(st, m); err != nil {
			t.Errorf("Deliver: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	hist := undo.New(0)
	st = store.New(store.Options{
		Mode:    types.ModeSync,
		Remote:  c,
		History: hist,
		OnRemoteError: func(op string, err error) {
			mu.Lock()
			failed = append(failed, fmt.Errorf("%s: %w", op, err))
			mu.Unlock()
		},
	})
	close(ready)
	t.Cleanup(func() {
		st.Close()
		c.Close()
	})
	eventually(t, "initial feeds", st.Ready)

	a, _ := st.CreateCategory("A")
	b, _ := st.CreateCategory("B")
	g, err := st.CreateGroupFromCategories("", []string{b.ID, a.ID}, 1)
	if err != nil {
		t.Fatalf("CreateGroupFromCategories: %v", err)
	}
	st.Wait()

	if err := hist.Undo(context.Background()); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	st.Wait()
	eventually(t, "group dropped", func() bool {
		_, ok := st.Group(g.ID)
		return !ok && st.Pending() == 0
	})

	mu.Lock()
	assert.Equal(t, len(failed), 0)
	mu.Unlock()
	got, _ := st.Category(a.ID)
	assert.Equal(t, got.GroupID, "")
	got, _ = st.Category(b.ID)
	assert.Equal(t, got.GroupID, "")

	// Redo forms the group again on the backend.
	if err := hist.Redo(context.Background()); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	st.Wait()
	assert.Equal(t, len(st.Members(g.ID)), 2)
	mu.Lock()
	assert.Equal(t, len(failed), 0)
	mu.Unlock()
}

func TestClosedClient(t *testing.T) {
	url := backend(t)
	c, err := Dial(context.Background(), url, token(t, "alice"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.Close()
	<-c.Done()

	err = c.DeleteGroup(context.Background(), "g")
	assert.Equal(t, errors.Is(err, ErrClosed), true)
}

type recordingSink struct {
	got []string
}

func (r *recordingSink) ApplyCategories(cs []types.Category) { r.got = append(r.got, "categories") }
func (r *recordingSink) ApplyBookmarks(bs []types.Bookmark)  { r.got = append(r.got, "bookmarks") }
func (r *recordingSink) ApplyGroups(gs []types.Group)        { r.got = append(r.got, "groups") }
func (r *recordingSink) ApplyPreferences(p types.Preferences) {
	r.got = append(r.got, "prefs")
}

func TestDeliver(t *testing.T) {
	s := &recordingSink{}
	m, _ := protocol.Feed(protocol.TypeGroups, []types.Group{{ID: "g", Name: "G", Order: 1}}, 1)
	assert.Equal(t, Deliver(s, m), nil)
	assert.Equal(t, Deliver(s, protocol.Message{Type: protocol.TypeBookmarks, Items: []byte(`{}`)}) != nil, true)
	assert.Equal(t, Deliver(s, protocol.Message{Type: "weird"}) != nil, true)
	assert.Equal(t, s.got, []string{"groups"})
}
