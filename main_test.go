package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/lotas/lesezeichen/internal/config"
	"github.com/lotas/lesezeichen/internal/types"
)

func TestLocalSessionPersistsAcrossOpens(t *testing.T) {
	cfg := config.Config{DBPath: filepath.Join(t.TempDir(), "b.db")}

	s, err := openCLI(cfg, time.Second)
	assert.Equal(t, err, nil)
	assert.Equal(t, s.store.Mode(), types.ModeLocal)
	cat, err := s.store.CreateCategory("Inbox")
	assert.Equal(t, err, nil)
	_, err = s.store.CreateBookmark(cat.ID, "Go", "https://go.dev", "")
	assert.Equal(t, err, nil)
	assert.Equal(t, s.finish(), nil)
	s.Close()

	s, err = openCLI(cfg, time.Second)
	assert.Equal(t, err, nil)
	defer s.Close()
	v := s.store.View()
	got, ok := findCategory(v, "inbox")
	assert.Equal(t, ok, true)
	assert.Equal(t, got.ID, cat.ID)
	assert.Equal(t, len(s.store.BookmarksIn(cat.ID)), 1)
}

func TestSyncSessionNeedsToken(t *testing.T) {
	_, err := openCLI(config.Config{ServerURL: "ws://127.0.0.1:1/ws"}, time.Second)
	assert.NotEqual(t, err, nil)
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"https://go.dev", "--category", "Inbox", "--title=Go"})
	assert.Equal(t, got, []string{"--category", "Inbox", "--title=Go", "https://go.dev"})
}
