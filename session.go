package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/client"
	"github.com/lotas/lesezeichen/internal/config"
	"github.com/lotas/lesezeichen/internal/gate"
	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/snapshot"
	"github.com/lotas/lesezeichen/internal/storage"
	"github.com/lotas/lesezeichen/internal/store"
	"github.com/lotas/lesezeichen/internal/types"
	"github.com/lotas/lesezeichen/internal/undo"
)

// session is an opened store plus whatever backs it: a database in local
// mode or a websocket connection in sync mode.
type session struct {
	store   *store.Store
	history *undo.Stack
	gate    *gate.Gate
	db      *sql.DB
	client  *client.Client
	label   string

	failures *remoteFailures
}

// remoteFailures collects backend errors reported by the dispatcher.
type remoteFailures struct {
	mu   sync.Mutex
	errs []error
}

func (f *remoteFailures) record(op string, err error) {
	f.mu.Lock()
	f.errs = append(f.errs, fmt.Errorf("%s: %w", op, err))
	f.mu.Unlock()
}

func (f *remoteFailures) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return errors.Join(f.errs...)
}

// openSession builds the store for cfg. opts supplies the render and
// error callbacks; the session fills in the rest. onFeed receives
// subscription messages in sync mode and must not block for long.
func openSession(ctx context.Context, cfg config.Config, onFeed func(protocol.Message), opts store.Options) (*session, error) {
	s := &session{history: undo.New(0), gate: gate.New()}
	opts.History = s.history
	opts.Gate = s.gate

	if cfg.ServerURL == "" {
		db, err := storage.OpenDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		snap, savedAt, err := snapshot.Load(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load bookmarks: %w", err)
		}
		opts.Mode = types.ModeLocal
		opts.Persister = snapshot.Persister{DB: db}
		s.db = db
		s.store = store.New(opts)
		s.store.UseLocal(snap)
		s.label = cfg.DBPath
		applog.Info("session.open", "mode", "local", "db", cfg.DBPath, "saved_at", savedAt.Format(time.RFC3339))
		return s, nil
	}

	if cfg.Token == "" {
		return nil, errors.New("LESEZEICHEN_TOKEN is required when LESEZEICHEN_SERVER is set")
	}
	c, err := client.Dial(ctx, cfg.ServerURL, cfg.Token, onFeed)
	if err != nil {
		return nil, err
	}
	opts.Mode = types.ModeSync
	opts.Remote = c
	s.client = c
	s.store = store.New(opts)
	s.store.UseSync()
	s.label = cfg.ServerURL
	applog.Info("session.open", "mode", "sync", "server", cfg.ServerURL)
	return s, nil
}

// Close waits for queued backend calls and releases the connection or
// database.
func (s *session) Close() {
	s.store.Close()
	if s.client != nil {
		s.client.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// openCLI opens a session for a one-shot command and waits until the
// store has a complete view. In sync mode feeds are queued and applied on
// the calling goroutine; once the view is ready later feeds are dropped.
func openCLI(cfg config.Config, timeout time.Duration) (*session, error) {
	feeds := make(chan protocol.Message, 64)
	onFeed := func(m protocol.Message) {
		select {
		case feeds <- m:
		default:
		}
	}

	failures := &remoteFailures{}
	opts := store.Options{OnRemoteError: failures.record}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := openSession(ctx, cfg, onFeed, opts)
	if err != nil {
		return nil, err
	}
	s.failures = failures
	if s.client == nil {
		return s, nil
	}

	for !s.store.Ready() {
		select {
		case m := <-feeds:
			if err := client.Deliver(s.store, m); err != nil {
				applog.Error("cli.feed", err, "type", m.Type)
			}
		case <-s.client.Done():
			s.Close()
			return nil, fmt.Errorf("connection closed: %v", s.client.Err())
		case <-ctx.Done():
			s.Close()
			return nil, fmt.Errorf("timed out waiting for %s (%s)", cfg.ServerURL, timeout)
		}
	}
	return s, nil
}

// finish waits for queued backend calls and reports the ones that failed.
func (s *session) finish() error {
	s.store.Wait()
	if s.failures == nil {
		return nil
	}
	return s.failures.err()
}

// findCategory returns the category called name, case-insensitively.
func findCategory(v types.View, name string) (types.Category, bool) {
	for _, c := range v.Categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return types.Category{}, false
}
