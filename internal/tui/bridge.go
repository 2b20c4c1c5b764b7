package tui

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lotas/lesezeichen/internal/drag"
	"github.com/lotas/lesezeichen/internal/protocol"
	"github.com/lotas/lesezeichen/internal/types"
)

// Messages posted from background goroutines.
type feedMsg struct{ msg protocol.Message }
type remoteErrMsg struct {
	op  string
	err error
}
type disconnectedMsg struct{ err error }
type timerMsg struct{ t *timer }

// Bridge carries events from the sync client, the store dispatcher and
// drag timers into the UI loop, and holds the last view the store
// rendered. Create it before the store so its methods can be passed as
// store and client callbacks.
type Bridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	view types.View
	seen bool
}

// NewBridge creates an open Bridge.
func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, 256),
		done:   make(chan struct{}),
	}
}

// Render records v as the view to draw. The store calls it from the UI
// loop, so it never blocks.
func (b *Bridge) Render(v types.View) {
	b.mu.Lock()
	b.view = v
	b.seen = true
	b.mu.Unlock()
}

// View returns the last rendered view and whether one has arrived.
func (b *Bridge) View() (types.View, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view, b.seen
}

// Feed queues a subscription message for delivery to the store.
func (b *Bridge) Feed(m protocol.Message) { b.post(feedMsg{msg: m}) }

// RemoteError reports a failed backend mutation.
func (b *Bridge) RemoteError(op string, err error) { b.post(remoteErrMsg{op: op, err: err}) }

// Disconnected reports that the sync connection ended.
func (b *Bridge) Disconnected(err error) { b.post(disconnectedMsg{err: err}) }

// Close drops any further events.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) post(msg tea.Msg) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

// listen waits for the next background event.
func (b *Bridge) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.done:
			return nil
		default:
		}
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// timer is a drag timer whose callback runs on the UI loop.
type timer struct {
	fn      func()
	stopped atomic.Bool
	t       *time.Timer
}

func (t *timer) Stop() bool {
	live := !t.stopped.Swap(true)
	t.t.Stop()
	return live
}

// fire runs the callback unless the timer was stopped after it expired.
func (t *timer) fire() {
	if t.stopped.Swap(true) {
		return
	}
	t.fn()
}

// scheduler delivers drag timers through the Bridge.
type scheduler struct{ b *Bridge }

func (s scheduler) AfterFunc(d time.Duration, fn func()) drag.Timer {
	t := &timer{fn: fn}
	t.t = time.AfterFunc(d, func() { s.b.post(timerMsg{t: t}) })
	return t
}

func (s scheduler) Now() time.Time { return time.Now() }
