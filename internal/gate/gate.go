// Package gate defers externally triggered renders while a drag is active.
package gate

import "sync"

// Gate holds at most one deferred render. The latest request wins.
type Gate struct {
	mu       sync.Mutex
	active   bool
	deferred func()
}

// New returns an idle Gate.
func New() *Gate {
	return &Gate{}
}

// RequestRender runs fn now, or stores it until the drag ends.
func (g *Gate) RequestRender(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	if g.active {
		g.deferred = fn
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	fn()
}

// BeginDrag starts deferring renders.
func (g *Gate) BeginDrag() {
	g.mu.Lock()
	g.active = true
	g.mu.Unlock()
}

// EndDrag stops deferring and runs the deferred render, if any, once.
func (g *Gate) EndDrag() {
	g.mu.Lock()
	fn := g.deferred
	g.deferred = nil
	g.active = false
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Active reports whether a drag is in progress.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Pending reports whether a render is waiting for the drag to end.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deferred != nil
}
