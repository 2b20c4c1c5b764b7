// Package drag turns pointer gestures over the rendered layout into single
// entity store mutations.
//
// A Controller is driven from one UI loop: pointer handlers, key handlers
// and Scheduler callbacks must never run concurrently.
package drag

import (
	"time"

	"github.com/lotas/lesezeichen/internal/applog"
)

// State is the gesture state.
type State int

const (
	Idle State = iota
	Armed
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	}
	return "unknown"
}

// PointerType is the input device of a pointer event.
type PointerType int

const (
	Mouse PointerType = iota
	Pen
	Touch
)

// PointerEvent is one pointer sample.
type PointerEvent struct {
	ID   int
	Type PointerType
	Pos  Point
}

// Config holds the gesture tunables.
type Config struct {
	Threshold        float64       // movement before armed becomes dragging
	ReorderBand      float64       // fraction of an element's height at each edge that reorders
	TabTolerance     float64       // band around a tab strip that still accepts drops
	EdgeBand         float64       // viewport edge distance that triggers auto-scroll
	MaxScroll        float64       // scroll per frame at the very edge
	Frame            time.Duration // auto-scroll frame interval
	HoverDwell       time.Duration // time over an inactive tab before it activates
	ClickSuppression time.Duration // window after a mouse or pen drop that swallows the click
}

// DefaultConfig returns the standard tunables.
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		ReorderBand:      0.35,
		TabTolerance:     24,
		EdgeBand:         60,
		MaxScroll:        24,
		Frame:            16 * time.Millisecond,
		HoverDwell:       600 * time.Millisecond,
		ClickSuppression: 300 * time.Millisecond,
	}
}

// Gate is notified when a drag starts and ends so renders can be deferred.
type Gate interface {
	BeginDrag()
	EndDrag()
}

type noGate struct{}

func (noGate) BeginDrag() {}
func (noGate) EndDrag()   {}

// Controller is the drag state machine. The zero value is not usable; use
// New.
type Controller struct {
	cfg     Config
	geo     Geometry
	surface Surface
	sched   Scheduler
	store   Store
	gate    Gate

	state   State
	subject Subject
	pointer PointerEvent
	start   Point
	last    Point
	intent  Intent

	hoverGroup string
	hoverCat   string
	hoverTimer Timer

	scroll float64
	frame  Timer

	suppressID    string
	suppressUntil time.Time

	onDrop func(op string, err error)
}

// New creates an idle Controller.
func New(cfg Config, geo Geometry, surface Surface, sched Scheduler, st Store, g Gate) *Controller {
	if sched == nil {
		sched = SystemScheduler{}
	}
	if g == nil {
		g = noGate{}
	}
	return &Controller{cfg: cfg, geo: geo, surface: surface, sched: sched, store: st, gate: g}
}

// OnDrop registers a callback run after every drop that reached the store.
func (c *Controller) OnDrop(fn func(op string, err error)) {
	c.onDrop = fn
}

// State returns the gesture state.
func (c *Controller) State() State { return c.state }

// Intent returns the drop intent for the latest pointer position.
func (c *Controller) Intent() Intent { return c.intent }

// Subject returns the entity being dragged, if any.
func (c *Controller) Subject() (Subject, bool) {
	return c.subject, c.state != Idle
}

// PointerDown arms a gesture on s. A second pointer while a gesture is in
// progress cancels it.
func (c *Controller) PointerDown(ev PointerEvent, s Subject) {
	if c.state != Idle {
		if ev.ID != c.pointer.ID {
			applog.Info("drag.cancel", "reason", "multitouch", "subject", s.ID)
			c.Cancel()
		}
		return
	}
	c.state = Armed
	c.subject = s
	c.pointer = ev
	c.start = ev.Pos
	c.last = ev.Pos
	c.intent = Intent{}
}

// PointerMove advances the gesture.
func (c *Controller) PointerMove(ev PointerEvent) {
	if c.state == Idle || ev.ID != c.pointer.ID {
		return
	}
	c.last = ev.Pos
	if c.state == Armed {
		if ev.Pos.Dist(c.start) < c.cfg.Threshold {
			return
		}
		c.begin()
	}
	c.surface.MoveProxy(ev.Pos)
	c.update()
	c.updateHover()
	c.updateScroll()
}

// PointerUp drops the subject. Releasing an armed gesture is a plain
// click and does nothing.
func (c *Controller) PointerUp(ev PointerEvent) {
	if c.state == Idle || ev.ID != c.pointer.ID {
		return
	}
	if c.state == Armed {
		c.reset()
		return
	}
	c.last = ev.Pos
	c.update()
	in, s := c.intent, c.subject
	d, ok := plan(c.store, s, in)

	c.clearAffordances()
	c.suppress()
	c.reset()

	if ok {
		err := d.run()
		if err != nil {
			applog.Error("drag.drop", err, "op", d.op, "subject", s.ID)
		} else {
			applog.Info("drag.drop", "op", d.op, "subject", s.ID, "intent", in)
		}
		if c.onDrop != nil {
			c.onDrop(d.op, err)
		}
	}
	// The deferred render sees the mutation.
	c.gate.EndDrag()
}

// PointerCancel aborts the gesture owned by ev's pointer.
func (c *Controller) PointerCancel(ev PointerEvent) {
	if c.state == Idle || ev.ID != c.pointer.ID {
		return
	}
	c.Cancel()
}

// KeyDown cancels an active gesture on Escape.
func (c *Controller) KeyDown(key string) {
	if key == "esc" || key == "Escape" {
		c.Cancel()
	}
}

// VisibilityChanged cancels an active gesture when the view is hidden.
func (c *Controller) VisibilityChanged(hidden bool) {
	if hidden {
		c.Cancel()
	}
}

// Cancel aborts any gesture without mutating anything.
func (c *Controller) Cancel() {
	switch c.state {
	case Idle:
		return
	case Armed:
		c.reset()
		return
	}
	applog.Info("drag.cancel", "subject", c.subject.ID)
	c.clearAffordances()
	c.suppress()
	c.reset()
	c.gate.EndDrag()
}

// SuppressClick reports whether a click on id should be swallowed because
// a drag just ended on it.
func (c *Controller) SuppressClick(id string) bool {
	if c.suppressID == "" || id != c.suppressID {
		return false
	}
	return c.sched.Now().Before(c.suppressUntil)
}

func (c *Controller) begin() {
	c.state = Dragging
	c.gate.BeginDrag()
	c.surface.ShowProxy(c.subject, c.last)
	applog.Info("drag.start", "kind", c.subject.Kind, "subject", c.subject.ID)
}

// update recomputes the intent from the latest pointer position and
// refreshes the indicator when it changes.
func (c *Controller) update() {
	in := c.hitTest(c.last)
	if _, ok := plan(c.store, c.subject, in); !ok {
		in = Intent{}
	}
	if in == c.intent {
		return
	}
	c.intent = in
	if in.Kind == IntentNone {
		c.surface.ClearIndicator()
		return
	}
	c.surface.ShowIndicator(in)
}

func (c *Controller) hitTest(p Point) Intent {
	if c.geo == nil {
		return Intent{}
	}
	switch c.subject.Kind {
	case SubjectBookmark:
		return hitBookmark(c.geo.Grids(), p)
	case SubjectCategory:
		if in := hitTabStrip(c.geo.TabStrips(), p, c.cfg.TabTolerance); in.Kind != IntentNone {
			return in
		}
		return hitTopLevel(c.geo.TopLevel(), p, c.cfg.ReorderBand, c.subject)
	case SubjectGroup:
		return hitTopLevel(c.geo.TopLevel(), p, c.cfg.ReorderBand, c.subject)
	}
	return Intent{}
}

// updateHover arms or cancels the hover-to-switch timer for bookmark drags.
func (c *Controller) updateHover() {
	var group, cat string
	if c.subject.Kind == SubjectBookmark && c.geo != nil {
		group, cat, _ = hoverTab(c.geo.TabStrips(), c.last)
	}
	if group == c.hoverGroup && cat == c.hoverCat {
		return
	}
	c.stopHover()
	if cat == "" {
		return
	}
	c.hoverGroup, c.hoverCat = group, cat
	c.hoverTimer = c.sched.AfterFunc(c.cfg.HoverDwell, func() {
		if c.state != Dragging || c.hoverGroup != group || c.hoverCat != cat {
			return
		}
		c.hoverTimer = nil
		c.surface.ActivateTab(group, cat)
		applog.Info("drag.hover.switch", "group", group, "category", cat)
	})
}

func (c *Controller) stopHover() {
	if c.hoverTimer != nil {
		c.hoverTimer.Stop()
		c.hoverTimer = nil
	}
	c.hoverGroup, c.hoverCat = "", ""
}

// scrollSpeed is proportional to how deep p is inside an edge band:
// negative near the top, positive near the bottom.
func (c *Controller) scrollSpeed(p Point) float64 {
	if c.geo == nil || c.cfg.EdgeBand <= 0 {
		return 0
	}
	vp := c.geo.Viewport()
	if d := p.Y - vp.Y; d < c.cfg.EdgeBand {
		return -c.cfg.MaxScroll * (c.cfg.EdgeBand - max(d, 0)) / c.cfg.EdgeBand
	}
	if d := vp.Bottom() - p.Y; d < c.cfg.EdgeBand {
		return c.cfg.MaxScroll * (c.cfg.EdgeBand - max(d, 0)) / c.cfg.EdgeBand
	}
	return 0
}

func (c *Controller) updateScroll() {
	c.scroll = c.scrollSpeed(c.last)
	if c.scroll == 0 || c.frame != nil {
		return
	}
	c.scheduleFrame()
}

func (c *Controller) scheduleFrame() {
	c.frame = c.sched.AfterFunc(c.cfg.Frame, func() {
		c.frame = nil
		if c.state != Dragging || c.scroll == 0 {
			return
		}
		c.surface.ScrollBy(c.scroll)
		// Content moved under a stationary pointer.
		c.update()
		c.scheduleFrame()
	})
}

func (c *Controller) stopScroll() {
	if c.frame != nil {
		c.frame.Stop()
		c.frame = nil
	}
	c.scroll = 0
}

func (c *Controller) clearAffordances() {
	c.stopHover()
	c.stopScroll()
	c.surface.ClearIndicator()
	c.surface.HideProxy()
}

func (c *Controller) suppress() {
	if c.pointer.Type == Touch {
		return
	}
	c.suppressID = c.subject.ID
	c.suppressUntil = c.sched.Now().Add(c.cfg.ClickSuppression)
}

func (c *Controller) reset() {
	c.state = Idle
	c.subject = Subject{}
	c.pointer = PointerEvent{}
	c.intent = Intent{}
}
