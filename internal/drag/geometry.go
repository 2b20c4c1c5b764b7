package drag

import (
	"math"
	"time"

	"github.com/lotas/lesezeichen/internal/types"
)

// Point is a position in render-layer coordinates.
type Point struct {
	X, Y float64
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }
func (r Rect) MidX() float64   { return r.X + r.W/2 }
func (r Rect) MidY() float64   { return r.Y + r.H/2 }

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Inset grows r by d on every side; a negative d shrinks it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Card is one rendered bookmark.
type Card struct {
	ID   string
	Rect Rect
}

// Grid is the rendered bookmark area of a category. Cards are in render
// order.
type Grid struct {
	CategoryID string
	Rect       Rect
	Cards      []Card
}

// Element is a rendered top-level layout item.
type Element struct {
	Kind types.LayoutKind
	ID   string
	Rect Rect
}

// Tab is one category header inside a group's tab strip.
type Tab struct {
	CategoryID string
	Rect       Rect
	Active     bool
}

// TabStrip is the header row of a group. Tabs are in render order.
type TabStrip struct {
	GroupID string
	Rect    Rect
	Tabs    []Tab
}

// Geometry reports what the render layer currently shows. Missing
// geometry degrades to "no drop target".
type Geometry interface {
	Grids() []Grid
	TopLevel() []Element
	TabStrips() []TabStrip
	Viewport() Rect
}

// Surface draws the transient drag affordances.
type Surface interface {
	ShowProxy(s Subject, at Point)
	MoveProxy(at Point)
	HideProxy()
	ShowIndicator(in Intent)
	ClearIndicator()
	ScrollBy(dy float64)
	ActivateTab(groupID, categoryID string)
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs delayed callbacks. Callbacks must be delivered on the
// same loop that calls the Controller.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Time
}

// SystemScheduler uses the runtime timers. Its callbacks run on their own
// goroutine, so it only suits callers that serialize them.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }
func (SystemScheduler) Now() time.Time                               { return time.Now() }
