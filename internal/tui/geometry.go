package tui

import (
	"math"
	"time"

	"github.com/lotas/lesezeichen/internal/drag"
)

// boardTop is the screen row of the first board line; the navbar sits
// above it.
const boardTop = 1

// cellConfig scales the drag tunables to terminal cells.
func cellConfig() drag.Config {
	cfg := drag.DefaultConfig()
	cfg.Threshold = 1
	cfg.TabTolerance = 1
	cfg.EdgeBand = 2
	cfg.MaxScroll = 1
	cfg.Frame = 80 * time.Millisecond
	return cfg
}

// geometry exposes the last laid-out board to the drag controller in
// screen coordinates.
type geometry struct{ m *Model }

func (g geometry) dy() float64 { return float64(boardTop - g.m.offset) }

func (g geometry) shift(r drag.Rect) drag.Rect {
	r.Y += g.dy()
	return r
}

func (g geometry) Grids() []drag.Grid {
	out := make([]drag.Grid, 0, len(g.m.board.grids))
	for _, gr := range g.m.board.grids {
		cards := make([]drag.Card, len(gr.Cards))
		for i, c := range gr.Cards {
			cards[i] = drag.Card{ID: c.ID, Rect: g.shift(c.Rect)}
		}
		out = append(out, drag.Grid{CategoryID: gr.CategoryID, Rect: g.shift(gr.Rect), Cards: cards})
	}
	return out
}

func (g geometry) TopLevel() []drag.Element {
	out := make([]drag.Element, 0, len(g.m.board.elems))
	for _, e := range g.m.board.elems {
		e.Rect = g.shift(e.Rect)
		out = append(out, e)
	}
	return out
}

func (g geometry) TabStrips() []drag.TabStrip {
	out := make([]drag.TabStrip, 0, len(g.m.board.strips))
	for _, s := range g.m.board.strips {
		tabs := make([]drag.Tab, len(s.Tabs))
		for i, t := range s.Tabs {
			t.Rect = g.shift(t.Rect)
			tabs[i] = t
		}
		out = append(out, drag.TabStrip{GroupID: s.GroupID, Rect: g.shift(s.Rect), Tabs: tabs})
	}
	return out
}

func (g geometry) Viewport() drag.Rect {
	return drag.Rect{Y: boardTop, W: float64(g.m.boardWidth()), H: float64(g.m.bodyHeight())}
}

// surface draws drag affordances by recording them on the model; the
// next View picks them up.
type surface struct{ m *Model }

func (s surface) ShowProxy(sub drag.Subject, at drag.Point) {
	s.m.proxy = &sub
	s.m.proxyAt = at
}

func (s surface) MoveProxy(at drag.Point) { s.m.proxyAt = at }

func (s surface) HideProxy() { s.m.proxy = nil }

func (s surface) ShowIndicator(in drag.Intent) { s.m.intent = in }

func (s surface) ClearIndicator() { s.m.intent = drag.Intent{} }

// ScrollBy moves at least one line in the direction of dy.
func (s surface) ScrollBy(dy float64) {
	if dy == 0 {
		return
	}
	s.m.scroll(int(math.Copysign(math.Ceil(math.Abs(dy)), dy)))
	s.m.relayout()
}

func (s surface) ActivateTab(groupID, categoryID string) {
	s.m.store.SetActiveTab(groupID, categoryID)
	s.m.relayout()
}

// screenPoint is the center of the cell at column x, row y.
func screenPoint(x, y int) drag.Point {
	return drag.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

// contentPoint converts a screen point inside the board pane to board
// coordinates.
func (m *Model) contentPoint(p drag.Point) (drag.Point, bool) {
	if p.X >= float64(m.boardWidth()) || p.Y < boardTop || p.Y >= float64(boardTop+m.bodyHeight()) {
		return drag.Point{}, false
	}
	return drag.Point{X: p.X, Y: p.Y - boardTop + float64(m.offset)}, true
}
