package drag

import (
	"math"
	"sort"

	"github.com/lotas/lesezeichen/internal/types"
)

// row is a run of cards sharing a visual line.
type row struct {
	top, bottom float64
	cards       []Card
}

// rowsOf groups cards into rows by vertical proximity: a card whose top is
// within half its height of the row's top joins that row. Rows are sorted
// top to bottom, cards left to right.
func rowsOf(cards []Card) []row {
	sorted := append([]Card(nil), cards...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rect.Y < sorted[j].Rect.Y })

	var rows []row
	for _, c := range sorted {
		if n := len(rows); n > 0 && math.Abs(c.Rect.Y-rows[n-1].top) < c.Rect.H/2 {
			r := &rows[n-1]
			r.cards = append(r.cards, c)
			r.bottom = math.Max(r.bottom, c.Rect.Bottom())
			continue
		}
		rows = append(rows, row{top: c.Rect.Y, bottom: c.Rect.Bottom(), cards: []Card{c}})
	}
	for i := range rows {
		cs := rows[i].cards
		sort.SliceStable(cs, func(a, b int) bool { return cs[a].Rect.X < cs[b].Rect.X })
	}
	return rows
}

// nearestCard picks the row closest to p.Y, then the card closest to p.X
// within it. ok is false for an empty grid or a pointer below every row.
func nearestCard(cards []Card, p Point) (c Card, after bool, ok bool) {
	rows := rowsOf(cards)
	if len(rows) == 0 || p.Y >= rows[len(rows)-1].bottom {
		return Card{}, false, false
	}
	best, bestDist := 0, math.Inf(1)
	for i, r := range rows {
		d := 0.0
		switch {
		case p.Y < r.top:
			d = r.top - p.Y
		case p.Y >= r.bottom:
			d = p.Y - r.bottom
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	cs := rows[best].cards
	c, bestDist = cs[0], math.Inf(1)
	for _, card := range cs {
		if d := math.Abs(p.X - card.Rect.MidX()); d < bestDist {
			c, bestDist = card, d
		}
	}
	return c, p.X >= c.Rect.MidX(), true
}

// hitBookmark resolves a bookmark drop against the grid under p.
func hitBookmark(grids []Grid, p Point) Intent {
	for _, g := range grids {
		if !g.Rect.Contains(p) {
			continue
		}
		in := Intent{Kind: IntentBookmark, CategoryID: g.CategoryID}
		if c, after, ok := nearestCard(g.Cards, p); ok {
			in.AnchorID = c.ID
			in.After = after
		}
		return in
	}
	return Intent{}
}

// hitTopLevel resolves a category or group drop against the top-level
// layout. The outer bands of an element reorder; the middle groups.
func hitTopLevel(elems []Element, p Point, band float64, s Subject) Intent {
	for _, e := range elems {
		if !e.Rect.Contains(p) || e.Rect.H <= 0 {
			continue
		}
		if e.ID == s.ID {
			return Intent{}
		}
		rel := (p.Y - e.Rect.Y) / e.Rect.H
		switch {
		case rel < band:
			return Intent{Kind: IntentReorder, AnchorID: e.ID}
		case rel > 1-band:
			return Intent{Kind: IntentReorder, AnchorID: e.ID, After: true}
		}
		return middleIntent(s, e)
	}
	if n := len(elems); n > 0 && p.Y >= elems[n-1].Rect.Bottom() {
		return Intent{Kind: IntentReorder}
	}
	return Intent{}
}

func middleIntent(s Subject, e Element) Intent {
	switch {
	case s.Kind == SubjectCategory && e.Kind == types.LayoutCategory:
		return Intent{Kind: IntentGroup, TargetID: e.ID}
	case s.Kind == SubjectCategory && e.Kind == types.LayoutGroup:
		return Intent{Kind: IntentJoin, TargetID: e.ID}
	case s.Kind == SubjectGroup && e.Kind == types.LayoutGroup:
		return Intent{Kind: IntentMerge, TargetID: e.ID}
	case s.Kind == SubjectGroup && e.Kind == types.LayoutCategory:
		return Intent{Kind: IntentAbsorb, TargetID: e.ID}
	}
	return Intent{}
}

// hitTabStrip resolves a category drop against the tab strips, each
// widened by tol on every side.
func hitTabStrip(strips []TabStrip, p Point, tol float64) Intent {
	for _, s := range strips {
		if !s.Rect.Inset(tol).Contains(p) {
			continue
		}
		in := Intent{Kind: IntentTab, GroupID: s.GroupID}
		best := math.Inf(1)
		for _, t := range s.Tabs {
			if d := math.Abs(p.X - t.Rect.MidX()); d < best {
				best = d
				in.AnchorID = t.CategoryID
				in.After = p.X >= t.Rect.MidX()
			}
		}
		return in
	}
	return Intent{}
}

// hoverTab returns the inactive tab directly under p.
func hoverTab(strips []TabStrip, p Point) (groupID, categoryID string, ok bool) {
	for _, s := range strips {
		for _, t := range s.Tabs {
			if !t.Active && t.Rect.Contains(p) {
				return s.GroupID, t.CategoryID, true
			}
		}
	}
	return "", "", false
}
