package tui

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/lotas/lesezeichen/internal/drag"
	"github.com/lotas/lesezeichen/internal/types"
)

// Board geometry in terminal cells. A card slot is a one-cell insertion
// marker on each side of the card text.
const (
	cardSlot  = 28
	cardWidth = cardSlot - 2
	tabWidth  = 20
)

// entry is one cursor stop on the board.
type entry struct {
	Kind       drag.SubjectKind
	ID         string
	CategoryID string // bookmark: its category; category: itself
	GroupID    string // group header, or the group owning a category tab
	Line       int
}

// decor changes how the board is drawn, never where things are.
type decor struct {
	cursor   string
	dragging string
	intent   drag.Intent
	dead     map[string]bool
	dup      map[string]bool
}

// board is the laid-out content in content coordinates: line 0 is the
// first board line, column 0 the left edge of the board pane.
type board struct {
	width   int
	lines   []string
	entries []entry
	grids   []drag.Grid
	elems   []drag.Element
	strips  []drag.TabStrip
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	groupStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Reverse(true)
	targetStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	draggingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeTab     = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("62"))
	markerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	deadStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	dupStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))  // blue
)

func columns(width int) int {
	if n := (width - 1) / cardSlot; n > 0 {
		return n
	}
	return 1
}

// activeMember resolves want against members, falling back to the first.
func activeMember(members []types.Category, want string) string {
	for _, c := range members {
		if c.ID == want {
			return want
		}
	}
	if len(members) > 0 {
		return members[0].ID
	}
	return ""
}

// buildBoard lays out v. active returns the preferred visible tab of a
// group.
func buildBoard(v types.View, width int, active func(groupID string) string, d decor) board {
	b := board{width: width}
	byCat := make(map[string][]types.Bookmark)
	for _, bm := range v.Bookmarks {
		byCat[bm.CategoryID] = append(byCat[bm.CategoryID], bm)
	}

	for _, it := range v.Layout {
		start := len(b.lines)
		switch it.Kind {
		case types.LayoutCategory:
			c := it.Category
			b.entries = append(b.entries, entry{Kind: drag.SubjectCategory, ID: c.ID, CategoryID: c.ID, Line: start})
			b.header(d, it, fmt.Sprintf("▪ %s (%d)", c.Name, len(byCat[c.ID])), headerStyle)
			b.grid(c.ID, byCat[c.ID], d)
		case types.LayoutGroup:
			g := it.Group
			b.entries = append(b.entries, entry{Kind: drag.SubjectGroup, ID: g.ID, GroupID: g.ID, Line: start})
			b.header(d, it, fmt.Sprintf("◆ %s", g.Name), groupStyle)
			cur := activeMember(it.Members, active(g.ID))
			b.strip(g.ID, it.Members, cur, d)
			if cur != "" {
				b.grid(cur, byCat[cur], d)
			}
		}
		// The trailing blank line belongs to the item so that even a
		// one-row category has a middle band to drop onto.
		b.lines = append(b.lines, "")
		b.elems = append(b.elems, drag.Element{
			Kind: it.Kind,
			ID:   it.ID(),
			Rect: drag.Rect{Y: float64(start), W: float64(width), H: float64(len(b.lines) - start)},
		})
	}

	if d.intent.Kind == drag.IntentReorder && d.intent.AnchorID == "" && len(v.Layout) > 0 {
		b.lines = append(b.lines, markerStyle.Render("▲ move to the end"))
	}
	return b
}

func (b *board) header(d decor, it types.LayoutItem, label string, style lipgloss.Style) {
	id := it.ID()
	mark := " "
	if d.intent.Kind == drag.IntentReorder && d.intent.AnchorID == id {
		mark = markerStyle.Render("▲")
		if d.intent.After {
			mark = markerStyle.Render("▼")
		}
	}
	label = xansi.Truncate(label, b.width-2, "…")
	switch {
	case d.dragging == id:
		label = draggingStyle.Render(label)
	case d.intent.TargetID == id:
		label = targetStyle.Render(label + "  ◎ " + d.intent.Kind.String())
	case d.cursor == id:
		label = cursorStyle.Render(label)
	default:
		label = style.Render(label)
	}
	b.lines = append(b.lines, mark+" "+label)
}

// strip draws a group's tab row. Separator i sits before tab i; the last
// one follows the final tab.
func (b *board) strip(groupID string, members []types.Category, activeID string, d decor) {
	y := len(b.lines)
	s := drag.TabStrip{GroupID: groupID, Rect: drag.Rect{Y: float64(y), W: float64(b.width), H: 1}}

	marked := -1
	if d.intent.Kind == drag.IntentTab && d.intent.GroupID == groupID {
		marked = len(members)
		for i, c := range members {
			if c.ID == d.intent.AnchorID {
				marked = i
				if d.intent.After {
					marked = i + 1
				}
			}
		}
	}
	sep := func(i int) string {
		if i == marked {
			return markerStyle.Render("┃")
		}
		return " "
	}

	var sb strings.Builder
	sb.WriteString(" ")
	x := 1
	for i, c := range members {
		sb.WriteString(sep(i))
		x++
		label := "[" + xansi.Truncate(c.Name, tabWidth-2, "…") + "]"
		w := xansi.StringWidth(label)
		s.Tabs = append(s.Tabs, drag.Tab{
			CategoryID: c.ID,
			Rect:       drag.Rect{X: float64(x), Y: float64(y), W: float64(w), H: 1},
			Active:     c.ID == activeID,
		})
		b.entries = append(b.entries, entry{Kind: drag.SubjectCategory, ID: c.ID, CategoryID: c.ID, GroupID: groupID, Line: y})

		switch {
		case d.dragging == c.ID:
			label = draggingStyle.Render(label)
		case d.cursor == c.ID:
			label = cursorStyle.Render(label)
		case c.ID == activeID:
			label = activeTab.Render(label)
		default:
			label = dimStyle.Render(label)
		}
		sb.WriteString(label)
		x += w
	}
	sb.WriteString(sep(len(members)))

	b.strips = append(b.strips, s)
	b.lines = append(b.lines, sb.String())
}

// grid draws a category's bookmarks as rows of fixed-width cards. An empty
// category still gets one line so it accepts drops.
func (b *board) grid(categoryID string, bms []types.Bookmark, d decor) {
	top := len(b.lines)
	g := drag.Grid{CategoryID: categoryID}
	dropping := d.intent.Kind == drag.IntentBookmark && d.intent.CategoryID == categoryID

	if len(bms) == 0 {
		text := dimStyle.Render("(empty)")
		if dropping {
			text = markerStyle.Render("┃ drop here")
		}
		b.lines = append(b.lines, "  "+text)
	}

	cols := columns(b.width)
	for r := 0; r*cols < len(bms); r++ {
		y := len(b.lines)
		var sb strings.Builder
		sb.WriteString(" ")
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i >= len(bms) {
				break
			}
			bm := bms[i]
			x := 1 + c*cardSlot + 1
			g.Cards = append(g.Cards, drag.Card{
				ID:   bm.ID,
				Rect: drag.Rect{X: float64(x), Y: float64(y), W: cardWidth, H: 1},
			})
			b.entries = append(b.entries, entry{Kind: drag.SubjectBookmark, ID: bm.ID, CategoryID: categoryID, Line: y})

			before, after := " ", " "
			if dropping {
				switch {
				case d.intent.AnchorID == bm.ID && d.intent.After:
					after = markerStyle.Render("┃")
				case d.intent.AnchorID == bm.ID:
					before = markerStyle.Render("┃")
				case d.intent.AnchorID == "" && i == len(bms)-1:
					after = markerStyle.Render("┃")
				}
			}
			sb.WriteString(before)
			sb.WriteString(b.card(bm, d))
			sb.WriteString(after)
		}
		b.lines = append(b.lines, sb.String())
	}

	rows := len(b.lines) - top
	g.Rect = drag.Rect{Y: float64(top), W: float64(b.width), H: float64(rows)}
	b.grids = append(b.grids, g)
}

func (b *board) card(bm types.Bookmark, d decor) string {
	var marks string
	if d.dead[bm.ID] {
		marks += deadStyle.Render("●")
	}
	if d.dup[bm.ID] {
		marks += dupStyle.Render("⇄")
	}
	room := cardWidth
	if marks != "" {
		room -= xansi.StringWidth(marks) + 1
	}
	label := xansi.Truncate(cardLabel(bm), room, "…")
	label += strings.Repeat(" ", room-xansi.StringWidth(label))

	switch {
	case d.dragging == bm.ID:
		label = draggingStyle.Render(label)
	case d.cursor == bm.ID:
		label = cursorStyle.Render(label)
	}
	if marks != "" {
		return marks + " " + label
	}
	return label
}

// cardLabel is the title, or the host when the bookmark has none.
func cardLabel(bm types.Bookmark) string {
	if t := strings.TrimSpace(bm.Title); t != "" {
		return t
	}
	if u, err := url.Parse(bm.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return bm.URL
}

// entryAt returns the index of the cursor stop for id, or -1.
func (b board) entryAt(id string) int {
	for i, e := range b.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// subjectAt returns the draggable thing under the content position p.
func (b board) subjectAt(p drag.Point) (drag.Subject, bool) {
	for _, g := range b.grids {
		for _, c := range g.Cards {
			if c.Rect.Contains(p) {
				return drag.Subject{Kind: drag.SubjectBookmark, ID: c.ID}, true
			}
		}
	}
	for _, s := range b.strips {
		for _, t := range s.Tabs {
			if t.Rect.Contains(p) {
				return drag.Subject{Kind: drag.SubjectCategory, ID: t.CategoryID}, true
			}
		}
	}
	for _, e := range b.elems {
		if int(p.Y) != int(e.Rect.Y) || p.X >= e.Rect.Right() {
			continue
		}
		if e.Kind == types.LayoutGroup {
			return drag.Subject{Kind: drag.SubjectGroup, ID: e.ID}, true
		}
		return drag.Subject{Kind: drag.SubjectCategory, ID: e.ID}, true
	}
	return drag.Subject{}, false
}

// tabAt returns the tab under p, for clicks.
func (b board) tabAt(p drag.Point) (groupID, categoryID string, ok bool) {
	for _, s := range b.strips {
		for _, t := range s.Tabs {
			if t.Rect.Contains(p) {
				return s.GroupID, t.CategoryID, true
			}
		}
	}
	return "", "", false
}
