package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/lesezeichen/internal/types"
)

// DetailModel shows information about the entry under the cursor.
type DetailModel struct {
	Width  int
	Height int
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle()
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// wrap breaks s into lines no wider than the pane.
func (m DetailModel) wrap(s string) string {
	w := m.Width - 2
	if w < 10 {
		return s
	}
	var b strings.Builder
	r := []rune(s)
	for len(r) > w {
		b.WriteString(string(r[:w]) + "\n")
		r = r[w:]
	}
	b.WriteString(string(r))
	return b.String()
}

func (m DetailModel) field(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + "\n")
	b.WriteString(valueStyle.Render(m.wrap(value)) + "\n\n")
}

// ViewBookmark renders a bookmark. deadReason and copies come from the
// last link check and the duplicate scan.
func (m DetailModel) ViewBookmark(bm types.Bookmark, category string, deadReason string, copies int) string {
	var b strings.Builder
	m.field(&b, "Title", cardLabel(bm))
	m.field(&b, "URL", bm.URL)
	m.field(&b, "Category", category)
	if bm.Icon != "" {
		m.field(&b, "Icon", bm.Icon)
	}

	var statuses []string
	if deadReason != "" {
		statuses = append(statuses, warnStyle.Render(fmt.Sprintf("Dead link (%s)", deadReason)))
	}
	if copies > 1 {
		statuses = append(statuses, dupStyle.Bold(true).Render(fmt.Sprintf("Duplicate (%d copies)", copies)))
	}
	if len(statuses) > 0 {
		b.WriteString(labelStyle.Render("Status") + "\n")
		for _, s := range statuses {
			b.WriteString(s + "\n")
		}
	}
	return b.String()
}

// ViewCategory renders a category with its group, if any.
func (m DetailModel) ViewCategory(c types.Category, group string, bookmarks int) string {
	var b strings.Builder
	m.field(&b, "Category", c.Name)
	if group != "" {
		m.field(&b, "Group", group)
	}
	m.field(&b, "Bookmarks", fmt.Sprintf("%d", bookmarks))
	return b.String()
}

// ViewGroup renders a group and its member categories in tab order.
func (m DetailModel) ViewGroup(g types.Group, members []types.Category, counts map[string]int) string {
	var b strings.Builder
	m.field(&b, "Group", g.Name)

	b.WriteString(labelStyle.Render("Categories") + "\n")
	total := 0
	for _, c := range members {
		fmt.Fprintf(&b, "  %s (%d)\n", c.Name, counts[c.ID])
		total += counts[c.ID]
	}
	b.WriteString("\n")
	m.field(&b, "Bookmarks", fmt.Sprintf("%d", total))
	return b.String()
}

// ViewScrolled truncates content to the pane height.
func (m DetailModel) ViewScrolled(content string) string {
	lines := strings.Split(content, "\n")
	if m.Height > 0 && len(lines) > m.Height {
		lines = lines[:m.Height]
	}
	return strings.Join(lines, "\n")
}
