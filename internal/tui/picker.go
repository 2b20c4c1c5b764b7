package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// pickOption is one choice in a Picker. An empty ID is a valid choice,
// e.g. "top level".
type pickOption struct {
	ID    string
	Label string
}

// Picker is an overlay for choosing a move target.
type Picker struct {
	Title   string
	Options []pickOption
	Cursor  int
}

func NewPicker(title string, options []pickOption) Picker {
	return Picker{Title: title, Options: options}
}

func (m *Picker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *Picker) MoveDown() {
	if m.Cursor < len(m.Options)-1 {
		m.Cursor++
	}
}

func (m Picker) Selected() (pickOption, bool) {
	if m.Cursor >= 0 && m.Cursor < len(m.Options) {
		return m.Options[m.Cursor], true
	}
	return pickOption{}, false
}

func (m Picker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.Title) + "\n\n")

	if len(m.Options) == 0 {
		b.WriteString(normalStyle.Render("  nothing to choose from") + "\n")
	}
	for i, o := range m.Options {
		label := o.Label
		if i == m.Cursor {
			label = selectedStyle.Render(label)
		} else {
			label = normalStyle.Render("  " + label)
		}
		b.WriteString(label + "\n")
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter confirm · esc cancel"))

	return boxStyle.Render(b.String())
}
