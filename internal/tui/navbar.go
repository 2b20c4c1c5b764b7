package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/lesezeichen/internal/analyzer"
	"github.com/lotas/lesezeichen/internal/types"
)

// BoardWidthPct is the percentage of terminal width used for the board
// pane; the detail pane takes the rest.
const BoardWidthPct = 65

// navState is what the top bar reports.
type navState struct {
	mode      types.Mode
	label     string
	connected bool
	pending   int
	undo      int
	redo      int
	checking  bool
}

func statsLine(s analyzer.Stats) string {
	parts := []string{
		fmt.Sprintf("%d groups", s.Groups),
		fmt.Sprintf("%d categories", s.Categories),
		fmt.Sprintf("%d bookmarks", s.Bookmarks),
	}
	if s.Duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d dup", s.Duplicates))
	}
	if s.Dead > 0 {
		parts = append(parts, fmt.Sprintf("%d dead", s.Dead))
	}
	return strings.Join(parts, " · ")
}

func renderNavbar(n navState, stats analyzer.Stats, width int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	modeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statsStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	stat := statsLine(stats)
	if n.checking {
		stat += " · checking links..."
	}
	left := " " + titleStyle.Render("Lesezeichen") + "   " + statsStyle.Render(stat)

	var mode string
	switch {
	case n.mode == types.ModeLocal:
		mode = "Local: " + n.label
	case n.connected:
		mode = "Sync ● " + n.label
	default:
		mode = "Sync ○ " + n.label
	}
	if n.pending > 0 {
		mode += fmt.Sprintf(" · %d pending", n.pending)
	}
	mode += fmt.Sprintf(" · undo %d/%d", n.undo, n.redo)
	right := modeStyle.Render(mode)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right + " "
}
