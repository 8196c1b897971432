package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles of the player for one theme.
type Styles struct {
	Panel  lipgloss.Style
	Stats  lipgloss.Style
	Header lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Graph  lipgloss.Style
	Help   lipgloss.Style
	Done   lipgloss.Style

	layers [numRoles]lipgloss.Style
}

func NewStyles(t Theme) Styles {
	s := Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		Stats: lipgloss.NewStyle().
			Padding(1, 2).
			Width(44),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Secondary).
			MarginBottom(1),
		Label: lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		Value: lipgloss.NewStyle().Foreground(t.Text),
		Graph: lipgloss.NewStyle().Foreground(t.Secondary).Padding(1, 0),
		Help:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		Done:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
	}
	for r := role(0); r < numRoles; r++ {
		s.layers[r] = lipgloss.NewStyle().Foreground(t.roleColor(r))
	}
	return s
}

// ProgressBar renders a bar of the given width filled to percent.
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
