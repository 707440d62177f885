package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/coach"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Success   lipgloss.Style
	Muted     lipgloss.Style
	Accent    lipgloss.Style
	Selected  lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t coach.Theme) Styles {
	return Styles{
		User:      lipgloss.NewStyle().Foreground(ansiColor(t.User)),
		Assistant: lipgloss.NewStyle().Foreground(ansiColor(t.Assistant)).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Warning:   lipgloss.NewStyle().Foreground(ansiColor(t.Warning)),
		Success:   lipgloss.NewStyle().Foreground(ansiColor(t.Success)),
		Muted:     lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:    lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		Selected:  lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Reverse(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
