package bubbletea_test

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/coach"
	bt "github.com/fwojciec/coach/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewStyles(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(coach.DefaultTheme())

	assert.Equal(t, lipgloss.Color("4"), styles.User.GetForeground())

	assert.Equal(t, lipgloss.Color("6"), styles.Assistant.GetForeground())
	assert.True(t, styles.Assistant.GetBold())

	assert.Equal(t, lipgloss.Color("1"), styles.Error.GetForeground())
	assert.Equal(t, lipgloss.Color("3"), styles.Warning.GetForeground())
	assert.Equal(t, lipgloss.Color("2"), styles.Success.GetForeground())

	assert.Equal(t, lipgloss.Color("8"), styles.Muted.GetForeground())
	assert.True(t, styles.Muted.GetFaint())

	assert.Equal(t, lipgloss.Color("5"), styles.Accent.GetForeground())
	assert.True(t, styles.Accent.GetBold())
	assert.True(t, styles.Selected.GetReverse())
}

func TestNewStylesNegativeIndexYieldsNoColor(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(coach.Theme{User: -1})

	assert.Equal(t, lipgloss.NoColor{}, styles.User.GetForeground())
}
