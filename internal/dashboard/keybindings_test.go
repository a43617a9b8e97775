package dashboard

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortOrderCycles(t *testing.T) {
	order := SortByConfig
	seen := []string{}
	for i := 0; i < int(sortOrderCount); i++ {
		seen = append(seen, order.String())
		order = order.Next()
	}
	assert.Equal(t, []string{"config", "CPU", "memory", "disk", "network"}, seen)
	assert.Equal(t, SortByConfig, order)
}

func TestNavigationKeys(t *testing.T) {
	m := NewModel(newFakeSource(sampleSnapshot()), Options{})

	steps := []struct {
		msg  tea.KeyMsg
		want int
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, 0},
		{tea.KeyMsg{Type: tea.KeyDown}, 1},
		{keyRunes("j"), 2},
		{keyRunes("j"), 3},
		{keyRunes("j"), 3},
		{keyRunes("k"), 2},
		{tea.KeyMsg{Type: tea.KeyHome}, 0},
		{tea.KeyMsg{Type: tea.KeyEnd}, 3},
	}
	for _, step := range steps {
		handled, _ := m.HandleKeyMsg(step.msg)
		assert.True(t, handled, step.msg.String())
		assert.Equal(t, step.want, m.selected, step.msg.String())
	}
}

func TestDetailAndHelpKeys(t *testing.T) {
	m := NewModel(newFakeSource(sampleSnapshot()), Options{})

	m.HandleKeyMsg(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewDetail, m.viewMode)

	m.HandleKeyMsg(keyRunes("?"))
	assert.True(t, m.showHelp)

	// esc closes help first, then the detail view.
	m.HandleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showHelp)
	assert.Equal(t, ViewDetail, m.viewMode)

	m.HandleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.viewMode)
}

func TestEnterWithoutServers(t *testing.T) {
	m := NewModel(newFakeSource(sampleSnapshot()), Options{})
	m.order = nil
	m.HandleKeyMsg(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewList, m.viewMode)
}

func TestQuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{keyRunes("q"), {Type: tea.KeyCtrlC}} {
		m := NewModel(newFakeSource(sampleSnapshot()), Options{})
		handled, cmd := m.HandleKeyMsg(msg)
		assert.True(t, handled)
		require.NotNil(t, cmd)
		assert.True(t, m.quitting)
		assert.Empty(t, m.View())
	}
}

func TestRefreshKey(t *testing.T) {
	src := newFakeSource(sampleSnapshot())
	m := NewModel(src, Options{})
	m.polling = false

	handled, cmd := m.HandleKeyMsg(keyRunes("r"))
	assert.True(t, handled)
	require.NotNil(t, cmd)
	_, ok := cmd().(snapshotMsg)
	assert.True(t, ok)
	assert.Equal(t, 1, src.polls)
}

func TestUnknownKey(t *testing.T) {
	m := NewModel(newFakeSource(sampleSnapshot()), Options{})
	handled, cmd := m.HandleKeyMsg(keyRunes("x"))
	assert.False(t, handled)
	assert.Nil(t, cmd)
}
