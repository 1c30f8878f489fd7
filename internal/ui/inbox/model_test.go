package inbox

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/model"
)

func newModel() Model {
	return New(keys.DefaultKeyMap(), 80, 24)
}

func TestEmptyInboxShowsPlaceholder(t *testing.T) {
	m := newModel()

	assert.Equal(t, 0, m.Rows())
	assert.Contains(t, m.View(), "No messages yet. Waiting for incoming mail…")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "nothing to open")
}

func TestMessagesNewestFirst(t *testing.T) {
	m := newModel()
	m.SetMessages([]model.MessageSummary{
		{ID: "A", Subject: "first"},
		{ID: "B", Subject: "second"},
		{ID: "C", Subject: "third"},
	})

	require.Equal(t, 3, m.Rows())
	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "C", sel.ID)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectedMessageMsg{ID: "C"}, cmd())
}

func TestMessagesReplaceNotMerge(t *testing.T) {
	m := newModel()
	m.SetMessages([]model.MessageSummary{{ID: "A"}, {ID: "B"}})

	m.SetMessages([]model.MessageSummary{{ID: "Z"}})
	require.Equal(t, 1, m.Rows())
	sel, _ := m.Selected()
	assert.Equal(t, "Z", sel.ID)

	m.SetMessages(nil)
	assert.Equal(t, 0, m.Rows())
	assert.Contains(t, m.View(), "No messages yet")
}

func TestItemIsTerminalSafe(t *testing.T) {
	item := MessageItem{Message: model.MessageSummary{
		Subject: "\x1b[2Jhello\nworld",
		From:    "evil\x1b]0;title\x07@x.test",
	}}

	assert.Equal(t, "[2Jhello world", item.Title())
	assert.NotContains(t, item.Description(), "\x1b")
	assert.NotContains(t, item.Description(), "\x07")
	assert.Equal(t, "(no subject)", MessageItem{}.Title())
}
