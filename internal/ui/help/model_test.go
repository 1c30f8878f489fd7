package help

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/ui/command"
)

func TestSections(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 40)

	sections := m.Sections()
	require.Len(t, sections, 4)
	assert.Equal(t, "Mailbox", sections[0].Title)
	assert.Equal(t, [][2]string{
		{"g", "new address"},
		{"y", "copy address"},
		{"r", "check now"},
	}, sections[0].Rows)
	assert.Equal(t, "Navigation", sections[1].Title)
	assert.Len(t, sections[3].Rows, len(command.Commands))
}

func TestViewNarrowAndWide(t *testing.T) {
	for _, width := range []int{60, 120} {
		m := New(keys.DefaultKeyMap(), width, 40)
		view := m.View()
		assert.Contains(t, view, "Mailbox")
		assert.Contains(t, view, "history clear")
		assert.Contains(t, view, "copy address")
	}
}
