package app

import (
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// copyAckDuration is how long "Copied" stays on screen.
const copyAckDuration = 1500 * time.Millisecond

// copiedMsg reports the outcome of a clipboard write.
type copiedMsg struct {
	err error
}

// copyResetMsg reverts the "Copied" label. seq ties it to one copy so an
// older timer never clears a newer acknowledgment.
type copyResetMsg struct {
	seq int
}

// defaultClipboard writes to the system clipboard.
func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}

func (m Model) copyAddress(address string) tea.Cmd {
	write := m.clipboard
	return func() tea.Msg {
		return copiedMsg{err: write(address)}
	}
}

func resetCopyAfter(seq int) tea.Cmd {
	return tea.Tick(copyAckDuration, func(time.Time) tea.Msg {
		return copyResetMsg{seq: seq}
	})
}
