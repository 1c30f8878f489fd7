package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tempmail/internal/session"
)

// sessionEventMsg wraps a lifecycle event from the session manager.
type sessionEventMsg struct {
	event session.Event
}

// waitForEvent returns a tea.Cmd that waits for the next session event.
// After handling the event, Update issues a new waitForEvent to keep
// listening.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return sessionEventMsg{event: e}
	}
}
