package inbox

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/render"
	"github.com/nhle/tempmail/internal/theme"
)

// MessageItem wraps a model.MessageSummary so it can be used in a
// bubbles/list.
type MessageItem struct {
	Message model.MessageSummary
}

// FilterValue returns the string used for fuzzy filtering.
func (i MessageItem) FilterValue() string { return i.Title() }

// Title returns the terminal-safe subject.
func (i MessageItem) Title() string {
	return render.TerminalLine(render.Subject(i.Message.Subject))
}

// Description returns the terminal-safe sender.
func (i MessageItem) Description() string {
	return "From: " + render.TerminalLine(i.Message.From)
}

// ItemDelegate implements list.ItemDelegate for rendering message rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 1 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a message row: subject and age on the first line, sender on
// the second.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mi, ok := item.(MessageItem)
	if !ok {
		return
	}

	age := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(mi.Message.CreatedAt))

	first := fmt.Sprintf("✉ %s  %s", mi.Title(), age)
	second := theme.MutedStyle.Render("  " + mi.Description())

	if index == m.Index() {
		first = theme.SelectedItemStyle.Render(first)
		second = theme.SelectedItemStyle.Render(second)
	} else {
		first = theme.ListItemStyle.Render(first)
		second = theme.ListItemStyle.Render(second)
	}

	fmt.Fprint(w, first+"\n"+second)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	default:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	}
}
