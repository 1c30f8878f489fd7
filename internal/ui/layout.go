package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/theme"
)

const (
	headerHeight     = 1
	statusBarHeight  = 1
	addressBarHeight = 3
)

// HeaderStatus is what the header shows on its right-hand side.
type HeaderStatus struct {
	// Provider serves the next allocation.
	Provider string

	// Countdown is the formatted remaining time; empty hides it.
	Countdown   string
	SecondsLeft int
	Expired     bool
}

// Layout splits the terminal into header, address bar, content and
// status bar rows.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal size.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left for the active view once the header,
// address bar and status bar are placed. It never drops below one.
func (l Layout) ContentHeight() int {
	return max(l.Height-headerHeight-addressBarHeight-statusBarHeight, 1)
}

// RenderHeader renders the title on the left and the next provider plus
// the colored countdown on the right.
func (l Layout) RenderHeader(title string, st HeaderStatus) string {
	left := theme.HeaderStyle.Render(title)

	right := theme.HeaderStyle.Render("next: " + st.Provider)
	if st.Countdown != "" {
		cd := theme.CountdownStyle(st.SecondsLeft, st.Expired).
			Background(theme.HeaderStyle.GetBackground()).
			Render(st.Countdown)
		right = lipgloss.JoinHorizontal(lipgloss.Top, right, cd)
	}

	return l.fill(theme.HeaderStyle, left, right)
}

// RenderStatusBar renders the bottom bar. A notice replaces the key hints
// and is styled as an error when isErr is set.
func (l Layout) RenderStatusBar(hints, notice string, isErr bool) string {
	text := theme.StatusBarStyle.Render(hints)
	switch {
	case notice != "" && isErr:
		text = theme.StatusBarStyle.Inherit(theme.ErrorStyle).Render("! " + notice)
	case notice != "":
		text = theme.StatusBarStyle.Render(notice)
	}
	return l.fill(theme.StatusBarStyle, text, "")
}

// fill pads the gap between left and right with the bar's background so
// the bar spans the full width.
func (l Layout) fill(bar lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(bar.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// Compose stacks the four rows into the full screen.
func (l Layout) Compose(header, addressBar, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		addressBar,
		content,
		statusBar,
	)
}
