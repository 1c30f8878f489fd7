package message

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/render"
	"github.com/nhle/tempmail/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// DetailLoadedMsg carries a fetched message, or the error that prevented
// fetching it.
type DetailLoadedMsg struct {
	ID     string
	Detail *model.MessageDetail
	Err    error
}

// Model is the message detail pane.
type Model struct {
	detail   *model.MessageDetail
	failed   error
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail pane.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		if msg.Err != nil {
			m.failed = msg.Err
			m.loading = false
			return m, nil
		}
		m.SetMessage(msg.Detail)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg {
				return BackMsg{}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	centered := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return centered.Render("Loading message...")
	case m.failed != nil:
		return centered.Render("Could not load this message.\nPress esc to go back.")
	case m.detail == nil:
		return centered.Render("No message selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.detail == nil {
		return ""
	}

	d := m.detail
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(render.TerminalLine(render.Subject(d.Subject))))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf(
		"%s  %s",
		metaStyle.Render("From:"),
		valStyle.Render(render.TerminalLine(d.From)),
	))
	sections = append(sections, fmt.Sprintf(
		"%s  %s",
		metaStyle.Render("Date:"),
		valStyle.Render(render.TerminalLine(d.Date)),
	))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	sections = append(sections, lipgloss.NewStyle().
		Width(max(m.width-2, 10)).
		Render(bodyText(d)))

	if len(d.Attachments) > 0 {
		sections = append(sections, "")
		sections = append(sections, separator)
		sections = append(sections, "")
		sections = append(sections, titleStyle.Render(
			fmt.Sprintf("Attachments (%d)", len(d.Attachments)),
		))
		for _, a := range d.Attachments {
			sections = append(sections, fmt.Sprintf(
				"  📎 %s  %s",
				render.TerminalLine(a.Filename),
				metaStyle.Render(render.TerminalLine(a.ContentType)+", "+render.HumanSize(a.Size)),
			))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// bodyText picks the body by precedence and makes it printable: rich HTML
// is flattened, plain text is stripped of control sequences.
func bodyText(d *model.MessageDetail) string {
	body := render.BodyOf(d)
	switch body.Kind {
	case render.BodyRich:
		if text := render.HTMLToText(body.Content); text != "" {
			return text
		}
		return theme.MutedStyle.Italic(true).Render(render.NoContent)
	case render.BodyPlain:
		return render.TerminalText(body.Content)
	default:
		return theme.MutedStyle.Italic(true).Render(body.Content)
	}
}

// SetMessage updates the message being displayed and re-renders the content.
func (m *Model) SetMessage(d *model.MessageDetail) {
	m.detail = d
	m.failed = nil
	m.loading = false
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	if loading {
		m.failed = nil
	}
}

// Clear drops the displayed message.
func (m *Model) Clear() {
	m.detail = nil
	m.failed = nil
	m.loading = false
	m.viewport.SetContent("")
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.detail != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
