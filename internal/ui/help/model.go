package help

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/theme"
	"github.com/nhle/tempmail/internal/ui/command"
)

// twoColumnWidth is the narrowest panel that fits the sections side by side.
const twoColumnWidth = 90

// Section is one titled group of rows in the help panel.
type Section struct {
	Title string
	Rows  [][2]string
}

// Model is the help overlay. It lists the mailbox shortcuts and the
// palette commands.
type Model struct {
	keys   *keys.KeyMap
	width  int
	height int
}

// New creates a help view.
func New(keys *keys.KeyMap, width, height int) Model {
	return Model{keys: keys, width: width, height: height}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the root model closes the overlay.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// Sections returns the help content in display order.
func (m Model) Sections() []Section {
	palette := Section{Title: "Commands (press :)"}
	for _, c := range command.Commands {
		palette.Rows = append(palette.Rows, [2]string{string(c.Name), c.Desc})
	}
	return []Section{
		bindingSection("Mailbox", m.keys.MailboxKeys()),
		bindingSection("Navigation", m.keys.NavigationKeys()),
		bindingSection("General", m.keys.GeneralKeys()),
		palette,
	}
}

func bindingSection(title string, bindings []key.Binding) Section {
	s := Section{Title: title}
	for _, b := range bindings {
		h := b.Help()
		s.Rows = append(s.Rows, [2]string{h.Key, h.Desc})
	}
	return s
}

// View renders the help overlay.
func (m Model) View() string {
	sectionTitle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	keyStyle := lipgloss.NewStyle().Width(15).Foreground(theme.ColorYellow)

	var blocks []string
	for _, s := range m.Sections() {
		lines := []string{sectionTitle.Render(s.Title)}
		for _, r := range s.Rows {
			lines = append(lines, keyStyle.Render(r[0])+theme.HelpStyle.Render(r[1]))
		}
		blocks = append(blocks, lipgloss.NewStyle().MarginRight(4).MarginBottom(1).
			Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}

	var body string
	if m.width >= twoColumnWidth {
		left := lipgloss.JoinVertical(lipgloss.Left, blocks[0], blocks[1], blocks[2])
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, blocks[3])
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, blocks...)
	}

	footer := theme.MutedStyle.Render("Addresses expire when the countdown reaches 00:00. The inbox is checked in the background.")

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, body, footer))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
