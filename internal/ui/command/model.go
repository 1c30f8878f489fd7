package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/theme"
)

// Name is a canonical palette command.
type Name string

const (
	Generate     Name = "new"
	Copy         Name = "copy"
	Refresh      Name = "refresh"
	History      Name = "history"
	HistoryClear Name = "history clear"
	Password     Name = "password"
	Provider     Name = "provider"
	Quit         Name = "quit"
)

// Spec describes one palette command.
type Spec struct {
	Name    Name
	Aliases []string
	Desc    string
}

// Commands lists every command the palette accepts, in display order.
var Commands = []Spec{
	{Name: Generate, Aliases: []string{"generate", "g"}, Desc: "allocate a new address"},
	{Name: Copy, Aliases: []string{"y"}, Desc: "copy the address to the clipboard"},
	{Name: Refresh, Aliases: []string{"check", "r"}, Desc: "check the inbox now"},
	{Name: History, Desc: "show previously allocated addresses"},
	{Name: HistoryClear, Desc: "forget every recorded address"},
	{Name: Password, Desc: "show the mail.gw account password"},
	{Name: Provider, Desc: "choose the provider for the next address"},
	{Name: Quit, Aliases: []string{"q", "exit"}, Desc: "stop polling and exit"},
}

// Resolve maps user input, including aliases, to a command name.
func Resolve(input string) (Name, bool) {
	in := strings.Join(strings.Fields(strings.ToLower(input)), " ")
	for _, c := range Commands {
		if in == string(c.Name) {
			return c.Name, true
		}
		for _, a := range c.Aliases {
			if in == a {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Matching returns the commands whose name starts with prefix.
func Matching(prefix string) []Spec {
	p := strings.ToLower(strings.TrimLeft(prefix, " "))
	var out []Spec
	for _, c := range Commands {
		if strings.HasPrefix(string(c.Name), p) {
			out = append(out, c)
		}
	}
	return out
}

// CommandMsg is emitted with the resolved command when the user presses
// enter on a known command.
type CommandMsg Name

// Model is the command palette. Unknown input stays in the field with an
// inline error instead of being emitted.
type Model struct {
	input  textinput.Model
	err    string
	width  int
	height int
}

// New creates a command palette.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "new, copy, refresh, history, password, provider, quit"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.CharLimit = 32
	ti.Width = width - 6

	names := make([]string, 0, len(Commands))
	for _, c := range Commands {
		names = append(names, string(c.Name))
	}
	ti.SetSuggestions(names)
	ti.Focus()

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEnter {
		raw := strings.TrimSpace(m.input.Value())
		if raw == "" {
			return m, nil
		}
		name, ok := Resolve(raw)
		if !ok {
			m.err = "Unknown command: " + raw
			return m, nil
		}
		m.input.Reset()
		m.err = ""
		return m, func() tea.Msg { return CommandMsg(name) }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if _, ok := msg.(tea.KeyMsg); ok {
		m.err = ""
	}
	return m, cmd
}

// Err returns the inline validation error, if any.
func (m Model) Err() string {
	return m.err
}

// View renders the input, then the commands that match what was typed.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Command Palette")

	rows := []string{title, m.input.View()}
	if m.err != "" {
		rows = append(rows, theme.ErrorStyle.Render(m.err))
	}

	nameStyle := lipgloss.NewStyle().Width(16).Foreground(theme.ColorYellow)
	var list []string
	for _, c := range Matching(m.input.Value()) {
		list = append(list, nameStyle.Render(string(c.Name))+theme.MutedStyle.Render(c.Desc))
	}
	if len(list) > 0 {
		rows = append(rows, "", lipgloss.JoinVertical(lipgloss.Left, list...))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SetSize updates the palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input and clears stale input.
func (m *Model) Focus() tea.Cmd {
	m.input.Reset()
	m.err = ""
	return m.input.Focus()
}
