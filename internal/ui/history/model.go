package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/render"
	"github.com/nhle/tempmail/internal/store"
	"github.com/nhle/tempmail/internal/theme"
)

// limit caps how many past mailboxes are shown.
const limit = 50

// LoadedMsg carries the history rows.
type LoadedMsg struct {
	Records []model.MailboxRecord
	Err     error
}

// CloseMsg asks the parent to leave the history view.
type CloseMsg struct{}

// Model lists previously allocated mailboxes.
type Model struct {
	store   store.Store
	keys    *keys.KeyMap
	records []model.MailboxRecord
	err     error
	loaded  bool
	now     func() time.Time
	width   int
	height  int
}

// New creates a history view reading from s. s may be nil when history
// is disabled.
func New(s store.Store, k *keys.KeyMap, width, height int) Model {
	return Model{
		store:  s,
		keys:   k,
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// Init loads the records.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command reading the most recent records.
func (m Model) Load() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		if s == nil {
			return LoadedMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		recs, err := s.RecentMailboxes(ctx, limit)
		return LoadedMsg{Records: recs, Err: err}
	}
}

// Update handles messages for the history view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.records = msg.Records
		m.err = msg.Err
		m.loaded = true
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}
	return m, nil
}

// View renders the history table.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	title := titleStyle.Render("Mailbox History")

	var body string
	switch {
	case m.store == nil:
		body = theme.MutedStyle.Render("History is disabled (history.enabled: false).")
	case m.err != nil:
		body = theme.ErrorStyle.Render("Could not read history: " + m.err.Error())
	case !m.loaded:
		body = theme.MutedStyle.Render("Loading...")
	case len(m.records) == 0:
		body = theme.MutedStyle.Render("No mailboxes generated yet.")
	default:
		body = m.renderTable()
	}

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 20)).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

func (m Model) renderTable() string {
	now := m.now()
	rows := make([][]string, 0, len(m.records))
	for _, r := range m.records {
		status := "expired"
		if r.ExpiresAt.After(now) {
			status = "active"
		}
		rows = append(rows, []string{
			render.TerminalLine(r.Address),
			string(r.Provider),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			status,
			strconv.Itoa(r.MessageCount),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("ADDRESS", "PROVIDER", "CREATED", "STATUS", "MESSAGES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		String()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Summary returns a one-line description of the loaded history.
func (m Model) Summary() string {
	return fmt.Sprintf("%d mailboxes", len(m.records))
}
