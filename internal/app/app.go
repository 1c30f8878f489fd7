package app

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/countdown"
	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/logger"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
	"github.com/nhle/tempmail/internal/session"
	"github.com/nhle/tempmail/internal/store"
	"github.com/nhle/tempmail/internal/theme"
	"github.com/nhle/tempmail/internal/ui"
	"github.com/nhle/tempmail/internal/ui/command"
	helpview "github.com/nhle/tempmail/internal/ui/help"
	historyview "github.com/nhle/tempmail/internal/ui/history"
	"github.com/nhle/tempmail/internal/ui/inbox"
	"github.com/nhle/tempmail/internal/ui/message"
	"github.com/nhle/tempmail/internal/ui/providerpick"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewHistory
	ViewProvider
)

// Labels shown on the address bar.
const (
	generatingLabel = "Generating..."
	copyLabel       = "Copy"
	copiedLabel     = "Copied"
	allocFailedText = "Failed to generate address"
)

// ProviderSource resolves a provider type to a ready adapter.
type ProviderSource interface {
	Get(t model.ProviderType) (provider.Provider, error)
}

// Options wires the root model to its collaborators. Manager, Providers and
// Config are required; the rest may be left empty.
type Options struct {
	Manager     *session.Manager
	Providers   ProviderSource
	Config      *model.AppConfig
	ConfigPath  string
	History     store.Store
	Credentials credential.Store
	Logger      *zap.Logger

	// Clipboard replaces the system clipboard writer.
	Clipboard func(string) error
}

// Model is the root Bubble Tea model. It routes input between views and
// mirrors the session manager's events into the address bar and inbox.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	manager    *session.Manager
	providers  ProviderSource
	cfg        *model.AppConfig
	configPath string
	history    store.Store
	creds      credential.Store
	logger     *zap.Logger
	clipboard  func(string) error

	inbox       inbox.Model
	detail      message.Model
	helpView    helpview.Model
	commandView command.Model
	historyView historyview.Model
	pickerView  providerpick.Model
	spinner     spinner.Model

	session    *model.Session
	countdown  string
	remaining  int
	generating bool
	errMessage string
	notice     string
	noticeErr  bool
	copied     bool
	copySeq    int
	openID     string
	ready      bool
}

// New creates the root model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()

	clip := opts.Clipboard
	if clip == nil {
		clip = defaultClipboard
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorYellow)

	return Model{
		currentView: ViewList,
		keys:        k,
		manager:     opts.Manager,
		providers:   opts.Providers,
		cfg:         opts.Config,
		configPath:  opts.ConfigPath,
		history:     opts.History,
		creds:       opts.Credentials,
		logger:      logger.OrNop(opts.Logger),
		clipboard:   clip,
		inbox:       inbox.New(k, 80, 24),
		detail:      message.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		historyView: historyview.New(opts.History, k, 80, 24),
		spinner:     sp,
		countdown:   countdown.Format(0),
	}
}

// Init subscribes to session events. The first mailbox is requested by
// the user.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.manager.Events())
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.inbox.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.historyView.SetSize(w, h)
		return m.updateActiveView(msg)

	case sessionEventMsg:
		cmd := m.handleSessionEvent(msg.event)
		return m, tea.Batch(cmd, waitForEvent(m.manager.Events()))

	case generateResultMsg:
		if !errorIsQuiet(msg.err) {
			m.logger.Debug("generate finished with error", zap.Error(msg.err))
			if m.errMessage == "" {
				m.errMessage = allocFailedText
			}
		}
		return m, m.syncFromSnapshot(m.manager.Snapshot())

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warn("copy to clipboard failed", zap.Error(msg.err))
			m.setNotice("Clipboard unavailable", true)
			return m, nil
		}
		m.copied = true
		m.copySeq++
		return m, resetCopyAfter(m.copySeq)

	case copyResetMsg:
		if msg.seq == m.copySeq {
			m.copied = false
		}
		return m, nil

	case noticeMsg:
		m.setNotice(msg.text, msg.isErr)
		return m, nil

	case inbox.SelectedMessageMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.openID = msg.ID
		m.detail.SetLoading(true)
		return m, m.openMessage(msg.ID)

	case message.DetailLoadedMsg:
		if msg.ID != m.openID {
			return m, nil
		}
		if msg.Err != nil {
			m.logger.Warn("fetching message failed", zap.String("id", msg.ID), zap.Error(msg.Err))
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case message.BackMsg:
		m.currentView = ViewList
		m.openID = ""
		m.detail.Clear()
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case historyview.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case providerpick.PickedMsg:
		m.currentView = ViewList
		return m, m.switchProvider(msg.Provider)

	case providerpick.CancelledMsg:
		m.currentView = ViewList
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work outside a single view. Views
// that own text input receive every key except ctrl+c.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.manager.Stop()
		return tea.Quit, true
	}

	switch m.currentView {
	case ViewCommand:
		if msg.String() == "esc" || key.Matches(msg, m.keys.Command) {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	case ViewProvider:
		if key.Matches(msg, m.keys.Back) {
			m.currentView = ViewList
			return nil, true
		}
		return nil, false
	case ViewHistory:
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			m.manager.Stop()
			return tea.Quit, true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Generate):
		if m.currentView == ViewList {
			return m.startGenerate(), true
		}

	case key.Matches(msg, m.keys.Copy):
		return m.startCopy(), true

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewList {
			m.manager.Refresh()
			return nil, true
		}
	}

	if m.currentView == ViewHelp && key.Matches(msg, m.keys.Back) {
		m.currentView = m.previousView
		return nil, true
	}
	return nil, false
}

// handleSessionEvent applies one lifecycle event. Tick, message and expiry
// events for any address other than the displayed one are ignored.
func (m *Model) handleSessionEvent(e session.Event) tea.Cmd {
	switch e := e.(type) {
	case session.GeneratingEvent:
		m.generating = e.InProgress
		if e.InProgress {
			m.errMessage = ""
			return m.spinner.Tick
		}

	case session.SessionStartedEvent:
		s := e.Session
		m.session = &s
		m.countdown = countdown.Format(s.ExpiresAt.Sub(s.CreatedAt))
		m.remaining = int(s.ExpiresAt.Sub(s.CreatedAt).Seconds())
		m.errMessage = ""
		m.copied = false
		m.openID = ""
		m.detail.Clear()
		if m.currentView == ViewDetail {
			m.currentView = ViewList
		}
		return m.inbox.SetMessages(nil)

	case session.AllocationFailedEvent:
		m.errMessage = allocFailedText

	case session.TickEvent:
		if m.isCurrent(e.Address) {
			m.countdown = e.Display
			m.remaining = int(e.Remaining.Seconds())
		}

	case session.MessagesEvent:
		if m.isCurrent(e.Address) {
			return m.inbox.SetMessages(e.Messages)
		}

	case session.ExpiredEvent:
		if m.isCurrent(e.Address) {
			s := *m.session
			s.Expired = true
			m.session = &s
			m.countdown = e.Display
			m.remaining = 0
		}
	}
	return nil
}

// syncFromSnapshot reconciles the view with the manager's state. Events
// are delivered best effort, so a finished Generate re-reads the snapshot
// in case SessionStarted or Messages were dropped.
func (m *Model) syncFromSnapshot(snap session.Snapshot) tea.Cmd {
	m.generating = snap.Generating
	if snap.Session == nil {
		return nil
	}

	var cmd tea.Cmd
	if !m.isCurrent(snap.Session.Address) {
		cmd = m.handleSessionEvent(session.SessionStartedEvent{Session: *snap.Session})
	}
	switch {
	case snap.State == session.Active:
		m.remaining = int(snap.Remaining.Seconds())
		m.countdown = countdown.Format(snap.Remaining)
	case snap.State == session.Expired || snap.Session.Expired:
		s := *m.session
		s.Expired = true
		m.session = &s
		m.countdown = countdown.ExpiredLabel
		m.remaining = 0
	}
	if len(snap.Messages) != m.inbox.Rows() {
		cmd = tea.Batch(cmd, m.inbox.SetMessages(snap.Messages))
	}
	return cmd
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewHistory:
		m.historyView, cmd = m.historyView.Update(msg)
	case ViewProvider:
		m.pickerView, cmd = m.pickerView.Update(msg)
	}

	return m, cmd
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("tempmail", m.headerStatus())
	notice := ""
	if m.currentView == ViewList {
		notice = m.notice
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), notice, m.noticeErr)

	return m.layout.Compose(header, m.addressBar(), m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.inbox.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewHistory:
		return m.historyView.View()
	case ViewProvider:
		return m.pickerView.View()
	default:
		return ""
	}
}

// headerStatus shows the provider of the next allocation and, once an
// address exists, its countdown.
func (m Model) headerStatus() ui.HeaderStatus {
	st := ui.HeaderStatus{Provider: string(m.cfg.Provider)}
	if m.session != nil {
		st.Countdown = m.countdown
		st.SecondsLeft = m.remaining
		st.Expired = m.session.Expired
	}
	return st
}

// addressBar renders the current address with its copy label, or the
// generation state when there is no address to show.
func (m Model) addressBar() string {
	var line string
	switch {
	case m.generating:
		line = m.spinner.View() + " " + theme.MutedStyle.Render(generatingLabel)
	case m.session == nil:
		line = theme.MutedStyle.Render("No address yet. Press g to generate one.")
	default:
		label := theme.HelpStyle.Render("[y] " + copyLabel)
		if m.copied {
			label = theme.AckStyle.Render(copiedLabel)
		}
		line = lipgloss.JoinHorizontal(lipgloss.Center,
			theme.ProviderLabelStyle(string(m.session.Provider)).Render(string(m.session.Provider)),
			theme.AddressStyle.Render(m.session.Address),
			" ",
			label,
		)
	}

	if m.errMessage != "" {
		line = lipgloss.JoinHorizontal(lipgloss.Center, line, "  ", theme.ErrorStyle.Render(m.errMessage))
	}
	return theme.AddressBarStyle.Width(max(m.layout.ContentWidth()-2, 10)).Render(line)
}

// keyHints returns the short key reference for the active view.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewDetail:
		return "esc back | y copy address | j/k scroll"
	case ViewHistory:
		return "j/k scroll | esc back"
	case ViewProvider:
		return "enter select | esc cancel"
	default:
		return "g new | y copy | r refresh | enter open | : command | ? help | q quit"
	}
}
