package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/session"
	"github.com/nhle/tempmail/internal/ui/command"
	"github.com/nhle/tempmail/internal/ui/message"
	"github.com/nhle/tempmail/internal/ui/providerpick"
)

// generateTimeout bounds a whole allocation handshake.
const generateTimeout = 30 * time.Second

// openTimeout bounds a single message fetch.
const openTimeout = 30 * time.Second

// generateResultMsg is returned when a Generate call finishes. Lifecycle
// changes arrive separately as session events.
type generateResultMsg struct {
	err error
}

// noticeMsg shows a transient line in the status bar.
type noticeMsg struct {
	text  string
	isErr bool
}

func (m Model) generate() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()
		_, err := mgr.Generate(ctx)
		return generateResultMsg{err: err}
	}
}

func (m Model) openMessage(id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
		defer cancel()
		d, err := mgr.OpenMessage(ctx, id)
		return message.DetailLoadedMsg{ID: id, Detail: d, Err: err}
	}
}

// lookupPassword reads the stored mail.gw password of the current address.
func (m Model) lookupPassword() tea.Cmd {
	creds := m.creds
	s := m.session
	return func() tea.Msg {
		switch {
		case s == nil:
			return noticeMsg{text: "No address yet", isErr: true}
		case s.Provider != model.ProviderMailGW:
			return noticeMsg{text: string(s.Provider) + " mailboxes have no password"}
		case creds == nil:
			return noticeMsg{text: "Credential storage is unavailable", isErr: true}
		}

		pw, err := creds.Get(credential.MailGWPasswordKey(s.Address))
		if errors.Is(err, credential.ErrNotFound) {
			return noticeMsg{text: "No password stored for " + s.Address, isErr: true}
		}
		if err != nil {
			return noticeMsg{text: "Reading password failed: " + err.Error(), isErr: true}
		}
		return noticeMsg{text: "mail.gw password: " + pw}
	}
}

func (m Model) clearHistory() tea.Cmd {
	s := m.history
	return func() tea.Msg {
		if s == nil {
			return noticeMsg{text: "History is disabled", isErr: true}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := s.ClearMailboxes(ctx)
		if err != nil {
			return noticeMsg{text: "Clearing history failed: " + err.Error(), isErr: true}
		}
		return noticeMsg{text: fmt.Sprintf("Removed %d history entries", n)}
	}
}

// switchProvider makes picked the provider of the next allocation and
// persists the choice when a config path is known.
func (m *Model) switchProvider(picked model.ProviderType) tea.Cmd {
	p, err := m.providers.Get(picked)
	if err != nil {
		m.setNotice(err.Error(), true)
		return nil
	}
	m.manager.SetProvider(p)
	m.cfg.Provider = picked
	m.setNotice("Next address will use "+string(picked), false)

	if m.configPath == "" {
		return nil
	}
	cfg := *m.cfg
	path := m.configPath
	log := m.logger
	return func() tea.Msg {
		if err := model.SaveConfig(path, &cfg); err != nil {
			log.Warn("saving config failed", zap.String("path", path), zap.Error(err))
			return noticeMsg{text: "Could not save provider choice", isErr: true}
		}
		return nil
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(input string) tea.Cmd {
	name, ok := command.Resolve(input)
	if !ok {
		m.setNotice("Unknown command: "+input, true)
		return nil
	}

	switch name {
	case command.Generate:
		return m.startGenerate()
	case command.Copy:
		return m.startCopy()
	case command.Refresh:
		m.manager.Refresh()
		return nil
	case command.History:
		m.previousView = ViewList
		m.currentView = ViewHistory
		return m.historyView.Init()
	case command.HistoryClear:
		return m.clearHistory()
	case command.Password:
		return m.lookupPassword()
	case command.Provider:
		m.previousView = ViewList
		m.currentView = ViewProvider
		m.pickerView = providerpick.New(m.cfg.Provider, m.layout.ContentWidth())
		return m.pickerView.Init()
	case command.Quit:
		m.manager.Stop()
		return tea.Quit
	}
	return nil
}

func (m *Model) startGenerate() tea.Cmd {
	if m.generating {
		return nil
	}
	m.generating = true
	m.errMessage = ""
	return tea.Batch(m.generate(), m.spinner.Tick)
}

func (m *Model) startCopy() tea.Cmd {
	if m.session == nil {
		return nil
	}
	return m.copyAddress(m.session.Address)
}

// isCurrent reports whether an event for address belongs to the displayed
// session.
func (m Model) isCurrent(address string) bool {
	return m.session != nil && m.session.Address == address
}

// errorIsQuiet reports errors that need no user-facing message.
func errorIsQuiet(err error) bool {
	return err == nil || errors.Is(err, session.ErrGenerateInProgress)
}
