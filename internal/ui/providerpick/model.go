package providerpick

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/theme"
)

// PickedMsg is sent when the user confirms a provider.
type PickedMsg struct {
	Provider model.ProviderType
}

// CancelledMsg is sent when the user aborts the picker.
type CancelledMsg struct{}

// Model wraps a huh select form listing the supported providers.
type Model struct {
	form   *huh.Form
	choice *string
	width  int
}

// New builds a picker with current preselected.
func New(current model.ProviderType, width int) Model {
	choice := string(current)
	m := Model{choice: &choice, width: width}
	m.form = m.buildForm()
	return m
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Provider").
				Description("Used for the next generated address").
				Options(
					huh.NewOption("mail.gw - account with token", string(model.ProviderMailGW)),
					huh.NewOption("1secmail - anonymous mailbox", string(model.ProviderOneSecMail)),
				).
				Value(m.choice),
		),
	).WithWidth(max(m.width-8, 20)).WithShowHelp(false)
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update forwards input to the form and reports completion.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		picked := model.ProviderType(*m.choice)
		return m, func() tea.Msg { return PickedMsg{Provider: picked} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	return m, cmd
}

// View renders the picker inside a panel.
func (m Model) View() string {
	return theme.DetailPanelStyle.
		Width(max(m.width-4, 20)).
		Render(m.form.View())
}
