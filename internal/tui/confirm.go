package tui

import (
	"fmt"
	"io"
	"os"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// ConfirmResult represents the outcome of a confirmation dialog.
type ConfirmResult int

const (
	ConfirmYes ConfirmResult = iota
	ConfirmNo
	ConfirmCancelled
)

// ConfirmOptions configures the confirm dialog.
type ConfirmOptions struct {
	Prompt      string
	Detail      string // optional second line, e.g. what will be lost
	Affirmative string // default "Yes"
	Negative    string // default "No"
	Default     bool   // true selects the affirmative button initially
	Input       io.Reader
	Output      io.Writer // default os.Stderr, so stdout stays pipeable
}

// Confirm runs an inline yes/no prompt and blocks until it is answered.
func Confirm(opts ConfirmOptions) (ConfirmResult, error) {
	if opts.Affirmative == "" {
		opts.Affirmative = "Yes"
	}
	if opts.Negative == "" {
		opts.Negative = "No"
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	progOpts := []tea.ProgramOption{tea.WithOutput(opts.Output)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	final, err := tea.NewProgram(newConfirmModel(opts), progOpts...).Run()
	if err != nil {
		return ConfirmCancelled, err
	}
	return final.(confirmModel).result, nil
}

type confirmModel struct {
	prompt      string
	detail      string
	affirmative string
	negative    string
	selection   bool // true = affirmative selected
	result      ConfirmResult
	done        bool
	keys        confirmKeyMap
}

type confirmKeyMap struct {
	Toggle      key.Binding
	Submit      key.Binding
	Affirmative key.Binding
	Negative    key.Binding
	Cancel      key.Binding
}

func defaultConfirmKeyMap() confirmKeyMap {
	return confirmKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys("left", "right", "h", "l", "tab", "shift+tab"),
			key.WithHelp("←/→", "toggle"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Affirmative: key.NewBinding(key.WithKeys("y", "Y")),
		Negative:    key.NewBinding(key.WithKeys("n", "N")),
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

var (
	confirmButtonOn = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorReverse).
			Background(colorAccent).
			Padding(0, 2)

	confirmButtonOff = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)
)

func newConfirmModel(opts ConfirmOptions) confirmModel {
	return confirmModel{
		prompt:      opts.Prompt,
		detail:      opts.Detail,
		affirmative: opts.Affirmative,
		negative:    opts.Negative,
		selection:   opts.Default,
		result:      ConfirmCancelled,
		keys:        defaultConfirmKeyMap(),
	}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) finish(r ConfirmResult) (tea.Model, tea.Cmd) {
	m.result = r
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Cancel):
		return m.finish(ConfirmCancelled)
	case key.Matches(k, m.keys.Affirmative):
		return m.finish(ConfirmYes)
	case key.Matches(k, m.keys.Negative):
		return m.finish(ConfirmNo)
	case key.Matches(k, m.keys.Toggle):
		m.selection = !m.selection
	case key.Matches(k, m.keys.Submit):
		if m.selection {
			return m.finish(ConfirmYes)
		}
		return m.finish(ConfirmNo)
	}
	return m, nil
}

func (m confirmModel) View() tea.View {
	if m.done {
		return tea.NewView("")
	}

	aff, neg := confirmButtonOff, confirmButtonOn
	if m.selection {
		aff, neg = confirmButtonOn, confirmButtonOff
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		aff.Render(m.affirmative), "  ", neg.Render(m.negative))

	prompt := queryTitleStyle.Render(m.prompt)
	if m.detail != "" {
		prompt += "\n" + helpStyle.Render(m.detail)
	}
	return tea.NewView(fmt.Sprintf("\n%s\n\n%s\n", prompt, buttons))
}
