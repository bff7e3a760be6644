package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/lingoflow/internal/tui/ui"
)

// ErrPromptCancelled is returned when the user leaves a prompt without
// answering.
var ErrPromptCancelled = errors.New("prompt cancelled")

// PromptOptions configures a single-line prompt.
type PromptOptions struct {
	Label  string
	Secret bool
}

type promptModel struct {
	label     string
	input     textinput.Model
	keys      ui.KeyMap
	styles    ui.Styles
	done      bool
	cancelled bool
}

func newPromptModel(opts PromptOptions) promptModel {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Width = ui.DefaultInputWidth
	ti.CharLimit = ui.DefaultCharLimit
	if opts.Secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()
	return promptModel{
		label:  opts.Label,
		input:  ti,
		keys:   ui.DefaultKeyMap(),
		styles: ui.DefaultStyles(),
	}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Back):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Continue):
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return m.styles.Label.Render(m.label) + "\n" + m.input.View() + "\n"
}

// Prompt asks for one line of input.
func Prompt(ctx context.Context, opts PromptOptions, runOpts Options) (string, error) {
	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if runOpts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(runOpts.Input))
	}
	if runOpts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(runOpts.Output))
	}

	finalModel, err := tea.NewProgram(newPromptModel(opts), programOpts...).Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	m, ok := finalModel.(promptModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type")
	}
	if m.cancelled {
		return "", ErrPromptCancelled
	}
	return m.input.Value(), nil
}
