// Package tui provides the terminal step view for lingoflow wizards.
package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
)

// Session is the part of a wizard controller the step view drives.
type Session interface {
	Status() wizard.Status
	Definition(id wizard.StepID) (wizard.Definition, bool)
	CurrentData() wizard.StepData
	Draft() wizard.Draft
	Update(ctx context.Context, p wizard.Patch) error
	Advance(ctx context.Context) error
	Retreat(ctx context.Context) error
	Submit(ctx context.Context) error
	CanEnter(ctx context.Context, id wizard.StepID) (wizard.Decision, error)
}

type controllerSession[R any] struct {
	*wizard.Controller[R]
}

// Submit runs the terminal action, dropping the typed result; callers read
// it from the controller afterwards.
func (s controllerSession[R]) Submit(ctx context.Context) error {
	_, err := s.Controller.Submit(ctx)
	return err
}

// SessionOf adapts a controller of any result type to Session.
func SessionOf[R any](c *wizard.Controller[R]) Session {
	return controllerSession[R]{Controller: c}
}

// Options configures the step view.
type Options struct {
	// Title overrides the wizard name in the header.
	Title string
	// Describe returns extra context shown above a step's fields, e.g. the
	// chosen plan on the confirm step. It may return "".
	Describe func(step wizard.StepID, draft wizard.Draft) string
	// Input and Output default to the terminal.
	Input  io.Reader
	Output io.Writer
}

// Result describes how the step view ended.
type Result struct {
	SessionID string
	Completed bool
	Cancelled bool
	// Redirect is set when a guard sent the user elsewhere, e.g. to sign in.
	// The draft has been checkpointed under SessionID.
	Redirect wizard.Redirect
	Reason   string
}

// RunWizard runs the interactive step view until the wizard succeeds, the
// user quits or a guard redirects.
func RunWizard[R any](ctx context.Context, c *wizard.Controller[R], opts Options) (*Result, error) {
	model := newWizardModel(ctx, SessionOf(c), opts)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	p := tea.NewProgram(model, programOpts...)
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("%s wizard failed: %w", c.Name(), err)
	}

	m, ok := finalModel.(wizardModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	return m.result(), nil
}
