package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/tui/components"
	"github.com/felixgeelhaar/lingoflow/internal/tui/ui"
)

// wizardModel renders the current step of a Session as a form.
type wizardModel struct {
	ctx     context.Context
	session Session
	opts    Options
	styles  ui.Styles
	keys    ui.KeyMap
	spinner spinner.Model
	width   int
	height  int

	status   wizard.Status
	def      wizard.Definition
	fields   []fieldInput
	focus    int
	progress components.StepProgress

	fieldErrs wizard.FieldErrors
	message   string
	warning   string
	busy      bool

	completed bool
	cancelled bool
	redirect  wizard.Redirect
	reason    string
}

func newWizardModel(ctx context.Context, session Session, opts Options) wizardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	styles := ui.DefaultStyles()
	s.Style = styles.Spinner

	m := wizardModel{
		ctx:     ctx,
		session: session,
		opts:    opts,
		styles:  styles,
		keys:    ui.DefaultKeyMap(),
		spinner: s,
		width:   ui.DefaultWidth,
		height:  ui.DefaultHeight,
	}
	m, _ = m.loadStep()
	return m
}

// loadStep rebuilds the form from the session's current step.
func (m wizardModel) loadStep() (wizardModel, tea.Cmd) {
	m.status = m.session.Status()
	m.def, _ = m.session.Definition(m.status.Step)
	m.progress = components.NewStepProgress(len(m.status.Steps)).
		WithStyles(m.styles).
		SetStep(m.status.Index, title(string(m.status.Step)))

	values, _ := wizard.Values(m.session.CurrentData())
	m.fields = make([]fieldInput, len(m.def.Form))
	for i, field := range m.def.Form {
		m.fields[i] = newFieldInput(field, values[field.Name])
	}

	m.focus = 0
	m.fieldErrs = nil
	m.warning = m.status.Warning
	var cmd tea.Cmd
	if len(m.fields) > 0 {
		m.fields[0], cmd = m.fields[0].focus()
	}
	return m, cmd
}

func (m wizardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.checkEntry())
}

// checkEntry evaluates the current step's guard so warnings show up
// before the user fills anything in.
func (m wizardModel) checkEntry() tea.Cmd {
	session, ctx, step := m.session, m.ctx, m.status.Step
	return func() tea.Msg {
		d, err := session.CanEnter(ctx, step)
		if err != nil {
			return ui.EntryCheckedMsg{Step: string(step)}
		}
		warning := d.Warning
		if !d.Allowed && warning == "" {
			warning = d.Reason
		}
		return ui.EntryCheckedMsg{Step: string(step), Warning: warning}
	}
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.styles = m.styles.WithWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ui.EntryCheckedMsg:
		if msg.Step == string(m.status.Step) && msg.Warning != "" {
			m.warning = msg.Warning
		}
		return m, nil

	case ui.OperationDoneMsg:
		return m.handleDone(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m wizardModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancelled = true
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m.back()

	case key.Matches(msg, m.keys.Continue):
		if m.focus < len(m.fields)-1 {
			return m.moveFocus(1)
		}
		return m.start()

	case m.keys.IsNext(msg):
		return m.moveFocus(1)

	case m.keys.IsPrev(msg):
		return m.moveFocus(-1)
	}

	if len(m.fields) == 0 {
		return m, nil
	}
	f, changed, cmd := m.fields[m.focus].update(msg, m.keys)
	m.fields[m.focus] = f
	if changed {
		m = m.patch(f)
	}
	return m, cmd
}

// patch sends a field change to the session right away.
func (m wizardModel) patch(f fieldInput) wizardModel {
	err := m.session.Update(m.ctx, wizard.Patch{f.field.Name: f.value()})
	var verr *wizard.ValidationError
	switch {
	case err == nil:
		if m.fieldErrs != nil {
			delete(m.fieldErrs, f.field.Name)
		}
		if len(m.fieldErrs) == 0 {
			m.message = ""
		}
	case errors.As(err, &verr):
		m.fieldErrs = mergeErrors(m.fieldErrs, verr.Fields)
	default:
		m.message = wizard.UserMessage(err)
	}
	return m
}

func (m wizardModel) moveFocus(delta int) (tea.Model, tea.Cmd) {
	if len(m.fields) == 0 {
		return m, nil
	}
	m.fields[m.focus] = m.fields[m.focus].blur()
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].focus()
	return m, cmd
}

func (m wizardModel) back() (tea.Model, tea.Cmd) {
	if m.status.Index == 0 {
		m.cancelled = true
		return m, tea.Quit
	}
	if err := m.session.Retreat(m.ctx); err != nil {
		m.message = wizard.UserMessage(err)
		return m, nil
	}
	m.message = ""
	next, cmd := m.loadStep()
	return next, tea.Batch(cmd, next.checkEntry())
}

// start runs Advance, or Submit on the terminal step, off the UI
// goroutine. Input is ignored until it reports back.
func (m wizardModel) start() (tea.Model, tea.Cmd) {
	op := ui.OpAdvance
	if m.def.Terminal {
		op = ui.OpSubmit
	}
	m.busy = true
	m.message = ""

	session, ctx := m.session, m.ctx
	run := func() tea.Msg {
		var err error
		switch op {
		case ui.OpSubmit:
			err = session.Submit(ctx)
		default:
			err = session.Advance(ctx)
		}
		return ui.NewOperationDoneMsg(op, err)
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m wizardModel) handleDone(msg ui.OperationDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false

	if msg.Err == nil {
		if msg.Op == ui.OpSubmit {
			m.completed = true
			m.status = m.session.Status()
			return m, tea.Quit
		}
		next, cmd := m.loadStep()
		return next, tea.Batch(cmd, next.checkEntry())
	}

	var (
		verr *wizard.ValidationError
		gerr *wizard.GuardRejection
	)
	switch {
	case errors.As(msg.Err, &verr):
		m.fieldErrs = mergeErrors(nil, verr.Fields)
	case errors.As(msg.Err, &gerr) && gerr.Redirect != wizard.RedirectNone:
		m.redirect = gerr.Redirect
		m.reason = gerr.Reason
		return m, tea.Quit
	}

	// A terminal domain failure may point back to an earlier step.
	if s := m.session.Status(); s.Step != m.status.Step {
		next, cmd := m.loadStep()
		next.message = wizard.UserMessage(msg.Err)
		return next, cmd
	}
	m.status = m.session.Status()
	m.message = wizard.UserMessage(msg.Err)
	return m, nil
}

func (m wizardModel) result() *Result {
	return &Result{
		SessionID: m.status.SessionID,
		Completed: m.completed,
		Cancelled: m.cancelled,
		Redirect:  m.redirect,
		Reason:    m.reason,
	}
}

func (m wizardModel) View() string {
	switch {
	case m.completed:
		return m.styles.App.Render(m.styles.Success.Render("✓ All done"))
	case m.redirect != wizard.RedirectNone:
		body := m.styles.Warning.Render(m.reason)
		hint := m.styles.Help.Render("Your answers are saved; run the command again with --session " + m.status.SessionID)
		return m.styles.App.Render(body + "\n" + hint)
	}

	var b strings.Builder

	heading := m.opts.Title
	if heading == "" {
		heading = title(m.status.Wizard)
	}
	b.WriteString(m.styles.Title.Render(heading))
	b.WriteString("\n")
	b.WriteString(m.progress.View())
	b.WriteString("\n\n")

	if m.opts.Describe != nil {
		if text := m.opts.Describe(m.status.Step, m.session.Draft()); text != "" {
			b.WriteString(m.styles.Panel.Render(text))
			b.WriteString("\n\n")
		}
	}
	if m.warning != "" {
		b.WriteString(m.styles.Warning.Render("! " + m.warning))
		b.WriteString("\n\n")
	}

	for i, f := range m.fields {
		b.WriteString(f.view(m.styles, i == m.focus, m.fieldErrs[f.field.Name]))
		b.WriteString("\n\n")
	}

	switch {
	case m.busy:
		b.WriteString(m.spinner.View() + " " + m.styles.Paragraph.Render("Working..."))
	case m.message != "":
		b.WriteString(m.styles.Error.Render(m.message))
	}
	b.WriteString("\n\n")
	b.WriteString(m.helpView())

	return m.styles.App.Render(b.String())
}

func (m wizardModel) helpView() string {
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		label := h.Desc
		if h.Key == "enter" && m.def.Terminal {
			label = "submit"
		}
		parts = append(parts, m.styles.HelpKey.Render(h.Key)+" "+m.styles.Help.Render(label))
	}
	return strings.Join(parts, "  ")
}

func mergeErrors(dst, src wizard.FieldErrors) wizard.FieldErrors {
	if dst == nil {
		dst = wizard.FieldErrors{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func title(s string) string {
	return cases.Title(language.English).String(s)
}
