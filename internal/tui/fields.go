package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/tui/ui"
)

// fieldInput is the editable widget of one wizard.Field. Text-like kinds
// use a textinput; choices cycle through options; toggles flip a flag.
type fieldInput struct {
	field  wizard.Field
	input  textinput.Model
	choice int
	on     bool
}

func newFieldInput(field wizard.Field, value any) fieldInput {
	f := fieldInput{field: field, choice: -1}

	switch {
	case f.isChoice():
		text := formatValue(value)
		for i, opt := range field.Options {
			if opt == text {
				f.choice = i
			}
		}
	case field.Kind == wizard.KindToggle:
		f.on, _ = value.(bool)
	default:
		ti := textinput.New()
		ti.Prompt = "› "
		ti.Placeholder = field.Hint
		ti.Width = ui.DefaultInputWidth
		ti.CharLimit = ui.DefaultCharLimit
		switch field.Kind {
		case wizard.KindSecret:
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		case wizard.KindOTP:
			ti.CharLimit = wizard.OTPLength
			if ti.Placeholder == "" {
				ti.Placeholder = strings.Repeat("_", wizard.OTPLength)
			}
		}
		ti.SetValue(formatValue(value))
		f.input = ti
	}
	return f
}

func (f fieldInput) isChoice() bool {
	return len(f.field.Options) > 0 && (f.field.Kind == wizard.KindChoice || f.field.Kind == wizard.KindNumber)
}

func (f fieldInput) isText() bool {
	return !f.isChoice() && f.field.Kind != wizard.KindToggle
}

// value returns the patch value for the field.
func (f fieldInput) value() any {
	switch {
	case f.isChoice():
		if f.choice < 0 {
			return ""
		}
		return f.field.Options[f.choice]
	case f.field.Kind == wizard.KindToggle:
		return f.on
	default:
		return f.input.Value()
	}
}

func (f fieldInput) focus() (fieldInput, tea.Cmd) {
	if !f.isText() {
		return f, nil
	}
	cmd := f.input.Focus()
	return f, cmd
}

func (f fieldInput) blur() fieldInput {
	if f.isText() {
		f.input.Blur()
	}
	return f
}

// update applies a key to the field and reports whether its value changed.
func (f fieldInput) update(msg tea.KeyMsg, keys ui.KeyMap) (fieldInput, bool, tea.Cmd) {
	switch {
	case f.isChoice():
		n := len(f.field.Options)
		switch {
		case key.Matches(msg, keys.Right):
			f.choice = (f.choice + 1) % n
			return f, true, nil
		case key.Matches(msg, keys.Left):
			if f.choice <= 0 {
				f.choice = n - 1
			} else {
				f.choice--
			}
			return f, true, nil
		}
		return f, false, nil

	case f.field.Kind == wizard.KindToggle:
		if key.Matches(msg, keys.Toggle) {
			f.on = !f.on
			return f, true, nil
		}
		return f, false, nil
	}

	before := f.input.Value()
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, f.input.Value() != before, cmd
}

func (f fieldInput) view(styles ui.Styles, focused bool, errMsg string) string {
	var b strings.Builder

	label := styles.Label
	marker := "  "
	if focused {
		label = styles.LabelActive
		marker = "▸ "
	}
	b.WriteString(label.Render(marker + f.field.Label))
	b.WriteString("\n")

	switch {
	case f.isChoice():
		b.WriteString("  ")
		for i, opt := range f.field.Options {
			style := styles.Choice
			if i == f.choice {
				style = styles.ChoiceActive
			}
			b.WriteString(style.Render(opt))
		}
	case f.field.Kind == wizard.KindToggle:
		box := "[ ]"
		if f.on {
			box = "[x]"
		}
		b.WriteString("  " + box)
	default:
		b.WriteString("  " + f.input.View())
	}

	if errMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.FieldError.Render(errMsg))
	}
	return b.String()
}

// formatValue renders a JSON-decoded draft value as input text.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, _ := item.(string)
			parts = append(parts, s)
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}
