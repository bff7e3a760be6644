package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/tui/ui"
)

func TestFormatValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"text", "Spanish", "Spanish"},
		{"bool", true, "true"},
		{"whole number", float64(15), "15"},
		{"zero number is blank", float64(0), ""},
		{"otp boxes", []any{"1", "2", "3", "", "", ""}, "123"},
		{"unsupported", map[string]any{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatValue(tt.value))
		})
	}
}

func TestFieldInput_Choice(t *testing.T) {
	t.Parallel()

	keys := ui.DefaultKeyMap()
	field := wizard.Field{Name: "dailyGoalMinutes", Label: "Daily goal", Kind: wizard.KindNumber, Options: []string{"5", "10", "15"}}

	f := newFieldInput(field, float64(10))
	assert.Equal(t, "10", f.value())

	f, changed, _ := f.update(tea.KeyMsg{Type: tea.KeyRight}, keys)
	assert.True(t, changed)
	assert.Equal(t, "15", f.value())

	f, _, _ = f.update(tea.KeyMsg{Type: tea.KeyRight}, keys)
	assert.Equal(t, "5", f.value(), "wraps around")

	f, changed, _ = f.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, keys)
	assert.False(t, changed)
	assert.Equal(t, "5", f.value())
}

func TestFieldInput_UnsetChoice(t *testing.T) {
	t.Parallel()

	f := newFieldInput(wizard.Field{Name: "planId", Kind: wizard.KindChoice, Options: []string{"monthly", "yearly"}}, "")
	assert.Equal(t, "", f.value())

	f, _, _ = f.update(tea.KeyMsg{Type: tea.KeyLeft}, ui.DefaultKeyMap())
	assert.Equal(t, "yearly", f.value())
}

func TestFieldInput_Toggle(t *testing.T) {
	t.Parallel()

	f := newFieldInput(wizard.Field{Name: "acceptTerms", Label: "Accept", Kind: wizard.KindToggle}, false)
	assert.Equal(t, false, f.value())
	assert.Contains(t, f.view(ui.DefaultStyles(), true, ""), "[ ]")

	f, changed, _ := f.update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}, ui.DefaultKeyMap())
	assert.True(t, changed)
	assert.Equal(t, true, f.value())
	assert.Contains(t, f.view(ui.DefaultStyles(), true, ""), "[x]")
}

func TestFieldInput_SecretAndOTP(t *testing.T) {
	t.Parallel()

	secret := newFieldInput(wizard.Field{Name: "password", Kind: wizard.KindSecret}, "hunter22")
	assert.Equal(t, textinput.EchoPassword, secret.input.EchoMode)
	assert.Equal(t, "hunter22", secret.value())

	otp := newFieldInput(wizard.Field{Name: "otp", Kind: wizard.KindOTP}, []any{"4", "2", "", "", "", ""})
	assert.Equal(t, wizard.OTPLength, otp.input.CharLimit)
	assert.Equal(t, "42", otp.value())
}

func TestFieldInput_ViewShowsError(t *testing.T) {
	t.Parallel()

	f := newFieldInput(wizard.Field{Name: "email", Label: "Email", Kind: wizard.KindEmail}, "")

	view := f.view(ui.DefaultStyles(), false, "Email is required")

	assert.Contains(t, view, "Email")
	assert.Contains(t, view, "Email is required")
}
