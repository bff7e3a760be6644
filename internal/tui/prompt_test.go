package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestPromptModel_SecretInput(t *testing.T) {
	t.Parallel()

	m := newPromptModel(PromptOptions{Label: "Password", Secret: true})
	assert.Equal(t, textinput.EchoPassword, m.input.EchoMode)

	for _, r := range "secret1" {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(promptModel)
	}
	assert.Contains(t, m.View(), "Password")
	assert.NotContains(t, m.View(), "secret1")

	updated, cmd := m.Update(keyEnter)
	m = updated.(promptModel)

	assert.True(t, m.done)
	assert.True(t, isQuit(cmd))
	assert.Equal(t, "secret1", m.input.Value())
	assert.Empty(t, m.View())
}

func TestPromptModel_Cancel(t *testing.T) {
	t.Parallel()

	for _, msg := range []tea.KeyMsg{keyEsc, keyCtrlC} {
		m := newPromptModel(PromptOptions{Label: "Email"})

		updated, cmd := m.Update(msg)
		m = updated.(promptModel)

		assert.True(t, m.cancelled)
		assert.True(t, isQuit(cmd))
	}
}
