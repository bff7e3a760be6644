package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap contains the key bindings of a wizard form. Printable keys are
// left to text inputs, so nothing here binds a bare letter.
type KeyMap struct {
	// Field navigation
	NextField key.Binding
	PrevField key.Binding

	// Choice fields
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding

	// Step navigation
	Continue key.Binding
	Back     key.Binding

	// General
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab/↓", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab/↑", "previous field"),
		),

		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "previous option"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next option"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),

		Continue: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "continue"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),

		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// IsNext returns true if the key message moves to the next field.
func (k KeyMap) IsNext(msg tea.KeyMsg) bool {
	return key.Matches(msg, k.NextField)
}

// IsPrev returns true if the key message moves to the previous field.
func (k KeyMap) IsPrev(msg tea.KeyMsg) bool {
	return key.Matches(msg, k.PrevField)
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Continue, k.Back, k.NextField, k.Quit}
}
