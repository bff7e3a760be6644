package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Operation names a controller call that runs off the UI goroutine.
type Operation string

// Operations.
const (
	OpAdvance Operation = "advance"
	OpSubmit  Operation = "submit"
)

// OperationDoneMsg reports the outcome of an Operation.
type OperationDoneMsg struct {
	Op  Operation
	Err error
}

// EntryCheckedMsg carries the guard verdict for the step being shown.
type EntryCheckedMsg struct {
	Step    string
	Warning string
}

// NewOperationDoneMsg creates a new operation result message.
func NewOperationDoneMsg(op Operation, err error) tea.Msg {
	return OperationDoneMsg{Op: op, Err: err}
}
