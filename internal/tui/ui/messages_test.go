package ui_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/lingoflow/internal/tui/ui"
)

func TestNewOperationDoneMsg(t *testing.T) {
	t.Parallel()

	err := errors.New("offline")
	msg := ui.NewOperationDoneMsg(ui.OpSubmit, err)

	done, ok := msg.(ui.OperationDoneMsg)
	assert.True(t, ok)
	assert.Equal(t, ui.OpSubmit, done.Op)
	assert.Equal(t, err, done.Err)
}
