package wizard

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	validation := &ValidationError{Step: "s", Fields: FieldErrors{"a": "b"}}

	tests := []struct {
		name    string
		err     error
		check   func(t *testing.T, got error)
		message string
	}{
		{
			name: "nil",
			err:  nil,
			check: func(t *testing.T, got error) {
				assert.NoError(t, got)
			},
		},
		{
			name: "already classified",
			err:  validation,
			check: func(t *testing.T, got error) {
				assert.Same(t, validation, got)
			},
			message: "b",
		},
		{
			name: "unauthorized",
			err:  fmt.Errorf("profile: %w", &ports.RemoteError{StatusCode: 401, Message: "expired"}),
			check: func(t *testing.T, got error) {
				var gerr *GuardRejection
				require.ErrorAs(t, got, &gerr)
				assert.Equal(t, RedirectLogin, gerr.Redirect)
			},
			message: "Please sign in to continue",
		},
		{
			name: "missing token",
			err:  ports.ErrNoToken,
			check: func(t *testing.T, got error) {
				var gerr *GuardRejection
				assert.ErrorAs(t, got, &gerr)
			},
			message: "Please sign in to continue",
		},
		{
			name: "client error",
			err:  &ports.RemoteError{StatusCode: 422, Message: "Email already registered"},
			check: func(t *testing.T, got error) {
				var derr *DomainError
				require.ErrorAs(t, got, &derr)
				var remote *ports.RemoteError
				assert.ErrorAs(t, got, &remote)
			},
			message: "Email already registered",
		},
		{
			name: "server error",
			err:  &ports.RemoteError{StatusCode: 503, Message: "unavailable"},
			check: func(t *testing.T, got error) {
				var terr *TransportError
				assert.ErrorAs(t, got, &terr)
			},
			message: GenericFailureMessage,
		},
		{
			name: "client error without message",
			err:  &ports.RemoteError{StatusCode: 400},
			check: func(t *testing.T, got error) {
				var terr *TransportError
				assert.ErrorAs(t, got, &terr)
			},
			message: GenericFailureMessage,
		},
		{
			name: "network",
			err:  errors.New("connection reset"),
			check: func(t *testing.T, got error) {
				var terr *TransportError
				require.ErrorAs(t, got, &terr)
				assert.Contains(t, got.Error(), "connection reset")
			},
			message: GenericFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.err)
			tt.check(t, got)
			assert.Equal(t, tt.message, UserMessage(got))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Step: "account", Fields: FieldErrors{"password": "too short", "email": "required"}}

	assert.Equal(t, "step account is invalid: email: required; password: too short", err.Error())
	assert.Equal(t, "Please correct the highlighted fields", UserMessage(err))
}

func TestUserMessage_Busy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Please wait for the current request to finish", UserMessage(ErrBusy))
	assert.Empty(t, UserMessage(nil))
}
