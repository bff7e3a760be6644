package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteError(t *testing.T) {
	t.Parallel()

	t.Run("message with code", func(t *testing.T) {
		t.Parallel()
		err := &RemoteError{StatusCode: 409, Code: "duplicate_subscription", Message: "already subscribed"}
		assert.Equal(t, "remote error 409 (duplicate_subscription): already subscribed", err.Error())
		assert.True(t, err.IsClientError())
	})

	t.Run("server errors are not client errors", func(t *testing.T) {
		t.Parallel()
		err := &RemoteError{StatusCode: 502, Message: "bad gateway"}
		assert.False(t, err.IsClientError())
		assert.Equal(t, "remote error 502: bad gateway", err.Error())
	})

	t.Run("maps sentinels through wrapping", func(t *testing.T) {
		t.Parallel()
		notFound := fmt.Errorf("get subscription: %w", &RemoteError{StatusCode: 404})
		assert.True(t, errors.Is(notFound, ErrNotFound))
		assert.False(t, errors.Is(notFound, ErrUnauthorized))

		unauthorized := &RemoteError{StatusCode: 401}
		assert.ErrorIs(t, unauthorized, ErrUnauthorized)
	})
}
