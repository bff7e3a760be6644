package ports

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by collaborator adapters.
var (
	// ErrNotFound is returned when the remote resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthorized is returned when no valid access token is available.
	ErrUnauthorized = errors.New("not authenticated")
)

// RemoteError is a rejection reported by the remote API. The Message is
// the server's own explanation and is safe to show to the user.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements error.
func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether the server rejected the request itself
// (4xx) rather than failing to process it.
func (e *RemoteError) IsClientError() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError
}

// Is maps well-known statuses onto the package sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}
