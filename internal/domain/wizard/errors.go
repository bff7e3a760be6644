package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Controller errors.
var (
	// ErrBusy is returned while an effect or terminal action is in flight.
	ErrBusy = errors.New("wizard is busy")
	// ErrCompleted is returned for any transition after success.
	ErrCompleted = errors.New("wizard already completed")
	// ErrNoPreviousStep is returned when retreating from the first step.
	ErrNoPreviousStep = errors.New("already at the first step")
	// ErrTerminalStep is returned by Advance on the terminal step; use Submit.
	ErrTerminalStep = errors.New("current step is terminal; submit instead")
	// ErrNotTerminal is returned by Submit before the terminal step.
	ErrNotTerminal = errors.New("current step is not terminal")
	// ErrUnknownStep is returned for step ids the wizard does not define.
	ErrUnknownStep = errors.New("unknown step")
	// ErrInvalidDefinition is returned by New for malformed step lists.
	ErrInvalidDefinition = errors.New("invalid wizard definition")
	// ErrSnapshotNotFound is returned by repositories for unknown sessions.
	ErrSnapshotNotFound = errors.New("draft snapshot not found")
)

// GenericFailureMessage is shown for transport and unknown failures.
const GenericFailureMessage = "Something went wrong while contacting the server. Your answers are kept; please try again."

// ValidationError reports every invalid field of a step.
type ValidationError struct {
	Step   StepID
	Fields FieldErrors
}

// Error implements error with fields in a stable order.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("step %s is invalid: %s", e.Step, strings.Join(parts, "; "))
}

// Redirect names an external flow the user must visit before continuing.
type Redirect string

// Redirect targets.
const (
	RedirectNone  Redirect = ""
	RedirectLogin Redirect = "login"
)

// GuardRejection reports that a step may not be entered.
type GuardRejection struct {
	Step     StepID
	Reason   string
	Redirect Redirect
}

// Error implements error.
func (e *GuardRejection) Error() string {
	if e.Redirect != RedirectNone {
		return fmt.Sprintf("cannot enter step %s: %s (redirect to %s)", e.Step, e.Reason, e.Redirect)
	}
	return fmt.Sprintf("cannot enter step %s: %s", e.Step, e.Reason)
}

// DomainError is a business-rule rejection from a collaborator. Message is
// shown to the user verbatim.
type DomainError struct {
	Message string
	Err     error
}

// Error implements error.
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the collaborator error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// TransportError is a network or unknown failure. It is always safe to
// retry by submitting again.
type TransportError struct {
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

// Unwrap returns the underlying failure.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify maps a collaborator failure onto the wizard error taxonomy.
// Errors that are already classified are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		verr *ValidationError
		gerr *GuardRejection
		derr *DomainError
		terr *TransportError
	)
	if errors.As(err, &verr) || errors.As(err, &gerr) || errors.As(err, &derr) || errors.As(err, &terr) {
		return err
	}

	if errors.Is(err, ports.ErrUnauthorized) || errors.Is(err, ports.ErrNoToken) {
		return &GuardRejection{Reason: "Please sign in to continue", Redirect: RedirectLogin}
	}

	var remote *ports.RemoteError
	if errors.As(err, &remote) && remote.IsClientError() && remote.Message != "" {
		return &DomainError{Message: remote.Message, Err: err}
	}

	return &TransportError{Err: err}
}

// UserMessage returns the text to show for an error returned by a
// controller operation.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		verr *ValidationError
		gerr *GuardRejection
		derr *DomainError
	)
	switch {
	case errors.As(err, &verr):
		if len(verr.Fields) == 1 {
			for _, msg := range verr.Fields {
				return msg
			}
		}
		return "Please correct the highlighted fields"
	case errors.As(err, &gerr):
		return gerr.Reason
	case errors.As(err, &derr):
		return derr.Message
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish"
	default:
		return GenericFailureMessage
	}
}
