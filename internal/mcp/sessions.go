package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/lingoflow/internal/app"
	"github.com/felixgeelhaar/lingoflow/internal/domain/checkout"
	"github.com/felixgeelhaar/lingoflow/internal/domain/recovery"
	"github.com/felixgeelhaar/lingoflow/internal/domain/registration"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// ErrUnknownSession is returned for session ids that were not started on
// this server.
var ErrUnknownSession = errors.New("unknown session")

// session is a running wizard with its result type erased.
type session interface {
	Status() wizard.Status
	Definition(id wizard.StepID) (wizard.Definition, bool)
	CurrentData() wizard.StepData
	Update(ctx context.Context, p wizard.Patch) error
	Advance(ctx context.Context) error
	Retreat(ctx context.Context) error
	CanEnter(ctx context.Context, id wizard.StepID) (wizard.Decision, error)
	Submit(ctx context.Context) (any, error)
	Result() (any, bool)
	Discard(ctx context.Context) error
	Close()
}

type controllerSession[R any] struct {
	*wizard.Controller[R]
}

func (s controllerSession[R]) Submit(ctx context.Context) (any, error) {
	r, err := s.Controller.Submit(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s controllerSession[R]) Result() (any, bool) {
	r, ok := s.Controller.Result()
	if !ok {
		return nil, false
	}
	return r, true
}

// Sessions keeps the wizard sessions opened through MCP tools, keyed by
// session id. Sessions are checkpointed by their controllers, so a session
// dropped from memory can be resumed with lingoflow_start.
type Sessions struct {
	app *app.Lingoflow

	mu   sync.Mutex
	open map[string]session
}

// NewSessions creates an empty registry over l.
func NewSessions(l *app.Lingoflow) *Sessions {
	return &Sessions{app: l, open: make(map[string]session)}
}

// Start opens a session of the named wizard. A non-empty sessionID returns
// the open session with that id, or resumes its checkpoint. It reports
// whether a checkpoint was restored.
func (s *Sessions) Start(ctx context.Context, wizardName, sessionID string) (session, bool, error) {
	if sessionID != "" {
		s.mu.Lock()
		existing, ok := s.open[sessionID]
		s.mu.Unlock()
		if ok {
			if name := existing.Status().Wizard; name != wizardName {
				return nil, false, fmt.Errorf("session %s belongs to the %s wizard", sessionID, name)
			}
			return existing, false, nil
		}
	}

	so := app.SessionOptions{SessionID: sessionID}
	var (
		sess    session
		resumed bool
		err     error
	)
	switch wizardName {
	case registration.Name:
		var c *registration.Controller
		c, resumed, err = s.app.Registration(ctx, so)
		if err == nil {
			sess = controllerSession[registration.Outcome]{c}
		}
	case recovery.Name:
		var c *recovery.Controller
		c, resumed, err = s.app.Recovery(ctx, so)
		if err == nil {
			sess = controllerSession[recovery.Outcome]{c}
		}
	case checkout.Name:
		var c *checkout.Controller
		c, resumed, err = s.app.Checkout(ctx, so)
		if err == nil {
			sess = controllerSession[checkout.Receipt]{c}
		}
	default:
		return nil, false, fmt.Errorf("unknown wizard %q", wizardName)
	}
	if err != nil {
		return nil, false, err
	}

	id := sess.Status().SessionID
	s.mu.Lock()
	if prev, ok := s.open[id]; ok {
		// Another call opened the same id concurrently; keep the first one.
		s.mu.Unlock()
		sess.Close()
		return prev, false, nil
	}
	s.open[id] = sess
	s.mu.Unlock()

	s.app.Logger().Debug(ctx, "mcp session opened",
		ports.F("wizard", wizardName),
		ports.F("session", id),
		ports.F("resumed", resumed),
	)
	return sess, resumed, nil
}

// Get returns an open session.
func (s *Sessions) Get(sessionID string) (session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.open[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s (call lingoflow_start first)", ErrUnknownSession, sessionID)
	}
	return sess, nil
}

// Release closes and forgets an open session. Its checkpoint is kept.
func (s *Sessions) Release(sessionID string) {
	s.mu.Lock()
	sess, ok := s.open[sessionID]
	delete(s.open, sessionID)
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// Discard forgets a session and deletes its checkpoint.
func (s *Sessions) Discard(ctx context.Context, wizardName, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.open[sessionID]
	delete(s.open, sessionID)
	s.mu.Unlock()

	if ok {
		defer sess.Close()
		return sess.Discard(ctx)
	}
	return s.app.DiscardDraft(ctx, wizardName, sessionID)
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// CloseAll closes every open session.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	open := s.open
	s.open = make(map[string]session)
	s.mu.Unlock()
	for _, sess := range open {
		sess.Close()
	}
}
