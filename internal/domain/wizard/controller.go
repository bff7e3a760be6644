// Package wizard provides a reusable linear multi-step flow: a draft store
// with per-step merges, per-step validation, entry guards driven by
// injected external state, and a terminal action whose failures never
// lose the draft. Every concrete flow only supplies its step definitions.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Submission is handed to the terminal action.
type Submission struct {
	Draft Draft
	// IdempotencyKey stays the same across retries until the draft changes.
	IdempotencyKey string
	Attempt        int
}

// Action is a wizard's terminal side effect.
type Action[R any] func(ctx context.Context, sub Submission) (R, error)

// RedirectHandler is called after a guard asked for a redirect. The
// snapshot holds the draft so the flow can be resumed afterwards.
type RedirectHandler func(target Redirect, snap Snapshot)

// Option configures a Controller.
type Option func(*options)

type options struct {
	logger     ports.Logger
	state      StateSource
	repo       Repository
	sessionID  string
	onRedirect RedirectHandler
	now        func() time.Time
	newKey     func() string
}

// WithLogger sets the logger used for transitions and outcomes.
func WithLogger(l ports.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStateSource sets where guards get their external state from.
func WithStateSource(s StateSource) Option {
	return func(o *options) { o.state = s }
}

// WithRepository enables checkpointing of the draft after every change.
func WithRepository(r Repository) Option {
	return func(o *options) { o.repo = r }
}

// WithSessionID sets the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// WithRedirectHandler sets the callback for guard redirects.
func WithRedirectHandler(h RedirectHandler) Option {
	return func(o *options) { o.onRedirect = h }
}

// WithKeyGenerator overrides how idempotency keys are generated.
func WithKeyGenerator(gen func() string) Option {
	return func(o *options) { o.newKey = gen }
}

// WithClock overrides the time source used for snapshots.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Status is a point-in-time description of a session.
type Status struct {
	Wizard    string
	SessionID string
	Steps     []StepID
	Index     int
	Step      StepID
	State     string
	Busy      bool
	Completed bool
	Warning   string
	Err       error
	Attempts  int
}

// Controller drives one wizard session. It is safe for concurrent use, but
// only one effect or terminal action runs at a time; overlapping calls get
// ErrBusy.
type Controller[R any] struct {
	mu     sync.Mutex
	name   string
	defs   []Definition
	index  map[StepID]int
	store  *Store
	action Action[R]
	opts   options
	interp *statekit.Interpreter[machineContext]

	sessionID string
	current   int
	busy      bool
	completed bool
	result    R
	lastErr   error
	warning   string
	idemKey   string
	attempts  int
}

// New creates a controller positioned on the first step. The last
// definition must be the only terminal one.
func New[R any](name string, defs []Definition, action Action[R], opts ...Option) (*Controller[R], error) {
	if err := checkDefinitions(defs); err != nil {
		return nil, err
	}
	if action == nil {
		return nil, fmt.Errorf("%w: terminal action is required", ErrInvalidDefinition)
	}

	o := options{
		now:    time.Now,
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionID == "" {
		o.sessionID = uuid.NewString()
	}

	c := &Controller[R]{
		name:      name,
		defs:      append([]Definition(nil), defs...),
		index:     make(map[StepID]int, len(defs)),
		store:     NewStore(defs),
		action:    action,
		opts:      o,
		sessionID: o.sessionID,
	}
	for i, d := range defs {
		c.index[d.ID] = i
	}

	interp, err := buildMachine(name, c.defs, c.entered)
	if err != nil {
		return nil, err
	}
	c.interp = interp
	c.interp.Start()

	return c, nil
}

func checkDefinitions(defs []Definition) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidDefinition)
	}
	seen := make(map[StepID]bool, len(defs))
	for i, d := range defs {
		switch {
		case d.ID == "":
			return fmt.Errorf("%w: step %d has no id", ErrInvalidDefinition, i)
		case reservedState(d.ID):
			return fmt.Errorf("%w: step id %q is reserved", ErrInvalidDefinition, d.ID)
		case seen[d.ID]:
			return fmt.Errorf("%w: duplicate step %q", ErrInvalidDefinition, d.ID)
		case d.Default == nil:
			return fmt.Errorf("%w: step %q has no default", ErrInvalidDefinition, d.ID)
		case d.Default().Step() != d.ID:
			return fmt.Errorf("%w: default of step %q belongs to %q", ErrInvalidDefinition, d.ID, d.Default().Step())
		case d.Terminal != (i == len(defs)-1):
			return fmt.Errorf("%w: exactly the last step must be terminal", ErrInvalidDefinition)
		}
		seen[d.ID] = true
	}
	return nil
}

// Name returns the wizard name.
func (c *Controller[R]) Name() string {
	return c.name
}

// SessionID returns the id under which the draft is checkpointed.
func (c *Controller[R]) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Steps returns the ordered step ids.
func (c *Controller[R]) Steps() []StepID {
	ids := make([]StepID, len(c.defs))
	for i, d := range c.defs {
		ids[i] = d.ID
	}
	return ids
}

// CurrentStep returns the id of the step the user is on.
func (c *Controller[R]) CurrentStep() StepID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defs[c.current].ID
}

// Index returns the 0-based position of the current step.
func (c *Controller[R]) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// IsTerminal reports whether the current step triggers the final action.
func (c *Controller[R]) IsTerminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defs[c.current].Terminal
}

// State returns the state machine's current state: a step id, or one of
// the phases submitting and succeeded.
func (c *Controller[R]) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.interp.State().Value)
}

// Status returns a snapshot of the session.
func (c *Controller[R]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Wizard:    c.name,
		SessionID: c.sessionID,
		Steps:     c.Steps(),
		Index:     c.current,
		Step:      c.defs[c.current].ID,
		State:     string(c.interp.State().Value),
		Busy:      c.busy,
		Completed: c.completed,
		Warning:   c.warning,
		Err:       c.lastErr,
		Attempts:  c.attempts,
	}
}

// Definition returns the definition of a step.
func (c *Controller[R]) Definition(id StepID) (Definition, bool) {
	i, ok := c.index[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Data returns the stored data of any step.
func (c *Controller[R]) Data(id StepID) (StepData, error) {
	return c.store.Get(id)
}

// CurrentData returns the stored data of the current step.
func (c *Controller[R]) CurrentData() StepData {
	data, _ := c.store.Get(c.CurrentStep())
	return data
}

// Draft returns a view of every step's data.
func (c *Controller[R]) Draft() Draft {
	return c.store.Draft()
}

// Result returns the terminal result once the wizard succeeded.
func (c *Controller[R]) Result() (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.completed
}

// Err returns the error of the last operation, if it failed.
func (c *Controller[R]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Update merges a patch into the current step.
func (c *Controller[R]) Update(ctx context.Context, p Patch) error {
	return c.UpdateStep(ctx, c.CurrentStep(), p)
}

// UpdateStep merges a patch into the given step. Other steps are never
// touched. Field errors of the edited fields are cleared.
func (c *Controller[R]) UpdateStep(ctx context.Context, id StepID, p Patch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIdle(); err != nil {
		return err
	}
	if err := c.store.Merge(id, p); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}

	// The draft changed, so a later submit is a new logical submission.
	c.idemKey = ""
	c.clearFieldErrors(id, p)
	c.checkpoint(ctx)
	return nil
}

func (c *Controller[R]) clearFieldErrors(id StepID, p Patch) {
	var verr *ValidationError
	if !errors.As(c.lastErr, &verr) || verr.Step != id {
		return
	}
	remaining := FieldErrors{}
	for field, msg := range verr.Fields {
		if _, edited := p[field]; !edited {
			remaining[field] = msg
		}
	}
	if len(remaining) == 0 {
		c.lastErr = nil
		return
	}
	c.lastErr = &ValidationError{Step: id, Fields: remaining}
}

// CanEnter evaluates the guard of a step against fresh external state.
func (c *Controller[R]) CanEnter(ctx context.Context, id StepID) (Decision, error) {
	i, ok := c.index[id]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	return c.evaluate(ctx, c.defs[i])
}

// Advance validates the current step, checks the next step's guard, runs
// the current step's effect and moves forward. On any failure the session
// stays where it is with its draft intact.
func (c *Controller[R]) Advance(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkIdle(); err != nil {
		c.mu.Unlock()
		return err
	}
	from := c.defs[c.current]
	if from.Terminal {
		c.mu.Unlock()
		return ErrTerminalStep
	}
	if err := c.validateLocked(ctx, from); err != nil {
		c.mu.Unlock()
		return err
	}
	to := c.defs[c.current+1]
	c.busy = true
	c.mu.Unlock()

	decision, err := c.evaluate(ctx, to)
	var patch Patch
	if err == nil && decision.Allowed && from.Effect != nil {
		patch, err = from.Effect(ctx, c.store.Draft())
		if err != nil {
			err = Classify(err)
			c.warn(ctx, "step effect failed", ports.F("step", from.ID), ports.F("error", err))
		}
	}

	c.mu.Lock()
	c.busy = false
	if err == nil && !decision.Allowed {
		err = c.rejection(ctx, to.ID, decision)
	}
	if err == nil && len(patch) > 0 {
		err = c.store.Merge(from.ID, patch)
	}
	if err == nil {
		err = c.send(EventNext, string(to.ID))
	}
	if err != nil {
		notify := c.failLocked(ctx, err)
		c.mu.Unlock()
		notify()
		return err
	}

	c.current++
	c.lastErr = nil
	c.warning = decision.Warning
	c.checkpoint(ctx)
	c.mu.Unlock()

	c.debug(ctx, "advanced", ports.F("from", from.ID), ports.F("to", to.ID))
	return nil
}

// Retreat moves one step back without validation. The draft is unchanged.
func (c *Controller[R]) Retreat(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIdle(); err != nil {
		return err
	}
	if c.current == 0 {
		return ErrNoPreviousStep
	}
	to := c.defs[c.current-1]
	if err := c.send(EventBack, string(to.ID)); err != nil {
		return err
	}
	c.current--
	c.lastErr = nil
	c.warning = ""
	c.checkpoint(ctx)
	return nil
}

// Submit validates the terminal step and runs the terminal action with the
// whole draft. Domain and transport failures return the session to the
// terminal step with its draft intact; submitting again retries with the
// same idempotency key unless the draft changed in between.
func (c *Controller[R]) Submit(ctx context.Context) (R, error) {
	var zero R

	c.mu.Lock()
	if err := c.checkIdle(); err != nil {
		c.mu.Unlock()
		return zero, err
	}
	step := c.defs[c.current]
	if !step.Terminal {
		c.mu.Unlock()
		return zero, ErrNotTerminal
	}
	if err := c.validateLocked(ctx, step); err != nil {
		c.mu.Unlock()
		return zero, err
	}
	c.busy = true
	c.mu.Unlock()

	decision, err := c.evaluate(ctx, step)

	c.mu.Lock()
	if err == nil && !decision.Allowed {
		err = c.rejection(ctx, step.ID, decision)
	}
	if err == nil {
		err = c.send(EventSubmit, string(PhaseSubmitting))
	}
	if err != nil {
		c.busy = false
		notify := c.failLocked(ctx, err)
		c.mu.Unlock()
		notify()
		return zero, err
	}
	if c.idemKey == "" {
		c.idemKey = c.opts.newKey()
	}
	c.attempts++
	sub := Submission{Draft: c.store.Draft(), IdempotencyKey: c.idemKey, Attempt: c.attempts}
	c.mu.Unlock()

	c.debug(ctx, "submitting", ports.F("step", step.ID), ports.F("attempt", sub.Attempt))
	result, err := c.action(ctx, sub)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		classified := Classify(err)
		_ = c.send(EventFailed, string(PhaseFailed))
		_ = c.send(EventResume, string(step.ID))
		notify := c.failLocked(ctx, classified)
		c.mu.Unlock()
		notify()
		c.warn(ctx, "terminal action failed", ports.F("wizard", c.name), ports.F("attempt", sub.Attempt), ports.F("error", classified))
		return zero, classified
	}

	if err := c.send(EventSucceeded, string(PhaseSucceeded)); err != nil {
		c.mu.Unlock()
		return zero, err
	}
	c.completed = true
	c.result = result
	c.lastErr = nil
	c.warning = ""
	c.idemKey = ""
	c.deleteCheckpoint(ctx)
	session := c.sessionID
	c.mu.Unlock()

	c.info(ctx, "wizard completed", ports.F("wizard", c.name), ports.F("session", session), ports.F("attempts", sub.Attempt))
	return result, nil
}

// Restore loads a snapshot into the session and moves to its step, or to
// the first earlier step that no longer validates.
func (c *Controller[R]) Restore(ctx context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIdle(); err != nil {
		return err
	}
	if snap.Wizard != c.name {
		return fmt.Errorf("snapshot belongs to wizard %q, not %q", snap.Wizard, c.name)
	}
	if snap.Current < 0 || snap.Current >= len(c.defs) {
		return fmt.Errorf("snapshot position %d out of range", snap.Current)
	}
	steps, err := decodeDraft(c.defs, snap.Steps)
	if err != nil {
		return err
	}
	for id, data := range steps {
		c.store.replace(id, data)
	}

	// Secrets are not checkpointed, so a visited step may no longer be
	// valid. The session resumes on the first such step.
	target := snap.Current
	var stale *ValidationError
	for i := 0; i < target; i++ {
		def := c.defs[i]
		data, err := c.store.Get(def.ID)
		if err != nil {
			return err
		}
		if _, fieldErrs := def.validate(data); fieldErrs != nil {
			stale = &ValidationError{Step: def.ID, Fields: fieldErrs}
			target = i
		}
	}

	for c.current < target {
		if err := c.send(EventNext, string(c.defs[c.current+1].ID)); err != nil {
			return err
		}
		c.current++
	}
	for c.current > target {
		if err := c.send(EventBack, string(c.defs[c.current-1].ID)); err != nil {
			return err
		}
		c.current--
	}
	if snap.SessionID != "" {
		c.sessionID = snap.SessionID
	}
	c.lastErr = nil
	if stale != nil {
		c.lastErr = stale
		c.info(ctx, "restored draft needs re-entry", ports.F("wizard", c.name), ports.F("session", c.sessionID),
			ports.F("step", stale.Step), ports.F("checkpoint_step", c.defs[snap.Current].ID))
		return nil
	}
	c.debug(ctx, "restored draft", ports.F("wizard", c.name), ports.F("session", c.sessionID), ports.F("step", c.defs[c.current].ID))
	return nil
}

// Resume restores the checkpoint of this session id, if any. It reports
// whether a checkpoint was found.
func (c *Controller[R]) Resume(ctx context.Context) (bool, error) {
	if c.opts.repo == nil {
		return false, nil
	}
	snap, err := c.opts.repo.Load(ctx, c.name, c.SessionID())
	if errors.Is(err, ErrSnapshotNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load draft: %w", err)
	}
	if err := c.Restore(ctx, *snap); err != nil {
		return false, err
	}
	return true, nil
}

// Snapshot returns a checkpoint of the session.
func (c *Controller[R]) Snapshot() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Discard deletes the session's checkpoint.
func (c *Controller[R]) Discard(ctx context.Context) error {
	if c.opts.repo == nil {
		return nil
	}
	err := c.opts.repo.Delete(ctx, c.name, c.SessionID())
	if err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		return err
	}
	return nil
}

// Close stops the state machine.
func (c *Controller[R]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interp.Stop()
}

func (c *Controller[R]) checkIdle() error {
	if c.completed {
		return ErrCompleted
	}
	if c.busy {
		return ErrBusy
	}
	return nil
}

func (c *Controller[R]) validateLocked(ctx context.Context, def Definition) error {
	data, err := c.store.Get(def.ID)
	if err != nil {
		return err
	}
	if _, fieldErrs := def.validate(data); fieldErrs != nil {
		err := &ValidationError{Step: def.ID, Fields: fieldErrs}
		c.lastErr = err
		c.debug(ctx, "step invalid", ports.F("step", def.ID), ports.F("fields", len(fieldErrs)))
		return err
	}
	return nil
}

func (c *Controller[R]) evaluate(ctx context.Context, def Definition) (Decision, error) {
	if def.Guard == nil {
		return Allow(), nil
	}
	var state ExternalState
	if c.opts.state != nil {
		s, err := c.opts.state.ExternalState(ctx)
		if err != nil {
			return Decision{}, Classify(err)
		}
		state = s
	}
	return def.Guard(GuardInput{Step: def.ID, Draft: c.store.Draft(), State: state}), nil
}

func (c *Controller[R]) rejection(ctx context.Context, id StepID, d Decision) error {
	c.warn(ctx, "step entry rejected", ports.F("step", id), ports.F("reason", d.Reason), ports.F("redirect", d.Redirect))
	c.warning = d.Warning
	return &GuardRejection{Step: id, Reason: d.Reason, Redirect: d.Redirect}
}

// failLocked records err and, for redirects, checkpoints the draft. The
// returned func notifies the redirect handler and must run unlocked.
func (c *Controller[R]) failLocked(ctx context.Context, err error) func() {
	c.lastErr = err

	c.checkpoint(ctx)

	var gerr *GuardRejection
	if !errors.As(err, &gerr) || gerr.Redirect == RedirectNone {
		return func() {}
	}
	snap, snapErr := c.snapshotLocked()
	handler := c.opts.onRedirect
	if handler == nil || snapErr != nil {
		return func() {}
	}
	return func() { handler(gerr.Redirect, snap) }
}

func (c *Controller[R]) send(event, want string) error {
	c.interp.Send(statekit.Event{Type: statekit.EventType(event)})
	if got := string(c.interp.State().Value); got != want {
		return fmt.Errorf("illegal transition %s: machine is in %q, expected %q", event, got, want)
	}
	return nil
}

func (c *Controller[R]) entered(event string) {
	c.debug(context.Background(), "state entered", ports.F("wizard", c.name), ports.F("event", event))
}

func (c *Controller[R]) snapshotLocked() (Snapshot, error) {
	steps, err := encodeDraft(c.defs, c.store.Draft())
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Wizard:    c.name,
		SessionID: c.sessionID,
		Current:   c.current,
		Steps:     steps,
		UpdatedAt: c.opts.now().UTC(),
	}, nil
}

func (c *Controller[R]) checkpoint(ctx context.Context) {
	if c.opts.repo == nil {
		return
	}
	snap, err := c.snapshotLocked()
	if err == nil {
		err = c.opts.repo.Save(ctx, snap)
	}
	if err != nil {
		c.warn(ctx, "failed to checkpoint draft", ports.F("wizard", c.name), ports.F("error", err))
	}
}

func (c *Controller[R]) deleteCheckpoint(ctx context.Context) {
	if c.opts.repo == nil {
		return
	}
	if err := c.opts.repo.Delete(ctx, c.name, c.sessionID); err != nil && !errors.Is(err, ErrSnapshotNotFound) {
		c.warn(ctx, "failed to delete draft checkpoint", ports.F("wizard", c.name), ports.F("error", err))
	}
}

func (c *Controller[R]) logger(ctx context.Context) ports.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return ports.LoggerFromContext(ctx)
}

func (c *Controller[R]) debug(ctx context.Context, msg string, fields ...ports.Field) {
	if l := c.logger(ctx); l != nil {
		l.Debug(ctx, msg, fields...)
	}
}

func (c *Controller[R]) info(ctx context.Context, msg string, fields ...ports.Field) {
	if l := c.logger(ctx); l != nil {
		l.Info(ctx, msg, fields...)
	}
}

func (c *Controller[R]) warn(ctx context.Context, msg string, fields ...ports.Field) {
	if l := c.logger(ctx); l != nil {
		l.Warn(ctx, msg, fields...)
	}
}
