package wizard

import (
	"context"
	"sort"
	"sync"
)

const (
	stepProfile StepID = "profile"
	stepCode    StepID = "code"
	stepPay     StepID = "pay"
)

type profileData struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Consent bool   `json:"consent"`
}

func (profileData) Step() StepID { return stepProfile }

func (d profileData) With(p Patch) (StepData, error) {
	err := p.Apply(stepProfile, Fields{
		"name":    &d.Name,
		"email":   &d.Email,
		"consent": &d.Consent,
	})
	return d, err
}

type codeData struct {
	OTP      OTP  `json:"otp"`
	Verified bool `json:"verified"`
}

func (codeData) Step() StepID { return stepCode }

func (d codeData) With(p Patch) (StepData, error) {
	err := p.Apply(stepCode, Fields{
		"otp":      &d.OTP,
		"verified": &d.Verified,
	})
	return d, err
}

type payData struct {
	Card string `json:"card"`
}

func (payData) Step() StepID { return stepPay }

func (d payData) With(p Patch) (StepData, error) {
	err := p.Apply(stepPay, Fields{"card": &d.Card})
	return d, err
}

func validateProfile(d profileData) (any, FieldErrors) {
	c := NewChecker()
	c.Required("name", d.Name, "Name is required")
	c.Email("email", d.Email)
	c.Check("consent", d.Consent, "Consent is required")
	return d, c.Errors()
}

func validateCode(d codeData) (any, FieldErrors) {
	c := NewChecker()
	code := ValidateOTP(c, "otp", d.OTP)
	return code, c.Errors()
}

func validatePay(d payData) (any, FieldErrors) {
	c := NewChecker()
	c.Required("card", d.Card, "Card is required")
	return d, c.Errors()
}

// recordingAction is a terminal action that fails with the queued errors
// before succeeding.
type recordingAction struct {
	mu    sync.Mutex
	fail  []error
	calls []Submission
	block chan struct{}
}

func (a *recordingAction) run(ctx context.Context, sub Submission) (string, error) {
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, sub)
	if len(a.fail) > 0 {
		err := a.fail[0]
		a.fail = a.fail[1:]
		return "", err
	}
	return "done:" + Get[payData](sub.Draft).Card, nil
}

func (a *recordingAction) Calls() []Submission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Submission(nil), a.calls...)
}

func testDefinitions() []Definition {
	return []Definition{
		Step(profileData{}, validateProfile),
		Step(codeData{}, validateCode),
		Step(payData{}, validatePay).
			Guarded(RequireAuthentication("Sign in to pay")).
			AsTerminal(),
	}
}

func newTestController(action *recordingAction, opts ...Option) *Controller[string] {
	c, err := New[string]("test", testDefinitions(), action.run, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func fillProfile(ctx context.Context, c *Controller[string]) {
	if err := c.Update(ctx, Patch{"name": "Jane", "email": "jane@x.com", "consent": true}); err != nil {
		panic(err)
	}
}

func fillCode(ctx context.Context, c *Controller[string]) {
	if err := c.Update(ctx, Patch{"otp": "123456"}); err != nil {
		panic(err)
	}
}

// memoryRepository is an in-memory Repository.
type memoryRepository struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
	saves int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{snaps: map[string]Snapshot{}}
}

func (r *memoryRepository) Save(_ context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[snap.Wizard+"/"+snap.SessionID] = snap
	r.saves++
	return nil
}

func (r *memoryRepository) Load(_ context.Context, wizard, sessionID string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.snaps[wizard+"/"+sessionID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return &snap, nil
}

func (r *memoryRepository) Delete(_ context.Context, wizard, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snaps, wizard+"/"+sessionID)
	return nil
}

func (r *memoryRepository) List(_ context.Context, wizard string) ([]Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Snapshot
	for _, s := range r.snaps {
		if wizard == "" || s.Wizard == wizard {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
