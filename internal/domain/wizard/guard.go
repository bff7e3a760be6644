package wizard

import "context"

// ExternalState is the state outside the wizard that guards depend on.
// It is fetched from a StateSource rather than read from globals.
type ExternalState struct {
	Authenticated bool
	// ConflictingResource is set when the user already owns what the
	// wizard would create, e.g. an active subscription.
	ConflictingResource bool
	ConflictReason      string
}

// StateSource supplies ExternalState on demand.
type StateSource interface {
	ExternalState(ctx context.Context) (ExternalState, error)
}

// StateFunc adapts a function to StateSource.
type StateFunc func(ctx context.Context) (ExternalState, error)

// ExternalState implements StateSource.
func (f StateFunc) ExternalState(ctx context.Context) (ExternalState, error) {
	return f(ctx)
}

// StaticState is a StateSource that always returns the same state.
type StaticState ExternalState

// ExternalState implements StateSource.
func (s StaticState) ExternalState(context.Context) (ExternalState, error) {
	return ExternalState(s), nil
}

// GuardInput is what a guard sees.
type GuardInput struct {
	Step  StepID
	Draft Draft
	State ExternalState
}

// Decision is a guard's verdict. A denied decision may carry a redirect;
// any decision may carry a warning to display next to the step.
type Decision struct {
	Allowed  bool
	Reason   string
	Warning  string
	Redirect Redirect
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with a reason shown to the user.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason, Warning: reason}
}

// GuardFunc decides whether a step may be entered.
type GuardFunc func(in GuardInput) Decision

// RequireAuthentication denies entry for anonymous users and asks for a
// login redirect.
func RequireAuthentication(reason string) GuardFunc {
	return func(in GuardInput) Decision {
		if in.State.Authenticated {
			return Allow()
		}
		return Decision{Allowed: false, Reason: reason, Redirect: RedirectLogin}
	}
}

// BlockOnConflict denies entry while a conflicting resource exists. The
// conflict reason from the external state is preferred over fallback.
func BlockOnConflict(fallback string) GuardFunc {
	return func(in GuardInput) Decision {
		if !in.State.ConflictingResource {
			return Allow()
		}
		return Deny(conflictReason(in.State, fallback))
	}
}

// WarnOnConflict allows entry but attaches a warning while a conflicting
// resource exists, so the user can see why later steps are blocked.
func WarnOnConflict(fallback string) GuardFunc {
	return func(in GuardInput) Decision {
		d := Allow()
		if in.State.ConflictingResource {
			d.Warning = conflictReason(in.State, fallback)
		}
		return d
	}
}

// All combines guards. The first denial wins; warnings of allowing guards
// are kept.
func All(guards ...GuardFunc) GuardFunc {
	return func(in GuardInput) Decision {
		result := Allow()
		for _, g := range guards {
			d := g(in)
			if !d.Allowed {
				return d
			}
			if d.Warning != "" && result.Warning == "" {
				result.Warning = d.Warning
			}
		}
		return result
	}
}

func conflictReason(state ExternalState, fallback string) string {
	if state.ConflictReason != "" {
		return state.ConflictReason
	}
	return fallback
}
