package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuards(t *testing.T) {
	t.Parallel()

	anonymous := ExternalState{}
	member := ExternalState{Authenticated: true}
	subscribed := ExternalState{Authenticated: true, ConflictingResource: true, ConflictReason: "Already subscribed"}

	tests := []struct {
		name  string
		guard GuardFunc
		state ExternalState
		want  Decision
	}{
		{
			name:  "auth allows members",
			guard: RequireAuthentication("Sign in"),
			state: member,
			want:  Allow(),
		},
		{
			name:  "auth redirects anonymous",
			guard: RequireAuthentication("Sign in"),
			state: anonymous,
			want:  Decision{Reason: "Sign in", Redirect: RedirectLogin},
		},
		{
			name:  "block prefers external reason",
			guard: BlockOnConflict("fallback"),
			state: subscribed,
			want:  Decision{Reason: "Already subscribed", Warning: "Already subscribed"},
		},
		{
			name:  "block falls back",
			guard: BlockOnConflict("fallback"),
			state: ExternalState{ConflictingResource: true},
			want:  Decision{Reason: "fallback", Warning: "fallback"},
		},
		{
			name:  "warn allows with warning",
			guard: WarnOnConflict("fallback"),
			state: subscribed,
			want:  Decision{Allowed: true, Warning: "Already subscribed"},
		},
		{
			name:  "all keeps first denial",
			guard: All(WarnOnConflict("w"), RequireAuthentication("Sign in"), BlockOnConflict("b")),
			state: ExternalState{ConflictingResource: true},
			want:  Decision{Reason: "Sign in", Redirect: RedirectLogin},
		},
		{
			name:  "all keeps warning when allowed",
			guard: All(RequireAuthentication("Sign in"), WarnOnConflict("w")),
			state: subscribed,
			want:  Decision{Allowed: true, Warning: "Already subscribed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.guard(GuardInput{Step: "s", State: tt.state})
			assert.Equal(t, tt.want, got)
		})
	}
}
