package recovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
	"github.com/felixgeelhaar/lingoflow/internal/testutil/mocks"
)

func TestRecovery_FullFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c, err := New(auth)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Update(ctx, wizard.Patch{"email": "ana@example.com"}))
	require.NoError(t, c.Advance(ctx))
	require.Len(t, auth.CallsTo("ForgotPassword"), 1)

	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": "123456"}))
	require.NoError(t, c.Advance(ctx))
	assert.True(t, wizard.Get[OTPData](c.Draft()).Verified)

	require.NoError(t, c.Update(ctx, wizard.Patch{"newPassword": "hunter22", "confirmPassword": "hunter22"}))
	outcome, err := c.Submit(ctx)

	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", outcome.Email)
	calls := auth.CallsTo("ResetPassword")
	require.Len(t, calls, 1)
	assert.Equal(t, ports.ResetPasswordRequest{
		Email:           "ana@example.com",
		NewPassword:     "hunter22",
		ConfirmPassword: "hunter22",
	}, calls[0].Args[0])
}

func TestRecovery_WrongCodeStaysOnOTP(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c, err := New(auth)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Update(ctx, wizard.Patch{"email": "ana@example.com"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": "000000"}))

	err = c.Advance(ctx)

	var derr *wizard.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Invalid or expired code", derr.Message)
	assert.Equal(t, StepOTP, c.CurrentStep())
	assert.False(t, wizard.Get[OTPData](c.Draft()).Verified)
}

func TestRecovery_InvalidEmailDoesNotSendCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c, err := New(auth)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Update(ctx, wizard.Patch{"email": "ana"}))
	err = c.Advance(ctx)

	var verr *wizard.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, auth.CallsTo("ForgotPassword"))
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data PasswordData
		want wizard.FieldErrors
	}{
		{name: "valid", data: PasswordData{NewPassword: "abcdef", ConfirmPassword: "abcdef"}},
		{
			name: "short",
			data: PasswordData{NewPassword: "abc", ConfirmPassword: "abc"},
			want: wizard.FieldErrors{"newPassword": "Password must be at least 6 characters"},
		},
		{
			name: "mismatch",
			data: PasswordData{NewPassword: "abcdef", ConfirmPassword: "abcdeg"},
			want: wizard.FieldErrors{"confirmPassword": "Passwords do not match"},
		},
		{
			name: "empty",
			data: PasswordData{},
			want: wizard.FieldErrors{"newPassword": "Password is required", "confirmPassword": "Confirm your password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, got := validatePassword(tt.data)
			assert.Equal(t, tt.want, got)
		})
	}
}
