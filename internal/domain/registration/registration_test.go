package registration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lingoflow/internal/adapters/draftstore"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
	"github.com/felixgeelhaar/lingoflow/internal/testutil/mocks"
)

func validAccount() wizard.Patch {
	return wizard.Patch{
		"firstName":       "Ana",
		"lastName":        "Silva",
		"email":           "ana@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	}
}

func newSession(t *testing.T, auth ports.AuthService) *Controller {
	t.Helper()
	c, err := New(auth)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func toVerify(ctx context.Context, t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.Update(ctx, wizard.Patch{"selectedLanguage": "Spanish"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, validAccount()))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"proficiency": "beginner"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"dailyGoalMinutes": float64(15)}))
	require.NoError(t, c.Advance(ctx))
	require.Equal(t, StepVerify, c.CurrentStep())
}

func TestRegistration_AccountStepAdvancesToLevel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newSession(t, mocks.NewAuthService())
	require.NoError(t, c.Update(ctx, wizard.Patch{"selectedLanguage": "Spanish"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, validAccount()))

	require.NoError(t, c.Advance(ctx))

	assert.Equal(t, 2, c.Index())
	assert.Equal(t, StepLevel, c.CurrentStep())
}

func TestRegistration_PasswordMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newSession(t, mocks.NewAuthService())
	require.NoError(t, c.Update(ctx, wizard.Patch{"selectedLanguage": "Spanish"}))
	require.NoError(t, c.Advance(ctx))
	patch := validAccount()
	patch["confirmPassword"] = "secret2"
	require.NoError(t, c.Update(ctx, patch))

	err := c.Advance(ctx)

	var verr *wizard.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, wizard.FieldErrors{"confirmPassword": "Passwords do not match"}, verr.Fields)
	assert.Equal(t, 1, c.Index())
}

func TestValidateAccount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   AccountData
		fields []string
	}{
		{
			name: "valid",
			data: AccountData{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "123456", ConfirmPassword: "123456"},
		},
		{
			name:   "everything missing",
			data:   AccountData{},
			fields: []string{"firstName", "lastName", "email", "password", "confirmPassword"},
		},
		{
			name:   "short password",
			data:   AccountData{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "12345", ConfirmPassword: "12345"},
			fields: []string{"password"},
		},
		{
			name:   "bad email",
			data:   AccountData{FirstName: "A", LastName: "B", Email: "a@b", Password: "123456", ConfirmPassword: "123456"},
			fields: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, errs := validateAccount(tt.data)
			got := make([]string, 0, len(errs))
			for f := range errs {
				got = append(got, f)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestValidateLevel(t *testing.T) {
	t.Parallel()

	_, errs := validateLevel(LevelData{Proficiency: "expert"})
	assert.Equal(t, "Choose your current level", errs["proficiency"])

	_, errs = validateLevel(LevelData{Proficiency: "advanced"})
	assert.Nil(t, errs)
}

func TestValidateGoal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minutes int
		valid   bool
	}{
		{minutes: 5, valid: true},
		{minutes: 30, valid: true},
		{minutes: 0},
		{minutes: 7},
	}

	for _, tt := range tests {
		_, errs := validateGoal(GoalData{DailyGoalMinutes: tt.minutes})
		if tt.valid {
			assert.Nil(t, errs, "%d minutes", tt.minutes)
		} else {
			assert.Equal(t, "Choose a daily goal", errs["dailyGoalMinutes"], "%d minutes", tt.minutes)
		}
	}
}

func TestRegistration_GoalEffectRegisters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c := newSession(t, auth)
	toVerify(ctx, t, c)

	calls := auth.CallsTo("Register")
	require.Len(t, calls, 1)
	req := calls[0].Args[0].(ports.RegistrationRequest)
	assert.Equal(t, "Spanish", req.SelectedLanguage)
	assert.Equal(t, "ana@example.com", req.Email)
	assert.Equal(t, "beginner", req.Proficiency)
	assert.Equal(t, 15, req.DailyGoalMinutes)
}

func TestRegistration_RegisterRejectedStaysOnGoal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	auth.FailNext("Register", &ports.RemoteError{StatusCode: 409, Message: "Email already registered"})
	c := newSession(t, auth)
	require.NoError(t, c.Update(ctx, wizard.Patch{"selectedLanguage": "fr"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, validAccount()))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"proficiency": "advanced"}))
	require.NoError(t, c.Advance(ctx))
	assert.Empty(t, auth.CallsTo("Register"))
	require.NoError(t, c.Update(ctx, wizard.Patch{"dailyGoalMinutes": 30}))

	err := c.Advance(ctx)

	var derr *wizard.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Email already registered", derr.Message)
	assert.Equal(t, StepGoal, c.CurrentStep())
	assert.Equal(t, "French", Request(c.Draft()).SelectedLanguage)
}

func TestRegistration_VerifyOTP(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c := newSession(t, auth)
	toVerify(ctx, t, c)
	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": []any{"1", "2", "3", "4", "5", "6"}}))

	outcome, err := c.Submit(ctx)

	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", outcome.Email)
	assert.Equal(t, "Account verified", outcome.Message)

	calls := auth.CallsTo("VerifyOTP")
	require.Len(t, calls, 1)
	req := calls[0].Args[0].(ports.VerifyOTPRequest)
	assert.Equal(t, "123456", req.OTPCode)
	assert.Equal(t, "Silva", req.Data.LastName)
}

func TestRegistration_IncompleteOTPIsInvalid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c := newSession(t, auth)
	toVerify(ctx, t, c)
	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": []string{"1", "2", "", "4", "5", "6"}}))

	_, err := c.Submit(ctx)

	var verr *wizard.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "otp")
	assert.Empty(t, auth.CallsTo("VerifyOTP"))
}

func TestRegistration_OverlongOTPIsRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c := newSession(t, auth)
	toVerify(ctx, t, c)

	err := c.Update(ctx, wizard.Patch{"otp": "1234567"})

	var verr *wizard.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "otp")
	assert.Empty(t, wizard.Get[VerifyData](c.Draft()).OTP.Code())

	_, err = c.Submit(ctx)
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, auth.CallsTo("VerifyOTP"))
}

func TestRegistration_WrongOTPIsDomainError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c := newSession(t, auth)
	toVerify(ctx, t, c)
	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": "654321"}))

	_, err := c.Submit(ctx)

	var derr *wizard.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "The code is incorrect", wizard.UserMessage(err))
	assert.Equal(t, StepVerify, c.CurrentStep())
	assert.Equal(t, "654321", wizard.Get[VerifyData](c.Draft()).OTP.Code())
}

func TestRegistration_ResumePastAccountAsksForPasswordAgain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := draftstore.NewYAMLRepository(t.TempDir())
	auth := mocks.NewAuthService()

	first, err := New(auth, wizard.WithRepository(repo), wizard.WithSessionID("reg-1"))
	require.NoError(t, err)
	t.Cleanup(first.Close)
	require.NoError(t, first.Update(ctx, wizard.Patch{"selectedLanguage": "Spanish"}))
	require.NoError(t, first.Advance(ctx))
	require.NoError(t, first.Update(ctx, validAccount()))
	require.NoError(t, first.Advance(ctx))
	require.NoError(t, first.Update(ctx, wizard.Patch{"proficiency": "beginner"}))
	require.NoError(t, first.Advance(ctx))
	require.NoError(t, first.Update(ctx, wizard.Patch{"dailyGoalMinutes": float64(15)}))
	require.Equal(t, StepGoal, first.CurrentStep())

	second, err := New(auth, wizard.WithRepository(repo), wizard.WithSessionID("reg-1"))
	require.NoError(t, err)
	t.Cleanup(second.Close)
	found, err := second.Resume(ctx)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, StepAccount, second.CurrentStep())
	assert.Equal(t, "ana@example.com", wizard.Get[AccountData](second.Draft()).Email)
	assert.Equal(t, "beginner", wizard.Get[LevelData](second.Draft()).Proficiency)
	assert.Equal(t, 15, wizard.Get[GoalData](second.Draft()).DailyGoalMinutes)
	var verr *wizard.ValidationError
	require.ErrorAs(t, second.Err(), &verr)
	assert.Contains(t, verr.Fields, "password")

	require.NoError(t, second.Update(ctx, wizard.Patch{"password": "secret1", "confirmPassword": "secret1"}))
	for range 3 {
		require.NoError(t, second.Advance(ctx))
	}
	require.Equal(t, StepVerify, second.CurrentStep())

	calls := auth.CallsTo("Register")
	require.Len(t, calls, 1)
	req := calls[0].Args[0].(ports.RegistrationRequest)
	assert.Equal(t, "secret1", req.Password)
	assert.Equal(t, "secret1", req.ConfirmPassword)
}

func TestRegistration_ResumeAtVerifyNeverSendsEmptyPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := draftstore.NewYAMLRepository(t.TempDir())
	auth := mocks.NewAuthService()

	first, err := New(auth, wizard.WithRepository(repo), wizard.WithSessionID("reg-2"))
	require.NoError(t, err)
	t.Cleanup(first.Close)
	toVerify(ctx, t, first)

	second, err := New(auth, wizard.WithRepository(repo), wizard.WithSessionID("reg-2"))
	require.NoError(t, err)
	t.Cleanup(second.Close)
	_, err = second.Resume(ctx)
	require.NoError(t, err)

	assert.Equal(t, StepAccount, second.CurrentStep())
	require.Error(t, ResendCode(ctx, second, auth))
	assert.Len(t, auth.CallsTo("Register"), 1)
}

func TestResendCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	auth := mocks.NewAuthService()
	c := newSession(t, auth)

	require.Error(t, ResendCode(ctx, c, auth))

	toVerify(ctx, t, c)
	require.NoError(t, ResendCode(ctx, c, auth))
	assert.Len(t, auth.CallsTo("Register"), 2)

	auth.FailNext("Register", errors.New("timeout"))
	var terr *wizard.TransportError
	assert.ErrorAs(t, ResendCode(ctx, c, auth), &terr)
}

func TestResolveLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "Spanish", want: "Spanish", ok: true},
		{input: "  japanese ", want: "Japanese", ok: true},
		{input: "es-MX", want: "Spanish", ok: true},
		{input: "pt-BR", want: "Portuguese", ok: true},
		{input: "de", want: "German", ok: true},
		{input: "Klingon"},
		{input: "nl"},
		{input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, ok := ResolveLanguage(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}
