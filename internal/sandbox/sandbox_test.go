package sandbox_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/lingoflow/internal/adapters/api"
	"github.com/felixgeelhaar/lingoflow/internal/adapters/logging"
	"github.com/felixgeelhaar/lingoflow/internal/adapters/payment"
	"github.com/felixgeelhaar/lingoflow/internal/domain/checkout"
	"github.com/felixgeelhaar/lingoflow/internal/domain/recovery"
	"github.com/felixgeelhaar/lingoflow/internal/domain/registration"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
	"github.com/felixgeelhaar/lingoflow/internal/sandbox"
	"github.com/felixgeelhaar/lingoflow/internal/testutil/mocks"
)

const code = "424242"

type env struct {
	server  *sandbox.Server
	url     string
	tokens  *ports.TokenStore
	auth    *api.AuthService
	plans   *api.PlanService
	profile *api.ProfileService
	gateway *payment.Gateway
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := sandbox.New(
		sandbox.WithOTPGenerator(func() string { return code }),
		sandbox.WithHashCost(bcrypt.MinCost),
	)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	tokens := ports.NewTokenStore(mocks.NewKeyValueStore())
	client, err := api.New(srv.URL, tokens)
	require.NoError(t, err)
	gateway, err := payment.NewGateway(srv.URL, "pk_sandbox")
	require.NoError(t, err)

	return &env{
		server:  s,
		url:     srv.URL,
		tokens:  tokens,
		auth:    api.NewAuthService(client),
		plans:   api.NewPlanService(client),
		profile: api.NewProfileService(client),
		gateway: gateway,
	}
}

func (e *env) signIn(t *testing.T, email, password string) {
	t.Helper()
	token, err := e.auth.Login(context.Background(), email, password)
	require.NoError(t, err)
	require.NoError(t, e.tokens.SetToken(token.Value))
}

func TestSandbox_Health(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	resp, err := http.Get(e.url + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sandbox.APIVersion, resp.Header.Get(api.HeaderAPIVersion))
}

func TestSandbox_RegistrationWizard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	c, err := registration.New(e.auth)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	require.NoError(t, c.Update(ctx, wizard.Patch{"selectedLanguage": "es"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{
		"firstName":       "Ana",
		"lastName":        "Silva",
		"email":           "ana@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"proficiency": "beginner"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"dailyGoalMinutes": 10}))
	require.NoError(t, c.Advance(ctx))
	require.Equal(t, registration.StepVerify, c.CurrentStep())

	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": "000000"}))
	_, err = c.Submit(ctx)
	var derr *wizard.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "The code is incorrect", derr.Message)

	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": code}))
	outcome, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", outcome.Email)

	e.signIn(t, "ana@example.com", "secret1")
	u, err := e.auth.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.FirstName)
	assert.Equal(t, "Spanish", u.Language)
	assert.Equal(t, "beginner", u.Level)
}

func TestSandbox_RegistrationDuplicateEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.server.AddUser(ports.User{Email: "ana@example.com", FirstName: "Ana"}, "secret1"))

	err := e.auth.Register(ctx, ports.RegistrationRequest{
		FirstName: "Ana", LastName: "Silva", Email: "ana@example.com",
		Password: "secret1", ConfirmPassword: "secret1",
	})

	var remote *ports.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusConflict, remote.StatusCode)
	assert.Equal(t, "An account with this email already exists", wizard.UserMessage(wizard.Classify(err)))
}

func TestSandbox_RecoveryWizard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.server.AddUser(ports.User{Email: "ana@example.com", FirstName: "Ana"}, "oldpass"))

	c, err := recovery.New(e.auth)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	require.NoError(t, c.Update(ctx, wizard.Patch{"email": "ana@example.com"}))
	require.NoError(t, c.Advance(ctx))

	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": "111111"}))
	err = c.Advance(ctx)
	var derr *wizard.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Invalid or expired code", derr.Message)
	assert.Equal(t, recovery.StepOTP, c.CurrentStep())

	require.NoError(t, c.Update(ctx, wizard.Patch{"otp": code}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"newPassword": "newpass1", "confirmPassword": "newpass1"}))
	_, err = c.Submit(ctx)
	require.NoError(t, err)

	_, err = e.auth.Login(ctx, "ana@example.com", "oldpass")
	assert.ErrorIs(t, err, ports.ErrUnauthorized)
	e.signIn(t, "ana@example.com", "newpass1")
}

func checkoutSession(t *testing.T, e *env) *checkout.Controller {
	t.Helper()
	catalog, err := checkout.LoadCatalog(context.Background(), e.plans)
	require.NoError(t, err)
	c, err := checkout.New(catalog, e.plans, e.gateway,
		wizard.WithStateSource(checkout.SubscriptionState(e.tokens, e.plans)))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func toBilling(ctx context.Context, t *testing.T, c *checkout.Controller) {
	t.Helper()
	require.NoError(t, c.Update(ctx, wizard.Patch{"planId": "yearly"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"acceptTerms": true}))
	require.NoError(t, c.Advance(ctx))
	require.Equal(t, checkout.StepBilling, c.CurrentStep())
}

func billing(postal string) wizard.Patch {
	return wizard.Patch{
		"name":       "Ana Silva",
		"email":      "ana@example.com",
		"line1":      "Rua Augusta 1",
		"city":       "Lisboa",
		"postalCode": postal,
		"country":    "PT",
	}
}

func TestSandbox_CheckoutWizard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.server.AddUser(ports.User{Email: "ana@example.com", FirstName: "Ana"}, "secret1"))
	e.signIn(t, "ana@example.com", "secret1")

	c := checkoutSession(t, e)
	toBilling(ctx, t, c)
	require.NoError(t, c.Update(ctx, billing(sandbox.PostalDecline)))

	_, err := c.Submit(ctx)
	var derr *wizard.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Your card was declined", derr.Message)
	assert.Equal(t, checkout.StepBilling, c.CurrentStep())

	require.NoError(t, c.Update(ctx, billing("1100-048")))
	receipt, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "yearly", receipt.PlanID)
	assert.Equal(t, ports.PaymentSucceeded, receipt.Status)
	assert.Equal(t, int64(8999), receipt.AmountCents)

	sub, err := e.plans.MySubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, receipt.SubscriptionID, sub.ID)
	assert.True(t, sub.IsActive())

	again := checkoutSession(t, e)
	decision, err := again.CanEnter(ctx, checkout.StepConfirm)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestSandbox_CheckoutRequiresSignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	c := checkoutSession(t, e)
	require.NoError(t, c.Update(ctx, wizard.Patch{"planId": "monthly"}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, wizard.Patch{"acceptTerms": true}))

	err := c.Advance(ctx)

	var gerr *wizard.GuardRejection
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, wizard.RedirectLogin, gerr.Redirect)
}

func TestSandbox_IdempotentCreateSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.server.AddUser(ports.User{Email: "ana@example.com"}, "secret1"))
	e.signIn(t, "ana@example.com", "secret1")

	req := ports.CreateSubscriptionRequest{PlanID: "monthly", IdempotencyKey: "key-1"}
	first, err := e.plans.CreateSubscription(ctx, req)
	require.NoError(t, err)
	second, err := e.plans.CreateSubscription(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSandbox_ProfileAndPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.server.AddUser(ports.User{Email: "ana@example.com", FirstName: "Ana", LastName: "Silva"}, "secret1"))
	e.signIn(t, "ana@example.com", "secret1")

	u, err := e.profile.UpdateProfile(ctx, ports.ProfileUpdate{FirstName: "Bea", AvatarName: "me.png", Avatar: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "Bea", u.FirstName)
	assert.Equal(t, "Silva", u.LastName)
	assert.Contains(t, u.AvatarURL, "me.png")

	err = e.auth.ChangePassword(ctx, ports.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "n3wpass", ConfirmPassword: "n3wpass"})
	var remote *ports.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "Current password is incorrect", remote.Message)

	require.NoError(t, e.auth.ChangePassword(ctx, ports.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "n3wpass", ConfirmPassword: "n3wpass"}))
	_, err = e.auth.Login(ctx, "ana@example.com", "n3wpass")
	assert.NoError(t, err)
}

func TestSandbox_ExpiredToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	require.NoError(t, e.tokens.SetToken("stale"))

	_, err := e.auth.Profile(context.Background())

	assert.ErrorIs(t, err, ports.ErrUnauthorized)
}

func TestSandbox_LogsIssuedCodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var buf syncBuffer
	logger, err := logging.New("info", "json", &buf)
	require.NoError(t, err)
	s := sandbox.New(
		sandbox.WithLogger(logger),
		sandbox.WithOTPGenerator(func() string { return code }),
		sandbox.WithHashCost(bcrypt.MinCost),
	)
	require.NoError(t, s.AddUser(ports.User{FirstName: "Ana", Email: "ana@example.com"}, "secret1"))
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL, ports.NewTokenStore(mocks.NewKeyValueStore()))
	require.NoError(t, err)
	require.NoError(t, api.NewAuthService(client).ForgotPassword(ctx, "ana@example.com"))

	out := buf.String()
	assert.Contains(t, out, "reset code issued")
	assert.Contains(t, out, code)
}

// syncBuffer is a bytes.Buffer safe for the server goroutine to write to.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
