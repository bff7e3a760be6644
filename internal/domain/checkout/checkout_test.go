package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
	"github.com/felixgeelhaar/lingoflow/internal/testutil/mocks"
)

var testPlans = []ports.Plan{
	{ID: "monthly", Name: "Monthly", PriceCents: 999, Currency: "eur", Interval: "month"},
	{ID: "yearly", Name: "Yearly", PriceCents: 8999, Currency: "eur", Interval: "year"},
}

type fixture struct {
	plans   *mocks.PlanService
	gateway *mocks.PaymentGateway
	kv      *mocks.KeyValueStore
	tokens  *ports.TokenStore
}

func newFixture(signedIn bool) *fixture {
	f := &fixture{
		plans:   mocks.NewPlanService(testPlans...),
		gateway: mocks.NewPaymentGateway(),
		kv:      mocks.NewKeyValueStore(),
	}
	f.tokens = ports.NewTokenStore(f.kv)
	if signedIn {
		_ = f.tokens.SetToken("token-1")
	}
	return f
}

func (f *fixture) session(t *testing.T, opts ...wizard.Option) *Controller {
	t.Helper()
	opts = append([]wizard.Option{wizard.WithStateSource(SubscriptionState(f.tokens, f.plans))}, opts...)
	c, err := New(NewCatalog(testPlans), f.plans, f.gateway, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

var billing = wizard.Patch{
	"name":       "Ana Silva",
	"email":      "ana@example.com",
	"line1":      "Rua Augusta 1",
	"city":       "Lisboa",
	"postalCode": "1100-048",
	"country":    "pt",
}

func toConfirm(ctx context.Context, t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.Update(ctx, wizard.Patch{"planId": "monthly"}))
	require.NoError(t, c.Advance(ctx))
	require.Equal(t, StepConfirm, c.CurrentStep())
}

func TestCheckout_UnauthenticatedCannotEnterBilling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(false)
	var redirected []wizard.Redirect
	c := f.session(t, wizard.WithRedirectHandler(func(target wizard.Redirect, _ wizard.Snapshot) {
		redirected = append(redirected, target)
	}))
	toConfirm(ctx, t, c)
	require.NoError(t, c.Update(ctx, wizard.Patch{"acceptTerms": true}))

	err := c.Advance(ctx)

	var gerr *wizard.GuardRejection
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, SignInMessage, gerr.Reason)
	assert.Equal(t, StepConfirm, c.CurrentStep())
	assert.Equal(t, []wizard.Redirect{wizard.RedirectLogin}, redirected)
	assert.Empty(t, f.plans.CallsTo("CreateSubscription"))
	assert.Empty(t, f.gateway.Calls())
	assert.True(t, wizard.Get[ConfirmData](c.Draft()).AcceptTerms)
}

func TestCheckout_ActiveSubscriptionBlocksConfirm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(true)
	f.plans.SetSubscription(&ports.Subscription{ID: "sub_0", PlanID: "yearly", Status: ports.SubscriptionActive})
	c := f.session(t)
	require.NoError(t, c.Update(ctx, wizard.Patch{"planId": "monthly"}))

	pricing, err := c.CanEnter(ctx, StepPricing)
	require.NoError(t, err)
	assert.True(t, pricing.Allowed)
	assert.Contains(t, pricing.Warning, ConflictMessage)

	confirm, err := c.CanEnter(ctx, StepConfirm)
	require.NoError(t, err)
	assert.False(t, confirm.Allowed)

	err = c.Advance(ctx)
	var gerr *wizard.GuardRejection
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, wizard.RedirectNone, gerr.Redirect)
	assert.Equal(t, StepPricing, c.CurrentStep())
	assert.Equal(t, "monthly", wizard.Get[PricingData](c.Draft()).PlanID)
}

func TestCheckout_CanceledSubscriptionDoesNotConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(true)
	f.plans.SetSubscription(&ports.Subscription{PlanID: "yearly", Status: ports.SubscriptionCanceled})
	c := f.session(t)

	toConfirm(ctx, t, c)
	assert.Empty(t, c.Status().Warning)
}

func TestCheckout_UnknownPlanIsInvalid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newFixture(true).session(t)
	require.NoError(t, c.Update(ctx, wizard.Patch{"planId": "lifetime"}))

	err := c.Advance(ctx)

	var verr *wizard.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "This plan is no longer available", verr.Fields["planId"])
}

func TestCheckout_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(true)
	c := f.session(t)
	toConfirm(ctx, t, c)
	require.NoError(t, c.Update(ctx, wizard.Patch{"acceptTerms": true}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, billing))

	receipt, err := c.Submit(ctx)

	require.NoError(t, err)
	assert.Equal(t, Receipt{
		SubscriptionID: "sub_1",
		PlanID:         "monthly",
		Status:         ports.PaymentSucceeded,
		AmountCents:    999,
		Currency:       "eur",
	}, receipt)
	assert.Equal(t, string(wizard.PhaseSucceeded), c.State())

	calls := f.gateway.CallsTo("ConfirmPayment")
	require.Len(t, calls, 1)
	assert.Equal(t, "secret_1", calls[0].Args[0])
	assert.Equal(t, "PT", calls[0].Args[1].(ports.BillingDetails).Country)
}

func TestCheckout_RetryAfterTransportFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(true)
	f.gateway.FailNext("ConfirmPayment", errors.New("connection reset by peer"))
	c := f.session(t)
	toConfirm(ctx, t, c)
	require.NoError(t, c.Update(ctx, wizard.Patch{"acceptTerms": true}))
	require.NoError(t, c.Advance(ctx))
	require.NoError(t, c.Update(ctx, billing))
	draft := c.Draft()

	_, err := c.Submit(ctx)

	var terr *wizard.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StepBilling, c.CurrentStep())
	assert.Equal(t, draft, c.Draft())

	receipt, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, ports.PaymentSucceeded, receipt.Status)

	creates := f.plans.CallsTo("CreateSubscription")
	require.Len(t, creates, 2)
	first := creates[0].Args[0].(ports.CreateSubscriptionRequest)
	second := creates[1].Args[0].(ports.CreateSubscriptionRequest)
	assert.NotEmpty(t, first.IdempotencyKey)
	assert.Equal(t, first.IdempotencyKey, second.IdempotencyKey)
}

func TestCheckout_PaymentOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  ports.PaymentStatus
		message string
		wantErr string
	}{
		{name: "processing", status: ports.PaymentProcessing},
		{name: "requires action", status: ports.PaymentRequiresAction, wantErr: "Your bank needs you to authorize this payment. Complete the verification and try again."},
		{name: "declined with reason", status: ports.PaymentFailed, message: "Insufficient funds", wantErr: "Insufficient funds"},
		{name: "declined", status: ports.PaymentFailed, wantErr: "Your payment was declined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			f := newFixture(true)
			f.gateway.RespondNext(tt.status, tt.message)
			c := f.session(t)
			toConfirm(ctx, t, c)
			require.NoError(t, c.Update(ctx, wizard.Patch{"acceptTerms": true}))
			require.NoError(t, c.Advance(ctx))
			require.NoError(t, c.Update(ctx, billing))

			receipt, err := c.Submit(ctx)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.status, receipt.Status)
				return
			}
			var derr *wizard.DomainError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.wantErr, derr.Message)
			assert.Equal(t, StepBilling, c.CurrentStep())
		})
	}
}

func TestValidateBilling(t *testing.T) {
	t.Parallel()

	_, errs := validateBilling(BillingData{Country: "Germany"})
	assert.Len(t, errs, 6)
	assert.Equal(t, "Enter a two-letter country code, e.g. DE", errs["country"])

	_, errs = validateBilling(BillingData{
		Name: "A", Email: "a@b.co", Line1: "x", City: "y", PostalCode: "1", Country: "de",
	})
	assert.Nil(t, errs)
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(testPlans)
	plan, ok := catalog.Find("yearly")
	require.True(t, ok)
	assert.Equal(t, "Yearly", plan.Name)
	assert.Equal(t, []string{"monthly", "yearly"}, catalog.IDs())

	_, ok = catalog.Find("nope")
	assert.False(t, ok)

	assert.Contains(t, FormatPrice(plan), "89.99")
	assert.Contains(t, FormatPrice(plan), "/ year")
	assert.Equal(t, "1.00 credits / month", FormatPrice(ports.Plan{PriceCents: 100, Currency: "credits", Interval: "month"}))
}

func TestSubscriptionState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	anonymous := newFixture(false)
	state, err := SubscriptionState(anonymous.tokens, anonymous.plans).ExternalState(ctx)
	require.NoError(t, err)
	assert.False(t, state.Authenticated)
	assert.Empty(t, anonymous.plans.CallsTo("MySubscription"))

	expired := newFixture(true)
	expired.plans.FailNext("MySubscription", &ports.RemoteError{StatusCode: 401})
	state, err = SubscriptionState(expired.tokens, expired.plans).ExternalState(ctx)
	require.NoError(t, err)
	assert.False(t, state.Authenticated)

	down := newFixture(true)
	down.plans.FailNext("MySubscription", &ports.RemoteError{StatusCode: 502})
	_, err = SubscriptionState(down.tokens, down.plans).ExternalState(ctx)
	require.Error(t, err)
}
