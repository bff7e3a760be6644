// Package checkout implements the subscription purchase wizard: choose a
// plan, confirm it, enter billing details and pay.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Name is the wizard name used for checkpoints.
const Name = "checkout"

// Guard messages.
const (
	ConflictMessage = "You already have an active subscription"
	SignInMessage   = "Sign in to enter your billing details"
)

// Receipt is the result of a completed checkout.
type Receipt struct {
	SubscriptionID string
	PlanID         string
	Status         ports.PaymentStatus
	AmountCents    int64
	Currency       string
}

// Controller is a checkout session.
type Controller = wizard.Controller[Receipt]

// Definitions returns the checkout steps for a plan catalog.
func Definitions(catalog Catalog) []wizard.Definition {
	planOptions := catalog.IDs()
	return []wizard.Definition{
		wizard.Step(PricingData{}, validatePricing(catalog)).
			Guarded(wizard.WarnOnConflict(ConflictMessage)).
			WithForm(wizard.Field{Name: "planId", Label: "Plan", Kind: wizard.KindChoice, Options: planOptions}),
		wizard.Step(ConfirmData{}, validateConfirm).
			Guarded(wizard.BlockOnConflict(ConflictMessage)).
			WithForm(wizard.Field{Name: "acceptTerms", Label: "I accept the terms of service", Kind: wizard.KindToggle}),
		wizard.Step(BillingData{}, validateBilling).
			Guarded(wizard.All(
				wizard.RequireAuthentication(SignInMessage),
				wizard.BlockOnConflict(ConflictMessage),
			)).
			WithForm(
				wizard.Field{Name: "name", Label: "Name on card", Kind: wizard.KindText},
				wizard.Field{Name: "email", Label: "Billing email", Kind: wizard.KindEmail},
				wizard.Field{Name: "line1", Label: "Address", Kind: wizard.KindText},
				wizard.Field{Name: "city", Label: "City", Kind: wizard.KindText},
				wizard.Field{Name: "postalCode", Label: "Postal code", Kind: wizard.KindText},
				wizard.Field{Name: "country", Label: "Country", Kind: wizard.KindText, Hint: "two-letter code"},
			).
			AsTerminal(),
	}
}

// New starts a checkout session.
func New(catalog Catalog, plans ports.PlanService, gateway ports.PaymentGateway, opts ...wizard.Option) (*Controller, error) {
	return wizard.New(Name, Definitions(catalog), pay(catalog, plans, gateway), opts...)
}

// pay creates the subscription and confirms its payment. The idempotency
// key lets the API return the same intent when a failed attempt is retried.
func pay(catalog Catalog, plans ports.PlanService, gateway ports.PaymentGateway) wizard.Action[Receipt] {
	return func(ctx context.Context, sub wizard.Submission) (Receipt, error) {
		planID := wizard.Get[PricingData](sub.Draft).PlanID
		if _, ok := catalog.Find(planID); !ok {
			return Receipt{}, &wizard.DomainError{Message: "This plan is no longer available"}
		}

		intent, err := plans.CreateSubscription(ctx, ports.CreateSubscriptionRequest{
			PlanID:         planID,
			IdempotencyKey: sub.IdempotencyKey,
		})
		if err != nil {
			return Receipt{}, fmt.Errorf("failed to create subscription: %w", err)
		}
		if intent == nil || intent.ClientSecret == "" {
			return Receipt{}, errors.New("subscription created without a payment intent")
		}

		billing := wizard.Get[BillingData](sub.Draft).Details()
		conf, err := gateway.ConfirmPayment(ctx, intent.ClientSecret, billing)
		if err != nil {
			return Receipt{}, fmt.Errorf("failed to confirm payment: %w", err)
		}
		if conf == nil {
			return Receipt{}, errors.New("payment provider returned no confirmation")
		}

		switch conf.Status {
		case ports.PaymentSucceeded, ports.PaymentProcessing:
			return Receipt{
				SubscriptionID: intent.SubscriptionID,
				PlanID:         planID,
				Status:         conf.Status,
				AmountCents:    intent.AmountCents,
				Currency:       intent.Currency,
			}, nil
		case ports.PaymentRequiresAction:
			return Receipt{}, &wizard.DomainError{Message: "Your bank needs you to authorize this payment. Complete the verification and try again."}
		default:
			msg := conf.Message
			if msg == "" {
				msg = "Your payment was declined"
			}
			return Receipt{}, &wizard.DomainError{Message: msg}
		}
	}
}

// SubscriptionState derives guard state from the stored token and the
// user's current subscription.
func SubscriptionState(tokens *ports.TokenStore, plans ports.PlanService) wizard.StateSource {
	return wizard.StateFunc(func(ctx context.Context) (wizard.ExternalState, error) {
		if _, err := tokens.Token(); err != nil {
			if errors.Is(err, ports.ErrNoToken) {
				return wizard.ExternalState{}, nil
			}
			return wizard.ExternalState{}, err
		}

		current, err := plans.MySubscription(ctx)
		switch {
		case errors.Is(err, ports.ErrUnauthorized):
			return wizard.ExternalState{}, nil
		case errors.Is(err, ports.ErrNotFound):
			return wizard.ExternalState{Authenticated: true}, nil
		case err != nil:
			return wizard.ExternalState{}, err
		}

		state := wizard.ExternalState{Authenticated: true}
		if current.IsActive() {
			state.ConflictingResource = true
			state.ConflictReason = fmt.Sprintf("%s (plan %s, %s)", ConflictMessage, current.PlanID, current.Status)
		}
		return state, nil
	})
}
