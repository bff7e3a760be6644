package ports

import (
	"context"
	"time"
)

// Plan is a purchasable subscription plan.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	PriceCents  int64    `json:"priceCents"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	Features    []string `json:"features,omitempty"`
}

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

// Subscription statuses reported by the API.
const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
)

// Subscription is the signed-in user's current subscription.
type Subscription struct {
	ID               string             `json:"id"`
	PlanID           string             `json:"planId"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd time.Time          `json:"currentPeriodEnd,omitempty"`
}

// IsActive reports whether the subscription blocks buying another plan.
func (s *Subscription) IsActive() bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}

// CreateSubscriptionRequest starts a subscription for a plan.
type CreateSubscriptionRequest struct {
	PlanID         string `json:"planId"`
	IdempotencyKey string `json:"-"`
}

// PaymentIntent is returned by CreateSubscription and handed to the
// payment collaborator.
type PaymentIntent struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret"`
	AmountCents    int64  `json:"amountCents,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// PlanService is the remote plans and subscription collaborator.
type PlanService interface {
	Plans(ctx context.Context) ([]Plan, error)
	// MySubscription returns ErrNotFound when the user has none.
	MySubscription(ctx context.Context) (*Subscription, error)
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*PaymentIntent, error)
}
