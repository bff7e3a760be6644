package api

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// PlanService implements ports.PlanService.
type PlanService struct {
	c *Client
}

// NewPlanService wraps a client.
func NewPlanService(c *Client) *PlanService {
	return &PlanService{c: c}
}

// Plans lists the purchasable plans.
func (s *PlanService) Plans(ctx context.Context) ([]ports.Plan, error) {
	var plans []ports.Plan
	if err := s.c.call(ctx, http.MethodGet, "plans", &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// MySubscription returns the user's subscription or an error matching
// ports.ErrNotFound.
func (s *PlanService) MySubscription(ctx context.Context) (*ports.Subscription, error) {
	var sub ports.Subscription
	if err := s.c.call(ctx, http.MethodGet, "subscriptions/me", &sub, authenticated()); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription starts a subscription. The idempotency key is sent
// as a header so retries return the original intent.
func (s *PlanService) CreateSubscription(ctx context.Context, req ports.CreateSubscriptionRequest) (*ports.PaymentIntent, error) {
	opts := []requestOption{authenticated(), jsonBody(req)}
	if req.IdempotencyKey != "" {
		opts = append(opts, idempotencyKey(req.IdempotencyKey))
	}
	var intent ports.PaymentIntent
	if err := s.c.call(ctx, http.MethodPost, "subscriptions", &intent, opts...); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Ensure PlanService implements ports.PlanService.
var _ ports.PlanService = (*PlanService)(nil)
