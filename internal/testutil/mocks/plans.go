package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// PlanService is a thread-safe test double for ports.PlanService.
type PlanService struct {
	recorder

	mu           sync.RWMutex
	plans        []ports.Plan
	subscription *ports.Subscription
	created      int
}

// NewPlanService creates a PlanService mock with the given catalog.
func NewPlanService(plans ...ports.Plan) *PlanService {
	return &PlanService{plans: plans}
}

// SetSubscription sets the subscription returned by MySubscription.
func (m *PlanService) SetSubscription(s *ports.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscription = s
}

// Plans implements ports.PlanService.
func (m *PlanService) Plans(_ context.Context) ([]ports.Plan, error) {
	if err := m.record("Plans"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ports.Plan(nil), m.plans...), nil
}

// MySubscription implements ports.PlanService.
func (m *PlanService) MySubscription(_ context.Context) (*ports.Subscription, error) {
	if err := m.record("MySubscription"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.subscription == nil {
		return nil, ports.ErrNotFound
	}
	s := *m.subscription
	return &s, nil
}

// CreateSubscription implements ports.PlanService. Every call creates a
// new intent; deduplication is left to the caller under test.
func (m *PlanService) CreateSubscription(_ context.Context, req ports.CreateSubscriptionRequest) (*ports.PaymentIntent, error) {
	if err := m.record("CreateSubscription", req); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.ID == req.PlanID {
			m.created++
			return &ports.PaymentIntent{
				SubscriptionID: fmt.Sprintf("sub_%d", m.created),
				ClientSecret:   fmt.Sprintf("secret_%d", m.created),
				AmountCents:    p.PriceCents,
				Currency:       p.Currency,
			}, nil
		}
	}
	return nil, &ports.RemoteError{StatusCode: 404, Message: "Plan not found"}
}

// Ensure PlanService implements ports.PlanService.
var _ ports.PlanService = (*PlanService)(nil)
