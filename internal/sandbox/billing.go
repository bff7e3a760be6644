package sandbox

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *Server) handlePlans(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	plans := append([]ports.Plan(nil), s.plans...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) findPlan(id string) (ports.Plan, bool) {
	for _, p := range s.plans {
		if p.ID == id {
			return p, true
		}
	}
	return ports.Plan{}, false
}

func (s *Server) handleMySubscription(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sub, ok := s.subs[callerEmail(r)]
	var out ports.Subscription
	if ok {
		out = *sub
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no_subscription", "You have no subscription")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req ports.CreateSubscriptionRequest
	if !decode(w, r, &req) {
		return
	}
	email := callerEmail(r)
	key := r.Header.Get("Idempotency-Key")

	s.mu.Lock()
	defer s.mu.Unlock()

	if key != "" {
		if rec, ok := s.intents[key]; ok {
			if rec.email != email {
				writeError(w, http.StatusConflict, "idempotency_conflict", "Idempotency key already used")
				return
			}
			writeJSON(w, http.StatusOK, rec.intent)
			return
		}
	}

	plan, ok := s.findPlan(req.PlanID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_plan", "That plan is no longer available")
		return
	}
	if sub, ok := s.subs[email]; ok && sub.IsActive() {
		writeError(w, http.StatusConflict, "subscription_active", "You already have an active subscription")
		return
	}

	sub := &ports.Subscription{
		ID:     newID("sub"),
		PlanID: plan.ID,
		Status: ports.SubscriptionIncomplete,
	}
	intent := ports.PaymentIntent{
		SubscriptionID: sub.ID,
		ClientSecret:   newID("pi") + "_secret",
		AmountCents:    plan.PriceCents,
		Currency:       plan.Currency,
	}
	s.subs[email] = sub
	s.secrets[intent.ClientSecret] = email
	if key != "" {
		s.intents[key] = intentRecord{email: email, intent: intent}
	}
	writeJSON(w, http.StatusCreated, intent)
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeError(w, http.StatusUnauthorized, "missing_key", "A publishable key is required")
		return
	}
	var req struct {
		ClientSecret string               `json:"clientSecret"`
		Billing      ports.BillingDetails `json:"billingDetails"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.secrets[req.ClientSecret]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_intent", "Payment intent not found")
		return
	}

	conf := ports.PaymentConfirmation{ID: strings.TrimSuffix(req.ClientSecret, "_secret")}
	switch strings.TrimSpace(req.Billing.PostalCode) {
	case PostalDecline:
		conf.Status = ports.PaymentFailed
		conf.Message = "Your card was declined"
	case PostalRequireAction:
		conf.Status = ports.PaymentRequiresAction
		conf.Message = "Your bank requires additional verification"
	default:
		conf.Status = ports.PaymentSucceeded
		if sub, ok := s.subs[email]; ok {
			sub.Status = ports.SubscriptionActive
			sub.CurrentPeriodEnd = time.Now().UTC().AddDate(0, 1, 0)
			if plan, ok := s.findPlan(sub.PlanID); ok && plan.Interval == "year" {
				sub.CurrentPeriodEnd = time.Now().UTC().AddDate(1, 0, 0)
			}
		}
	}
	writeJSON(w, http.StatusOK, conf)
}
