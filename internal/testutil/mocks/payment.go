package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// PaymentGateway is a thread-safe test double for ports.PaymentGateway.
// It reports success unless a status is queued.
type PaymentGateway struct {
	recorder

	mu       sync.Mutex
	statuses []ports.PaymentConfirmation
}

// NewPaymentGateway creates a PaymentGateway mock.
func NewPaymentGateway() *PaymentGateway {
	return &PaymentGateway{}
}

// RespondNext makes the next successful call return the given outcome.
func (m *PaymentGateway) RespondNext(status ports.PaymentStatus, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, ports.PaymentConfirmation{Status: status, Message: message})
}

// ConfirmPayment implements ports.PaymentGateway.
func (m *PaymentGateway) ConfirmPayment(_ context.Context, clientSecret string, billing ports.BillingDetails) (*ports.PaymentConfirmation, error) {
	if err := m.record("ConfirmPayment", clientSecret, billing); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := ports.PaymentConfirmation{ID: "pi_" + clientSecret, Status: ports.PaymentSucceeded}
	if len(m.statuses) > 0 {
		out.Status = m.statuses[0].Status
		out.Message = m.statuses[0].Message
		m.statuses = m.statuses[1:]
	}
	return &out, nil
}

// Ensure PaymentGateway implements ports.PaymentGateway.
var _ ports.PaymentGateway = (*PaymentGateway)(nil)
