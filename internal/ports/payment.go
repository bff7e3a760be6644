package ports

import "context"

// BillingDetails are collected on the checkout billing step.
type BillingDetails struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentStatus is the outcome reported by the payment provider.
type PaymentStatus string

// Payment statuses.
const (
	PaymentSucceeded      PaymentStatus = "succeeded"
	PaymentProcessing     PaymentStatus = "processing"
	PaymentRequiresAction PaymentStatus = "requires_action"
	PaymentFailed         PaymentStatus = "failed"
)

// PaymentConfirmation is the result of confirming a payment intent.
type PaymentConfirmation struct {
	ID      string        `json:"id"`
	Status  PaymentStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

// PaymentGateway is the third-party payment collaborator.
type PaymentGateway interface {
	ConfirmPayment(ctx context.Context, clientSecret string, billing BillingDetails) (*PaymentConfirmation, error)
}
