// Package payment confirms payment intents with the hosted payment
// provider.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/lingoflow/internal/adapters/api"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// ErrMissingKey is returned when no publishable key is configured.
var ErrMissingKey = errors.New("payment publishable key is not configured")

// Gateway implements ports.PaymentGateway over HTTP.
type Gateway struct {
	endpoint       string
	publishableKey string
	http           *http.Client
	logger         ports.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(g *Gateway) { g.http = h }
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway creates a gateway for the provider at baseURL.
func NewGateway(baseURL, publishableKey string, opts ...Option) (*Gateway, error) {
	if publishableKey == "" {
		return nil, ErrMissingKey
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid payment URL %q", baseURL)
	}
	g := &Gateway{
		endpoint:       strings.TrimRight(baseURL, "/") + "/v1/payment_intents/confirm",
		publishableKey: publishableKey,
		http:           &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type confirmRequest struct {
	ClientSecret string               `json:"clientSecret"`
	Billing      ports.BillingDetails `json:"billingDetails"`
}

// ConfirmPayment confirms the intent identified by clientSecret.
func (g *Gateway) ConfirmPayment(ctx context.Context, clientSecret string, billing ports.BillingDetails) (*ports.PaymentConfirmation, error) {
	body, err := json.Marshal(confirmRequest{ClientSecret: clientSecret, Billing: billing})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.publishableKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, api.DecodeError(resp)
	}

	var conf ports.PaymentConfirmation
	if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	if g.logger != nil {
		g.logger.Debug(ctx, "payment confirmed",
			ports.F("payment_id", conf.ID),
			ports.F("status", string(conf.Status)),
		)
	}
	return &conf, nil
}

// Ensure Gateway implements ports.PaymentGateway.
var _ ports.PaymentGateway = (*Gateway)(nil)
