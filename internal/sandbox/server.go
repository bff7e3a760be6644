// Package sandbox serves an in-memory stand-in for the learner API and the
// payment provider so the wizards can be exercised without a backend.
package sandbox

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// APIVersion is reported in every response.
const APIVersion = "1.4.0"

// Postal codes that steer the simulated card outcome.
const (
	PostalDecline       = "00000"
	PostalRequireAction = "99999"
)

// DefaultPlans is the sandbox catalog.
var DefaultPlans = []ports.Plan{
	{
		ID:          "monthly",
		Name:        "Monthly",
		Description: "Unlimited lessons, billed monthly",
		PriceCents:  999,
		Currency:    "eur",
		Interval:    "month",
		Features:    []string{"Unlimited lessons", "Offline mode"},
	},
	{
		ID:          "yearly",
		Name:        "Yearly",
		Description: "Unlimited lessons, two months free",
		PriceCents:  8999,
		Currency:    "eur",
		Interval:    "year",
		Features:    []string{"Unlimited lessons", "Offline mode", "Progress reports"},
	},
}

type account struct {
	user ports.User
	hash []byte
}

type pendingRegistration struct {
	req ports.RegistrationRequest
	otp string
}

type resetState struct {
	otp      string
	verified bool
}

type intentRecord struct {
	email  string
	intent ports.PaymentIntent
}

// Server is the sandbox HTTP handler. It is safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	pending  map[string]pendingRegistration
	resets   map[string]*resetState
	subs     map[string]*ports.Subscription
	intents  map[string]intentRecord
	secrets  map[string]string
	plans    []ports.Plan

	otp    func() string
	cost   int
	logger ports.Logger
	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Issued codes are logged at info level.
func WithLogger(l ports.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithOTPGenerator replaces the random six-digit code generator.
func WithOTPGenerator(fn func() string) Option {
	return func(s *Server) { s.otp = fn }
}

// WithPlans replaces the catalog.
func WithPlans(plans []ports.Plan) Option {
	return func(s *Server) { s.plans = plans }
}

// WithHashCost sets the bcrypt cost for stored passwords.
func WithHashCost(cost int) Option {
	return func(s *Server) { s.cost = cost }
}

// New creates an empty sandbox.
func New(opts ...Option) *Server {
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		pending:  make(map[string]pendingRegistration),
		resets:   make(map[string]*resetState),
		subs:     make(map[string]*ports.Subscription),
		intents:  make(map[string]intentRecord),
		secrets:  make(map[string]string),
		plans:    DefaultPlans,
		otp:      randomOTP,
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser seeds a verified account.
func (s *Server) AddUser(u ports.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID("usr")
	}
	s.accounts[u.Email] = &account{user: u, hash: hash}
	return nil
}

// SetSubscription seeds the subscription of the account with email.
func (s *Server) SetSubscription(email string, sub ports.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[email] = &sub
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(versionHeader)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "No such endpoint")
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-otp", s.handleVerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-reset-otp", s.handleVerifyResetOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/plans", s.handlePlans).Methods(http.MethodGet)
	r.HandleFunc("/v1/payment_intents/confirm", s.handleConfirmPayment).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.requireToken)
	authed.HandleFunc("/auth/profile", s.handleProfile).Methods(http.MethodGet)
	authed.HandleFunc("/auth/change-password", s.handleChangePassword).Methods(http.MethodPost)
	authed.HandleFunc("/profile", s.handleUpdateProfile).Methods(http.MethodPut)
	authed.HandleFunc("/subscriptions/me", s.handleMySubscription).Methods(http.MethodGet)
	authed.HandleFunc("/subscriptions", s.handleCreateSubscription).Methods(http.MethodPost)

	return r
}

func versionHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", APIVersion)
		next.ServeHTTP(w, r)
	})
}

type emailKey struct{}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Please sign in")
			return
		}
		s.mu.Lock()
		email, ok := s.tokens[header[len(prefix):]]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Your session has expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), emailKey{}, email)))
	})
}

func callerEmail(r *http.Request) string {
	email, _ := r.Context().Value(emailKey{}).(string)
	return email
}

// info logs through the configured logger, or the one carried by the
// request context.
func (s *Server) info(ctx context.Context, msg string, fields ...ports.Field) {
	logger := s.logger
	if logger == nil {
		logger = ports.LoggerFromContext(ctx)
	}
	if logger != nil {
		logger.Info(ctx, msg, fields...)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func randomOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}
