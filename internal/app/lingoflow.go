// Package app wires configuration, adapters and the wizard flows together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/felixgeelhaar/lingoflow/internal/adapters/api"
	"github.com/felixgeelhaar/lingoflow/internal/adapters/draftstore"
	"github.com/felixgeelhaar/lingoflow/internal/adapters/kvstore"
	"github.com/felixgeelhaar/lingoflow/internal/adapters/payment"
	"github.com/felixgeelhaar/lingoflow/internal/config"
	"github.com/felixgeelhaar/lingoflow/internal/domain/checkout"
	"github.com/felixgeelhaar/lingoflow/internal/domain/recovery"
	"github.com/felixgeelhaar/lingoflow/internal/domain/registration"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Version is set by build flags and sent as part of the User-Agent.
var Version = "dev"

// Services are the collaborators the flows run against.
type Services struct {
	Auth     ports.AuthService
	Plans    ports.PlanService
	Profile  ports.ProfileService
	Payments ports.PaymentGateway
	State    ports.KeyValueStore
	// Drafts keeps wizard checkpoints; nil disables them.
	Drafts wizard.Repository
}

// Lingoflow is the application orchestrator shared by the CLI, the
// terminal UI and the MCP server.
type Lingoflow struct {
	cfg     *config.Config
	logger  ports.Logger
	svc     Services
	tokens  *ports.TokenStore
	prefs   *ports.PreferenceStore
	closers []io.Closer
}

// New creates an application over the given services.
func New(cfg *config.Config, logger ports.Logger, svc Services) *Lingoflow {
	fallback := config.DefaultLanguage
	if cfg != nil && cfg.Language != "" {
		fallback = cfg.Language
	}
	return &Lingoflow{
		cfg:    cfg,
		logger: logger,
		svc:    svc,
		tokens: ports.NewTokenStore(svc.State),
		prefs:  ports.NewPreferenceStore(svc.State, fallback),
	}
}

// Open builds the real adapters described by cfg.
func Open(cfg *config.Config, logger ports.Logger) (*Lingoflow, error) {
	state := kvstore.NewINIStore(cfg.State.Path)
	tokens := ports.NewTokenStore(state)

	client, err := api.New(cfg.API.BaseURL, tokens,
		api.WithTimeout(cfg.API.Timeout.Std()),
		api.WithLogger(logger),
		api.WithUserAgent("lingoflow/"+Version),
	)
	if err != nil {
		return nil, config.NewUserError(config.ErrCodeValidationFailed, "invalid API configuration").
			WithContext("api.base_url").
			WithUnderlying(err)
	}

	gateway, err := payment.NewGateway(cfg.Payment.BaseURL, cfg.Payment.PublishableKey, payment.WithLogger(logger))
	if err != nil {
		return nil, config.NewUserError(config.ErrCodeValidationFailed, "invalid payment configuration").
			WithContext("payment").
			WithUnderlying(err)
	}

	svc := Services{
		Auth:     api.NewAuthService(client),
		Plans:    api.NewPlanService(client),
		Profile:  api.NewProfileService(client),
		Payments: gateway,
		State:    state,
	}

	var closers []io.Closer
	switch cfg.Drafts.Backend {
	case config.BackendYAML:
		svc.Drafts = draftstore.NewYAMLRepository(cfg.Drafts.Path)
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Drafts.Path), 0o700); err != nil {
			return nil, draftsUnavailable(cfg.Drafts.Path, err)
		}
		repo, err := draftstore.OpenSQLite(cfg.Drafts.Path)
		if err != nil {
			return nil, draftsUnavailable(cfg.Drafts.Path, err)
		}
		svc.Drafts = repo
		closers = append(closers, repo)
	}

	l := New(cfg, logger, svc)
	l.closers = closers
	return l, nil
}

func draftsUnavailable(path string, err error) error {
	return config.NewUserError(config.ErrCodeStateUnavailable, "cannot open draft store").
		WithContext(path).
		WithSuggestion("Check drafts.path, or set drafts.backend to none").
		WithUnderlying(err)
}

// Close releases adapter resources.
func (l *Lingoflow) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Config returns the active configuration.
func (l *Lingoflow) Config() *config.Config { return l.cfg }

// Logger returns the application logger.
func (l *Lingoflow) Logger() ports.Logger { return l.logger }

// Services returns the collaborators.
func (l *Lingoflow) Services() Services { return l.svc }

// Tokens returns the access token store.
func (l *Lingoflow) Tokens() *ports.TokenStore { return l.tokens }

// SessionOptions configure a wizard session.
type SessionOptions struct {
	// SessionID resumes (or names) a session; empty starts a fresh one.
	SessionID string
	// Redirect is notified when a guard sends the user elsewhere.
	Redirect wizard.RedirectHandler
}

func (l *Lingoflow) wizardOptions(so SessionOptions, extra ...wizard.Option) []wizard.Option {
	opts := []wizard.Option{wizard.WithLogger(l.logger)}
	if l.svc.Drafts != nil {
		opts = append(opts, wizard.WithRepository(l.svc.Drafts))
	}
	if so.SessionID != "" {
		opts = append(opts, wizard.WithSessionID(so.SessionID))
	}
	if so.Redirect != nil {
		opts = append(opts, wizard.WithRedirectHandler(so.Redirect))
	}
	return append(opts, extra...)
}

// resumable is the part of a controller needed to pick up a checkpoint.
type resumable interface {
	Resume(ctx context.Context) (bool, error)
	Close()
}

func resume(ctx context.Context, c resumable, so SessionOptions) (bool, error) {
	if so.SessionID == "" {
		return false, nil
	}
	ok, err := c.Resume(ctx)
	if err != nil {
		c.Close()
		return false, err
	}
	return ok, nil
}

// Registration starts or resumes a registration session. It reports
// whether a checkpoint was restored.
func (l *Lingoflow) Registration(ctx context.Context, so SessionOptions) (*registration.Controller, bool, error) {
	c, err := registration.New(l.svc.Auth, l.wizardOptions(so)...)
	if err != nil {
		return nil, false, err
	}
	resumed, err := resume(ctx, c, so)
	if err != nil {
		return nil, false, err
	}
	return c, resumed, nil
}

// ResendCode asks the server to e-mail a new verification code for a
// registration waiting on its verify step.
func (l *Lingoflow) ResendCode(ctx context.Context, c *registration.Controller) error {
	if err := registration.ResendCode(ctx, c, l.svc.Auth); err != nil {
		return err
	}
	l.logger.Info(ctx, "verification code resent", ports.F("session", c.SessionID()))
	return nil
}

// Recovery starts or resumes a forgot-password session.
func (l *Lingoflow) Recovery(ctx context.Context, so SessionOptions) (*recovery.Controller, bool, error) {
	c, err := recovery.New(l.svc.Auth, l.wizardOptions(so)...)
	if err != nil {
		return nil, false, err
	}
	resumed, err := resume(ctx, c, so)
	if err != nil {
		return nil, false, err
	}
	return c, resumed, nil
}

// Catalog fetches the purchasable plans.
func (l *Lingoflow) Catalog(ctx context.Context) (checkout.Catalog, error) {
	return checkout.LoadCatalog(ctx, l.svc.Plans)
}

// Checkout starts or resumes a checkout session. Guards read the signed-in
// user's subscription.
func (l *Lingoflow) Checkout(ctx context.Context, so SessionOptions) (*checkout.Controller, bool, error) {
	catalog, err := l.Catalog(ctx)
	if err != nil {
		return nil, false, err
	}
	c, err := checkout.New(catalog, l.svc.Plans, l.svc.Payments,
		l.wizardOptions(so, wizard.WithStateSource(checkout.SubscriptionState(l.tokens, l.svc.Plans)))...)
	if err != nil {
		return nil, false, err
	}
	resumed, err := resume(ctx, c, so)
	if err != nil {
		return nil, false, err
	}
	return c, resumed, nil
}

// Login signs in and stores the access token.
func (l *Lingoflow) Login(ctx context.Context, email, password string) (*ports.User, error) {
	token, err := l.svc.Auth.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if err := l.tokens.SetToken(token.Value); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	l.logger.Info(ctx, "signed in", ports.F("email", strings.TrimSpace(email)))
	return l.svc.Auth.Profile(ctx)
}

// Logout forgets the access token.
func (l *Lingoflow) Logout(ctx context.Context) error {
	if err := l.tokens.Clear(); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	l.logger.Info(ctx, "signed out")
	return nil
}

// WhoAmI returns the signed-in user.
func (l *Lingoflow) WhoAmI(ctx context.Context) (*ports.User, error) {
	return l.svc.Auth.Profile(ctx)
}

// UpdateProfile submits the profile form.
func (l *Lingoflow) UpdateProfile(ctx context.Context, update ports.ProfileUpdate) (*ports.User, error) {
	if update.Language != "" {
		lang, ok := registration.ResolveLanguage(update.Language)
		if !ok {
			return nil, &wizard.ValidationError{
				Step:   "profile",
				Fields: wizard.FieldErrors{"selectedLanguage": "This language is not available yet"},
			}
		}
		update.Language = lang.Name
	}
	return l.svc.Profile.UpdateProfile(ctx, update)
}

// ChangePassword checks the new password locally before sending it.
func (l *Lingoflow) ChangePassword(ctx context.Context, req ports.ChangePasswordRequest) error {
	c := wizard.NewChecker()
	c.Required("currentPassword", req.CurrentPassword, "Current password is required")
	if c.Required("newPassword", req.NewPassword, "New password is required") {
		c.MinLength("newPassword", req.NewPassword, registration.MinPasswordLength,
			fmt.Sprintf("Password must be at least %d characters", registration.MinPasswordLength))
	}
	c.Equal("confirmPassword", req.ConfirmPassword, req.NewPassword, "Passwords do not match")
	if errs := c.Errors(); len(errs) > 0 {
		return &wizard.ValidationError{Step: "password", Fields: errs}
	}
	return l.svc.Auth.ChangePassword(ctx, req)
}

// Language returns the interface language preference.
func (l *Lingoflow) Language() (string, error) {
	return l.prefs.Language()
}

// SetLanguage stores a BCP 47 language preference in canonical form.
func (l *Lingoflow) SetLanguage(tag string) (string, error) {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", config.NewUserError(config.ErrCodeValidationFailed, fmt.Sprintf("unknown language tag %q", tag)).
			WithSuggestion(`Use a tag such as "en", "es" or "pt-BR"`).
			WithUnderlying(err)
	}
	canonical := parsed.String()
	if err := l.prefs.SetLanguage(canonical); err != nil {
		return "", err
	}
	return canonical, nil
}

// Drafts lists saved checkpoints, most recent first. An empty name lists
// every wizard.
func (l *Lingoflow) Drafts(ctx context.Context, wizardName string) ([]wizard.Snapshot, error) {
	if l.svc.Drafts == nil {
		return nil, nil
	}
	return l.svc.Drafts.List(ctx, wizardName)
}

// DiscardDraft deletes one checkpoint.
func (l *Lingoflow) DiscardDraft(ctx context.Context, wizardName, sessionID string) error {
	if l.svc.Drafts == nil {
		return wizard.ErrSnapshotNotFound
	}
	return l.svc.Drafts.Delete(ctx, wizardName, sessionID)
}

// Wizards lists the wizard names in the order they are offered.
func Wizards() []string {
	return []string{registration.Name, recovery.Name, checkout.Name}
}
