package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// AuthService implements ports.AuthService.
type AuthService struct {
	c *Client
}

// NewAuthService wraps a client.
func NewAuthService(c *Client) *AuthService {
	return &AuthService{c: c}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (ports.AccessToken, error) {
	var token ports.AccessToken
	err := s.c.call(ctx, http.MethodPost, "auth/login", &token, jsonBody(loginRequest{Email: email, Password: password}))
	if err != nil {
		return ports.AccessToken{}, err
	}
	if token.Value == "" {
		return ports.AccessToken{}, errors.New("login response has no access token")
	}
	return token, nil
}

// Profile returns the signed-in user.
func (s *AuthService) Profile(ctx context.Context) (*ports.User, error) {
	var u ports.User
	if err := s.c.call(ctx, http.MethodGet, "auth/profile", &u, authenticated()); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword changes the signed-in user's password.
func (s *AuthService) ChangePassword(ctx context.Context, req ports.ChangePasswordRequest) error {
	return s.c.call(ctx, http.MethodPost, "auth/change-password", nil, authenticated(), jsonBody(req))
}

// ForgotPassword sends a reset code to email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.c.call(ctx, http.MethodPost, "auth/forgot-password", nil, jsonBody(map[string]string{"email": email}))
}

// VerifyResetOTP checks a reset code.
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, otp string) error {
	return s.c.call(ctx, http.MethodPost, "auth/verify-reset-otp", nil,
		jsonBody(map[string]string{"email": email, "otp": otp}))
}

// ResetPassword sets a new password after a verified reset code.
func (s *AuthService) ResetPassword(ctx context.Context, req ports.ResetPasswordRequest) error {
	return s.c.call(ctx, http.MethodPost, "auth/reset-password", nil, jsonBody(req))
}

// Register submits the registration data; the server e-mails an OTP.
func (s *AuthService) Register(ctx context.Context, req ports.RegistrationRequest) error {
	return s.c.call(ctx, http.MethodPost, "auth/register", nil, jsonBody(req))
}

// VerifyOTP completes a registration.
func (s *AuthService) VerifyOTP(ctx context.Context, req ports.VerifyOTPRequest) (*ports.VerifyOTPResult, error) {
	var res ports.VerifyOTPResult
	if err := s.c.call(ctx, http.MethodPost, "auth/verify-otp", &res, jsonBody(req)); err != nil {
		return nil, err
	}
	return &res, nil
}

// Ensure AuthService implements ports.AuthService.
var _ ports.AuthService = (*AuthService)(nil)
