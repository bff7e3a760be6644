package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// AuthService is a thread-safe test double for ports.AuthService.
// OTP codes are accepted when they equal ValidOTP.
type AuthService struct {
	recorder

	mu       sync.RWMutex
	users    map[string]string
	profile  *ports.User
	validOTP string
	token    string
}

// NewAuthService creates an AuthService mock that accepts the OTP 123456.
func NewAuthService() *AuthService {
	return &AuthService{
		users:    make(map[string]string),
		validOTP: "123456",
		token:    "token-1",
	}
}

// AddUser registers credentials accepted by Login.
func (m *AuthService) AddUser(email, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[email] = password
}

// SetProfile sets the user returned by Profile.
func (m *AuthService) SetProfile(u *ports.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = u
}

// SetValidOTP changes the accepted OTP code.
func (m *AuthService) SetValidOTP(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validOTP = code
}

// Login implements ports.AuthService.
func (m *AuthService) Login(_ context.Context, email, password string) (ports.AccessToken, error) {
	if err := m.record("Login", email); err != nil {
		return ports.AccessToken{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if want, ok := m.users[email]; !ok || want != password {
		return ports.AccessToken{}, &ports.RemoteError{StatusCode: 401, Message: "Invalid email or password"}
	}
	return ports.AccessToken{Value: m.token}, nil
}

// Profile implements ports.AuthService.
func (m *AuthService) Profile(_ context.Context) (*ports.User, error) {
	if err := m.record("Profile"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return nil, ports.ErrUnauthorized
	}
	u := *m.profile
	return &u, nil
}

// ChangePassword implements ports.AuthService.
func (m *AuthService) ChangePassword(_ context.Context, req ports.ChangePasswordRequest) error {
	return m.record("ChangePassword", req)
}

// ForgotPassword implements ports.AuthService.
func (m *AuthService) ForgotPassword(_ context.Context, email string) error {
	return m.record("ForgotPassword", email)
}

// VerifyResetOTP implements ports.AuthService.
func (m *AuthService) VerifyResetOTP(_ context.Context, email, otp string) error {
	if err := m.record("VerifyResetOTP", email, otp); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if otp != m.validOTP {
		return &ports.RemoteError{StatusCode: 400, Message: "Invalid or expired code"}
	}
	return nil
}

// ResetPassword implements ports.AuthService.
func (m *AuthService) ResetPassword(_ context.Context, req ports.ResetPasswordRequest) error {
	return m.record("ResetPassword", req)
}

// Register implements ports.AuthService.
func (m *AuthService) Register(_ context.Context, req ports.RegistrationRequest) error {
	return m.record("Register", req)
}

// VerifyOTP implements ports.AuthService.
func (m *AuthService) VerifyOTP(_ context.Context, req ports.VerifyOTPRequest) (*ports.VerifyOTPResult, error) {
	if err := m.record("VerifyOTP", req); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if req.OTPCode != m.validOTP {
		return &ports.VerifyOTPResult{Success: false, Message: "The code is incorrect"}, nil
	}
	return &ports.VerifyOTPResult{Success: true, Message: "Account verified"}, nil
}

// Ensure AuthService implements ports.AuthService.
var _ ports.AuthService = (*AuthService)(nil)
