package ports

import "context"

// User is the learner profile returned by the remote API.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Language  string `json:"selectedLanguage,omitempty"`
	Level     string `json:"proficiency,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// AccessToken is the bearer credential issued by Login.
type AccessToken struct {
	Value string `json:"accessToken"`
}

// ChangePasswordRequest changes the password of the signed-in user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPasswordRequest completes a forgot-password flow.
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// RegistrationRequest carries the account data collected before OTP
// verification. Submitting it triggers the OTP e-mail.
type RegistrationRequest struct {
	SelectedLanguage string `json:"selectedLanguage"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	ConfirmPassword  string `json:"confirmPassword"`
	Proficiency      string `json:"proficiency,omitempty"`
	DailyGoalMinutes int    `json:"dailyGoalMinutes,omitempty"`
}

// VerifyOTPRequest confirms a registration with the code from the e-mail.
type VerifyOTPRequest struct {
	OTPCode string              `json:"otpCode"`
	Data    RegistrationRequest `json:"data"`
}

// VerifyOTPResult is the server's verdict on a registration OTP.
type VerifyOTPResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AuthService is the remote authentication collaborator.
type AuthService interface {
	Login(ctx context.Context, email, password string) (AccessToken, error)
	Profile(ctx context.Context) (*User, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	Register(ctx context.Context, req RegistrationRequest) error
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*VerifyOTPResult, error)
}
