// Package recovery implements the forgot-password wizard: request a code by
// e-mail, verify it, then choose a new password.
package recovery

import (
	"context"
	"strconv"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Name is the wizard name used for checkpoints.
const Name = "recovery"

// Step ids.
const (
	StepEmail    wizard.StepID = "email"
	StepOTP      wizard.StepID = "otp"
	StepPassword wizard.StepID = "password"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Outcome is the result of a completed reset.
type Outcome struct {
	Email string
}

// Controller is a recovery session.
type Controller = wizard.Controller[Outcome]

// EmailData is the draft of the email step.
type EmailData struct {
	Email string `json:"email"`
}

// Step implements wizard.StepData.
func (EmailData) Step() wizard.StepID { return StepEmail }

// With implements wizard.StepData.
func (d EmailData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepEmail, wizard.Fields{"email": &d.Email})
	return d, err
}

// OTPData is the draft of the otp step. Verified is set once the server
// accepted the code.
type OTPData struct {
	OTP      wizard.OTP `json:"otp"`
	Verified bool       `json:"verified"`
}

// Step implements wizard.StepData.
func (OTPData) Step() wizard.StepID { return StepOTP }

// With implements wizard.StepData.
func (d OTPData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepOTP, wizard.Fields{"otp": &d.OTP, "verified": &d.Verified})
	return d, err
}

// PasswordData is the draft of the password step.
type PasswordData struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Step implements wizard.StepData.
func (PasswordData) Step() wizard.StepID { return StepPassword }

// With implements wizard.StepData.
func (d PasswordData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepPassword, wizard.Fields{
		"newPassword":     &d.NewPassword,
		"confirmPassword": &d.ConfirmPassword,
	})
	return d, err
}

// Definitions returns the recovery steps.
func Definitions(auth ports.AuthService) []wizard.Definition {
	return []wizard.Definition{
		wizard.Step(EmailData{}, validateEmail).
			WithEffect(func(ctx context.Context, d wizard.Draft) (wizard.Patch, error) {
				return nil, auth.ForgotPassword(ctx, wizard.Get[EmailData](d).Email)
			}).
			WithForm(wizard.Field{Name: "email", Label: "Email", Kind: wizard.KindEmail}),
		wizard.Step(OTPData{}, validateOTP).
			WithEffect(func(ctx context.Context, d wizard.Draft) (wizard.Patch, error) {
				email := wizard.Get[EmailData](d).Email
				code := wizard.Get[OTPData](d).OTP.Code()
				if err := auth.VerifyResetOTP(ctx, email, code); err != nil {
					return nil, err
				}
				return wizard.Patch{"verified": true}, nil
			}).
			WithForm(wizard.Field{Name: "otp", Label: "Reset code", Kind: wizard.KindOTP, Hint: "sent to your e-mail"}),
		wizard.Step(PasswordData{}, validatePassword).
			WithForm(
				wizard.Field{Name: "newPassword", Label: "New password", Kind: wizard.KindSecret},
				wizard.Field{Name: "confirmPassword", Label: "Confirm password", Kind: wizard.KindSecret},
			).
			AsTerminal(),
	}
}

// New starts a recovery session.
func New(auth ports.AuthService, opts ...wizard.Option) (*Controller, error) {
	return wizard.New(Name, Definitions(auth), reset(auth), opts...)
}

func reset(auth ports.AuthService) wizard.Action[Outcome] {
	return func(ctx context.Context, sub wizard.Submission) (Outcome, error) {
		email := wizard.Get[EmailData](sub.Draft).Email
		if !wizard.Get[OTPData](sub.Draft).Verified {
			return Outcome{}, &wizard.DomainError{Message: "Verify the reset code first"}
		}
		pw := wizard.Get[PasswordData](sub.Draft)
		err := auth.ResetPassword(ctx, ports.ResetPasswordRequest{
			Email:           email,
			NewPassword:     pw.NewPassword,
			ConfirmPassword: pw.ConfirmPassword,
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Email: email}, nil
	}
}

func validateEmail(d EmailData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	c.Email("email", d.Email)
	return d.Email, c.Errors()
}

func validateOTP(d OTPData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	code := wizard.ValidateOTP(c, "otp", d.OTP)
	return code, c.Errors()
}

func validatePassword(d PasswordData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	if c.Required("newPassword", d.NewPassword, "Password is required") {
		c.MinLength("newPassword", d.NewPassword, MinPasswordLength,
			"Password must be at least "+strconv.Itoa(MinPasswordLength)+" characters")
	}
	if c.Required("confirmPassword", d.ConfirmPassword, "Confirm your password") {
		c.Equal("confirmPassword", d.ConfirmPassword, d.NewPassword, "Passwords do not match")
	}
	return d, c.Errors()
}
