// Package registration implements the sign-up wizard: learning language,
// account details, level, daily goal, then e-mail OTP verification.
package registration

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Name is the wizard name used for checkpoints.
const Name = "registration"

// Outcome is the result of a verified registration.
type Outcome struct {
	Email   string
	Message string
}

// Controller is a registration session.
type Controller = wizard.Controller[Outcome]

// Definitions returns the registration steps. Leaving the goal step
// registers the account, which sends the OTP e-mail.
func Definitions(auth ports.AuthService) []wizard.Definition {
	return []wizard.Definition{
		wizard.Step(LanguageData{}, validateLanguage).
			WithForm(wizard.Field{Name: "selectedLanguage", Label: "Language to learn", Kind: wizard.KindChoice, Options: LanguageNames()}),
		wizard.Step(AccountData{}, validateAccount).
			WithForm(
				wizard.Field{Name: "firstName", Label: "First name", Kind: wizard.KindText},
				wizard.Field{Name: "lastName", Label: "Last name", Kind: wizard.KindText},
				wizard.Field{Name: "email", Label: "Email", Kind: wizard.KindEmail},
				wizard.Field{Name: "password", Label: "Password", Kind: wizard.KindSecret, Hint: fmt.Sprintf("at least %d characters", MinPasswordLength)},
				wizard.Field{Name: "confirmPassword", Label: "Confirm password", Kind: wizard.KindSecret},
			),
		wizard.Step(LevelData{}, validateLevel).
			WithForm(wizard.Field{Name: "proficiency", Label: "Current level", Kind: wizard.KindChoice, Options: Proficiencies}),
		wizard.Step(GoalData{}, validateGoal).
			WithEffect(func(ctx context.Context, d wizard.Draft) (wizard.Patch, error) {
				return nil, auth.Register(ctx, Request(d))
			}).
			WithForm(wizard.Field{Name: "dailyGoalMinutes", Label: "Daily goal (minutes)", Kind: wizard.KindNumber, Options: goalOptions()}),
		wizard.Step(VerifyData{}, validateVerify).
			WithForm(wizard.Field{Name: "otp", Label: "Verification code", Kind: wizard.KindOTP, Hint: "sent to your e-mail"}).
			AsTerminal(),
	}
}

// New starts a registration session.
func New(auth ports.AuthService, opts ...wizard.Option) (*Controller, error) {
	return wizard.New(Name, Definitions(auth), verify(auth), opts...)
}

func verify(auth ports.AuthService) wizard.Action[Outcome] {
	return func(ctx context.Context, sub wizard.Submission) (Outcome, error) {
		req := Request(sub.Draft)
		result, err := auth.VerifyOTP(ctx, ports.VerifyOTPRequest{
			OTPCode: wizard.Get[VerifyData](sub.Draft).OTP.Code(),
			Data:    req,
		})
		if err != nil {
			return Outcome{}, err
		}
		if result == nil || !result.Success {
			msg := "The verification code is not valid"
			if result != nil && result.Message != "" {
				msg = result.Message
			}
			return Outcome{}, &wizard.DomainError{Message: msg}
		}
		return Outcome{Email: req.Email, Message: result.Message}, nil
	}
}

// Request builds the registration payload from the draft. The language is
// sent by display name.
func Request(d wizard.Draft) ports.RegistrationRequest {
	lang := wizard.Get[LanguageData](d)
	account := wizard.Get[AccountData](d)
	level := wizard.Get[LevelData](d)
	goal := wizard.Get[GoalData](d)

	selected := lang.SelectedLanguage
	if l, ok := ResolveLanguage(selected); ok {
		selected = l.Name
	}
	return ports.RegistrationRequest{
		SelectedLanguage: selected,
		FirstName:        account.FirstName,
		LastName:         account.LastName,
		Email:            account.Email,
		Password:         account.Password,
		ConfirmPassword:  account.ConfirmPassword,
		Proficiency:      level.Proficiency,
		DailyGoalMinutes: goal.DailyGoalMinutes,
	}
}

// ResendCode registers again with the current draft so the server sends a
// new OTP. It is only meaningful on the verify step.
func ResendCode(ctx context.Context, c *Controller, auth ports.AuthService) error {
	if c.CurrentStep() != StepVerify {
		return fmt.Errorf("cannot resend the code from step %s", c.CurrentStep())
	}
	if err := auth.Register(ctx, Request(c.Draft())); err != nil {
		return wizard.Classify(err)
	}
	return nil
}
