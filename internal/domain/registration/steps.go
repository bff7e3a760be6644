package registration

import (
	"slices"
	"strconv"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
)

// Step ids.
const (
	StepLanguage wizard.StepID = "language"
	StepAccount  wizard.StepID = "account"
	StepLevel    wizard.StepID = "level"
	StepGoal     wizard.StepID = "goal"
	StepVerify   wizard.StepID = "verify"
)

// Proficiencies are the selectable proficiency levels.
var Proficiencies = []string{"beginner", "intermediate", "advanced"}

// DailyGoals are the allowed daily practice goals in minutes.
var DailyGoals = []int{5, 10, 15, 20, 30}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// LanguageData is the draft of the language step.
type LanguageData struct {
	SelectedLanguage string `json:"selectedLanguage"`
}

// Step implements wizard.StepData.
func (LanguageData) Step() wizard.StepID { return StepLanguage }

// With implements wizard.StepData.
func (d LanguageData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepLanguage, wizard.Fields{"selectedLanguage": &d.SelectedLanguage})
	return d, err
}

// AccountData is the draft of the account step.
type AccountData struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Step implements wizard.StepData.
func (AccountData) Step() wizard.StepID { return StepAccount }

// With implements wizard.StepData.
func (d AccountData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepAccount, wizard.Fields{
		"firstName":       &d.FirstName,
		"lastName":        &d.LastName,
		"email":           &d.Email,
		"password":        &d.Password,
		"confirmPassword": &d.ConfirmPassword,
	})
	return d, err
}

// LevelData is the draft of the level step.
type LevelData struct {
	Proficiency string `json:"proficiency"`
}

// Step implements wizard.StepData.
func (LevelData) Step() wizard.StepID { return StepLevel }

// With implements wizard.StepData.
func (d LevelData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepLevel, wizard.Fields{"proficiency": &d.Proficiency})
	return d, err
}

// GoalData is the draft of the daily goal step.
type GoalData struct {
	DailyGoalMinutes int `json:"dailyGoalMinutes"`
}

// Step implements wizard.StepData.
func (GoalData) Step() wizard.StepID { return StepGoal }

// With implements wizard.StepData.
func (d GoalData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepGoal, wizard.Fields{"dailyGoalMinutes": &d.DailyGoalMinutes})
	return d, err
}

// VerifyData is the draft of the verify step.
type VerifyData struct {
	OTP wizard.OTP `json:"otp"`
}

// Step implements wizard.StepData.
func (VerifyData) Step() wizard.StepID { return StepVerify }

// With implements wizard.StepData.
func (d VerifyData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepVerify, wizard.Fields{"otp": &d.OTP})
	return d, err
}

func validateLanguage(d LanguageData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	if !c.Required("selectedLanguage", d.SelectedLanguage, "Choose the language you want to learn") {
		return nil, c.Errors()
	}
	lang, ok := ResolveLanguage(d.SelectedLanguage)
	c.Check("selectedLanguage", ok, "This language is not available yet")
	return lang, c.Errors()
}

func validateAccount(d AccountData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	c.Required("firstName", d.FirstName, "First name is required")
	c.Required("lastName", d.LastName, "Last name is required")
	c.Email("email", d.Email)
	if c.Required("password", d.Password, "Password is required") {
		c.MinLength("password", d.Password, MinPasswordLength,
			"Password must be at least "+strconv.Itoa(MinPasswordLength)+" characters")
	}
	if c.Required("confirmPassword", d.ConfirmPassword, "Confirm your password") {
		c.Equal("confirmPassword", d.ConfirmPassword, d.Password, "Passwords do not match")
	}
	return d, c.Errors()
}

func validateLevel(d LevelData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	c.OneOf("proficiency", d.Proficiency, Proficiencies, "Choose your current level")
	return d, c.Errors()
}

func validateGoal(d GoalData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	c.Check("dailyGoalMinutes", slices.Contains(DailyGoals, d.DailyGoalMinutes), "Choose a daily goal")
	return d, c.Errors()
}

func validateVerify(d VerifyData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	code := wizard.ValidateOTP(c, "otp", d.OTP)
	return code, c.Errors()
}

func goalOptions() []string {
	out := make([]string, len(DailyGoals))
	for i, m := range DailyGoals {
		out[i] = strconv.Itoa(m)
	}
	return out
}
