package checkout

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Step ids.
const (
	StepPricing wizard.StepID = "pricing"
	StepConfirm wizard.StepID = "confirm"
	StepBilling wizard.StepID = "billing"
)

// PricingData is the draft of the pricing step.
type PricingData struct {
	PlanID string `json:"planId"`
}

// Step implements wizard.StepData.
func (PricingData) Step() wizard.StepID { return StepPricing }

// With implements wizard.StepData.
func (d PricingData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepPricing, wizard.Fields{"planId": &d.PlanID})
	return d, err
}

// ConfirmData is the draft of the confirm step.
type ConfirmData struct {
	AcceptTerms bool `json:"acceptTerms"`
}

// Step implements wizard.StepData.
func (ConfirmData) Step() wizard.StepID { return StepConfirm }

// With implements wizard.StepData.
func (d ConfirmData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepConfirm, wizard.Fields{"acceptTerms": &d.AcceptTerms})
	return d, err
}

// BillingData is the draft of the billing step.
type BillingData struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Step implements wizard.StepData.
func (BillingData) Step() wizard.StepID { return StepBilling }

// With implements wizard.StepData.
func (d BillingData) With(p wizard.Patch) (wizard.StepData, error) {
	err := p.Apply(StepBilling, wizard.Fields{
		"name":       &d.Name,
		"email":      &d.Email,
		"line1":      &d.Line1,
		"city":       &d.City,
		"postalCode": &d.PostalCode,
		"country":    &d.Country,
	})
	return d, err
}

// Details converts the draft into the payment collaborator's format. The
// country is normalized to its upper-case ISO code.
func (d BillingData) Details() ports.BillingDetails {
	return ports.BillingDetails{
		Name:       strings.TrimSpace(d.Name),
		Email:      strings.TrimSpace(d.Email),
		Line1:      strings.TrimSpace(d.Line1),
		City:       strings.TrimSpace(d.City),
		PostalCode: strings.TrimSpace(d.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(d.Country)),
	}
}

func validatePricing(catalog Catalog) func(PricingData) (any, wizard.FieldErrors) {
	return func(d PricingData) (any, wizard.FieldErrors) {
		c := wizard.NewChecker()
		if !c.Required("planId", d.PlanID, "Choose a plan") {
			return nil, c.Errors()
		}
		plan, ok := catalog.Find(d.PlanID)
		c.Check("planId", ok, "This plan is no longer available")
		return plan, c.Errors()
	}
}

func validateConfirm(d ConfirmData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	c.Check("acceptTerms", d.AcceptTerms, "Accept the terms to continue")
	return d, c.Errors()
}

func validateBilling(d BillingData) (any, wizard.FieldErrors) {
	c := wizard.NewChecker()
	c.Required("name", d.Name, "Name on the card is required")
	c.Email("email", strings.TrimSpace(d.Email))
	c.Required("line1", d.Line1, "Address is required")
	c.Required("city", d.City, "City is required")
	c.Required("postalCode", d.PostalCode, "Postal code is required")
	if c.Required("country", d.Country, "Country is required") {
		c.Check("country", isCountry(d.Country), "Enter a two-letter country code, e.g. DE")
	}
	return d.Details(), c.Errors()
}

func isCountry(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return false
	}
	region, err := language.ParseRegion(code)
	return err == nil && region.IsCountry()
}
