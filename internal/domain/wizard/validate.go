package wizard

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldStep is the key used for errors that concern the step as a whole.
const FieldStep = "_step"

// FieldErrors maps a field name to a user-facing message.
type FieldErrors map[string]string

// digitsRegex matches ASCII digits only.
var digitsRegex = regexp.MustCompile(`^[0-9]+$`)

// Checker collects field errors without stopping at the first one. The
// first message recorded for a field wins.
type Checker struct {
	errs FieldErrors
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{errs: FieldErrors{}}
}

// Add records msg for field unless the field already has an error.
func (c *Checker) Add(field, msg string) {
	if _, exists := c.errs[field]; exists {
		return
	}
	c.errs[field] = msg
}

// Check records msg when ok is false and reports ok.
func (c *Checker) Check(field string, ok bool, msg string) bool {
	if !ok {
		c.Add(field, msg)
	}
	return ok
}

// Required fails on empty or whitespace-only values.
func (c *Checker) Required(field, value, msg string) bool {
	return c.Check(field, strings.TrimSpace(value) != "", msg)
}

// Email fails when value is not a bare e-mail address.
func (c *Checker) Email(field, value string) bool {
	if !c.Required(field, value, "Email is required") {
		return false
	}
	addr, err := mail.ParseAddress(value)
	return c.Check(field, err == nil && addr.Address == strings.TrimSpace(value) && strings.Contains(addr.Address, "."), "Enter a valid email address")
}

// MinLength fails when value has fewer than n characters.
func (c *Checker) MinLength(field, value string, n int, msg string) bool {
	return c.Check(field, utf8.RuneCountInString(value) >= n, msg)
}

// Equal fails when got differs from want.
func (c *Checker) Equal(field, got, want, msg string) bool {
	return c.Check(field, got == want, msg)
}

// OneOf fails when value is not among options.
func (c *Checker) OneOf(field, value string, options []string, msg string) bool {
	for _, o := range options {
		if value == o {
			return true
		}
	}
	c.Add(field, msg)
	return false
}

// Digits fails unless value is exactly n ASCII digits.
func (c *Checker) Digits(field, value string, n int, msg string) bool {
	return c.Check(field, len(value) == n && digitsRegex.MatchString(value), msg)
}

// Has reports whether field already has an error.
func (c *Checker) Has(field string) bool {
	_, ok := c.errs[field]
	return ok
}

// Errors returns the collected errors, or nil when there are none.
func (c *Checker) Errors() FieldErrors {
	if len(c.errs) == 0 {
		return nil
	}
	out := make(FieldErrors, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

// ValidateOTP checks that every box is filled and the code is numeric and
// returns the joined code.
func ValidateOTP(c *Checker, field string, otp OTP) string {
	code := otp.Code()
	if !otp.Filled() {
		c.Add(field, "Enter all 6 digits of the code")
		return code
	}
	c.Digits(field, code, OTPLength, "The code must contain digits only")
	return code
}
