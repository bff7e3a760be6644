// Package validation checks identifiers and values that arrive from outside
// the process (MCP tool calls, command flags) before they reach a wizard or
// the draft store.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Common validation errors.
var (
	ErrEmptyInput        = errors.New("input cannot be empty")
	ErrInvalidSessionID  = errors.New("invalid session id")
	ErrInvalidWizardName = errors.New("invalid wizard name")
	ErrInvalidFieldName  = errors.New("invalid field name")
	ErrInvalidFieldValue = errors.New("invalid field value")
	ErrPathTraversal     = errors.New("path traversal detected")
	ErrControlCharacters = errors.New("control characters are not allowed")
	ErrUnknownWizard     = errors.New("unknown wizard")
)

// Limits on untrusted input.
const (
	MaxSessionIDLength  = 64
	MaxFieldValueLength = 1024
	MaxFieldValues      = 32
)

var (
	// sessionIDRegex matches uuids and short user-chosen names.
	// Examples: "3f2b8c1e-9d4a-4c8e-9a53-2f0f7c1d6b10", "demo_1"
	sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

	// identifierRegex matches wizard names and field names.
	// Examples: "checkout", "selectedLanguage", "dailyGoalMinutes"
	identifierRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

	// controlCharRegex matches ASCII control characters other than tab.
	controlCharRegex = regexp.MustCompile(`[\x00-\x08\x0a-\x1f\x7f]`)
)

// ValidateSessionID validates a wizard session id. The id is used as a
// file name by the draft store, so separators and dots are rejected.
func ValidateSessionID(id string) error {
	if id == "" {
		return ErrEmptyInput
	}
	if len(id) > MaxSessionIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidSessionID, MaxSessionIDLength)
	}
	if containsPathTraversal(id) {
		return fmt.Errorf("%w: %q", ErrPathTraversal, id)
	}
	if !sessionIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidSessionID, id)
	}
	return nil
}

// ValidateWizardName validates name and checks it is one of known.
func ValidateWizardName(name string, known []string) error {
	if name == "" {
		return ErrEmptyInput
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidWizardName, name)
	}
	for _, k := range known {
		if k == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (choose one of %s)", ErrUnknownWizard, name, strings.Join(known, ", "))
}

// ValidateFieldName validates the key of a draft patch.
func ValidateFieldName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidFieldName, name)
	}
	return nil
}

// ValidateFieldValue validates a JSON-decoded patch value. Strings and
// string lists are checked for length and control characters; numbers and
// booleans always pass.
func ValidateFieldValue(v any) error {
	switch val := v.(type) {
	case nil, bool, float64, int:
		return nil
	case string:
		return validateText(val)
	case []any:
		if len(val) > MaxFieldValues {
			return fmt.Errorf("%w: more than %d items", ErrInvalidFieldValue, MaxFieldValues)
		}
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("%w: list items must be strings", ErrInvalidFieldValue)
			}
			if err := validateText(s); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidFieldValue, v)
	}
}

func validateText(s string) error {
	if utf8.RuneCountInString(s) > MaxFieldValueLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidFieldValue, MaxFieldValueLength)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidFieldValue)
	}
	if controlCharRegex.MatchString(s) {
		return ErrControlCharacters
	}
	return nil
}

// containsPathTraversal checks for common path traversal patterns.
func containsPathTraversal(s string) bool {
	if strings.Contains(s, "..") || strings.ContainsAny(s, `/\`) {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%2f")
}
