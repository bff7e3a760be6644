package mcp

import (
	"fmt"

	"github.com/felixgeelhaar/lingoflow/internal/app"
	"github.com/felixgeelhaar/lingoflow/internal/validation"
)

// ValidateStartInput validates StartInput fields.
func ValidateStartInput(in *StartInput) error {
	if err := validation.ValidateWizardName(in.Wizard, app.Wizards()); err != nil {
		return fmt.Errorf("invalid wizard: %w", err)
	}
	if in.SessionID != "" {
		if err := validation.ValidateSessionID(in.SessionID); err != nil {
			return fmt.Errorf("invalid session_id: %w", err)
		}
	}
	return nil
}

// ValidateSessionInput validates SessionInput fields.
func ValidateSessionInput(in *SessionInput) error {
	if err := validation.ValidateSessionID(in.SessionID); err != nil {
		return fmt.Errorf("invalid session_id: %w", err)
	}
	return nil
}

// ValidateUpdateInput validates UpdateInput fields.
func ValidateUpdateInput(in *UpdateInput) error {
	if err := validation.ValidateSessionID(in.SessionID); err != nil {
		return fmt.Errorf("invalid session_id: %w", err)
	}
	if len(in.Values) == 0 {
		return fmt.Errorf("invalid values: %w", validation.ErrEmptyInput)
	}
	for name, v := range in.Values {
		if err := validation.ValidateFieldName(name); err != nil {
			return fmt.Errorf("invalid values: %w", err)
		}
		if err := validation.ValidateFieldValue(v); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}
	return nil
}

// ValidateStatusInput validates StatusInput fields.
func ValidateStatusInput(in *StatusInput) error {
	// SessionID is optional
	if in.SessionID == "" {
		return nil
	}
	if err := validation.ValidateSessionID(in.SessionID); err != nil {
		return fmt.Errorf("invalid session_id: %w", err)
	}
	return nil
}

// ValidateDraftsInput validates DraftsInput fields.
func ValidateDraftsInput(in *DraftsInput) error {
	if in.Wizard == "" {
		return nil
	}
	if err := validation.ValidateWizardName(in.Wizard, app.Wizards()); err != nil {
		return fmt.Errorf("invalid wizard: %w", err)
	}
	return nil
}

// ValidateDiscardInput validates DiscardInput fields.
func ValidateDiscardInput(in *DiscardInput) error {
	if err := validation.ValidateWizardName(in.Wizard, app.Wizards()); err != nil {
		return fmt.Errorf("invalid wizard: %w", err)
	}
	if err := validation.ValidateSessionID(in.SessionID); err != nil {
		return fmt.Errorf("invalid session_id: %w", err)
	}
	return nil
}
