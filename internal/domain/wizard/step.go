package wizard

import (
	"context"
	"encoding/json"
	"fmt"
)

// StepID identifies a step within a wizard.
type StepID string

// StepData is the draft of a single step. Every step has its own concrete
// type; the set of types of a wizard forms a tagged union keyed by Step().
type StepData interface {
	// Step returns the id of the step this data belongs to. It must not
	// depend on the receiver's field values.
	Step() StepID
	// With returns a copy of the data with the patch applied. Fields not
	// named in the patch keep their values.
	With(p Patch) (StepData, error)
}

// ValidateFunc validates a step's draft. It returns the validated value
// (for example the joined OTP code) or the complete set of field errors.
type ValidateFunc func(data StepData) (any, FieldErrors)

// EffectFunc runs after a step validated successfully and before the
// wizard moves on, e.g. "send the OTP e-mail". A returned patch is merged
// into the step being left.
type EffectFunc func(ctx context.Context, draft Draft) (Patch, error)

// Definition describes one step of a wizard.
type Definition struct {
	ID       StepID
	Default  func() StepData
	Validate ValidateFunc
	Guard    GuardFunc
	Effect   EffectFunc
	Terminal bool
	// Form describes the step's inputs for views.
	Form     []Field

	decode func(raw []byte) (StepData, error)
}

// Step builds a definition from the step's default value and a typed
// validator. A nil validator accepts any draft.
func Step[T StepData](initial T, validate func(T) (any, FieldErrors)) Definition {
	return Definition{
		ID:      initial.Step(),
		Default: func() StepData { return initial },
		Validate: func(data StepData) (any, FieldErrors) {
			typed, ok := data.(T)
			if !ok {
				return nil, FieldErrors{FieldStep: fmt.Sprintf("unexpected data %T for step %s", data, initial.Step())}
			}
			if validate == nil {
				return typed, nil
			}
			return validate(typed)
		},
		decode: func(raw []byte) (StepData, error) {
			v := initial
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Guarded returns the definition with a guard evaluated before entering it.
func (d Definition) Guarded(g GuardFunc) Definition {
	d.Guard = g
	return d
}

// WithEffect returns the definition with an effect run when leaving it.
func (d Definition) WithEffect(e EffectFunc) Definition {
	d.Effect = e
	return d
}

// WithForm returns the definition with the given input descriptions.
func (d Definition) WithForm(fields ...Field) Definition {
	d.Form = fields
	return d
}

// AsTerminal marks the definition as the step that triggers the wizard's
// final action.
func (d Definition) AsTerminal() Definition {
	d.Terminal = true
	return d
}

func (d Definition) validate(data StepData) (any, FieldErrors) {
	if d.Validate == nil {
		return data, nil
	}
	value, errs := d.Validate(data)
	if len(errs) == 0 {
		return value, nil
	}
	return nil, errs
}

func (d Definition) decodeData(raw []byte) (StepData, error) {
	if d.decode != nil {
		return d.decode(raw)
	}
	return nil, fmt.Errorf("step %s cannot be restored", d.ID)
}

// FieldKind tells a view how to render an input.
type FieldKind string

// Field kinds.
const (
	KindText   FieldKind = "text"
	KindEmail  FieldKind = "email"
	KindSecret FieldKind = "secret"
	KindChoice FieldKind = "choice"
	KindNumber FieldKind = "number"
	KindToggle FieldKind = "toggle"
	KindOTP    FieldKind = "otp"
)

// Field describes one input of a step. Name is the patch key.
type Field struct {
	Name    string
	Label   string
	Kind    FieldKind
	Options []string
	Hint    string
}

// Values returns a step's data keyed by field name, as it would appear in
// a JSON patch.
func Values(data StepData) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	values := map[string]any{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// Draft is a read-only view of every step's data at one point in time.
type Draft struct {
	steps map[StepID]StepData
}

// Step returns the data stored for id, or nil if the wizard has no such step.
func (d Draft) Step(id StepID) StepData {
	return d.steps[id]
}

// Steps returns the number of steps in the draft.
func (d Draft) Steps() int {
	return len(d.steps)
}

// Get returns the typed data for the step T belongs to, or T's zero value.
func Get[T StepData](d Draft) T {
	var zero T
	if v, ok := d.steps[zero.Step()].(T); ok {
		return v
	}
	return zero
}
