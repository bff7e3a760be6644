package wizard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Patch is a partial update of one step: field name to new value.
type Patch map[string]any

// Fields maps a step's field names to pointers into a copy of its data.
// Supported targets are *string, *bool, *int, *[]string and *OTP.
type Fields map[string]any

// Apply writes every patched field into its target. Unknown fields and
// values of the wrong type are reported together as a ValidationError.
func (p Patch) Apply(step StepID, targets Fields) error {
	errs := FieldErrors{}
	for name, value := range p {
		target, ok := targets[name]
		if !ok {
			errs[name] = "unknown field"
			continue
		}
		if err := assign(target, value); err != nil {
			errs[name] = err.Error()
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Step: step, Fields: errs}
	}
	return nil
}

// Keys returns the patched field names in sorted order.
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func assign(target, value any) error {
	switch t := target.(type) {
	case *string:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected text, got %T", value)
		}
		*t = s
	case *bool:
		switch v := value.(type) {
		case bool:
			*t = v
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", v)
			}
			*t = b
		default:
			return fmt.Errorf("expected true or false, got %T", value)
		}
	case *int:
		switch v := value.(type) {
		case int:
			*t = v
		case int64:
			*t = int(v)
		case float64:
			if v != float64(int(v)) {
				return fmt.Errorf("expected a whole number, got %v", v)
			}
			*t = int(v)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("expected a whole number, got %q", v)
			}
			*t = n
		default:
			return fmt.Errorf("expected a whole number, got %T", value)
		}
	case *[]string:
		switch v := value.(type) {
		case []string:
			*t = append([]string(nil), v...)
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("expected a list of text, got %T", item)
				}
				out = append(out, s)
			}
			*t = out
		default:
			return fmt.Errorf("expected a list of text, got %T", value)
		}
	case *OTP:
		otp, err := toOTP(value)
		if err != nil {
			return err
		}
		*t = otp
	default:
		return fmt.Errorf("unsupported field type %T", target)
	}
	return nil
}
