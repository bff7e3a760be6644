package wizard

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// OTPLength is the number of boxes in a one-time password input.
const OTPLength = 6

// OTP holds one character per input box. Empty boxes are "".
type OTP [OTPLength]string

// ParseOTP splits a code into boxes. Extra characters are dropped; patches
// carrying a longer code are rejected before they get here.
func ParseOTP(code string) OTP {
	var otp OTP
	i := 0
	for _, r := range code {
		if i == OTPLength {
			break
		}
		otp[i] = string(r)
		i++
	}
	return otp
}

// Code joins the boxes into a single string.
func (o OTP) Code() string {
	return strings.Join(o[:], "")
}

// Filled reports whether every box holds exactly one character.
func (o OTP) Filled() bool {
	for _, box := range o {
		if len([]rune(box)) != 1 {
			return false
		}
	}
	return true
}

func toOTP(value any) (OTP, error) {
	switch v := value.(type) {
	case OTP:
		return v, nil
	case string:
		if n := utf8.RuneCountInString(v); n > OTPLength {
			return OTP{}, fmt.Errorf("expected at most %d digits, got %d", OTPLength, n)
		}
		return ParseOTP(v), nil
	case []string:
		return otpFromBoxes(v)
	case []any:
		boxes := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return OTP{}, fmt.Errorf("expected digits, got %T", item)
			}
			boxes = append(boxes, s)
		}
		return otpFromBoxes(boxes)
	default:
		return OTP{}, fmt.Errorf("expected a code, got %T", value)
	}
}

func otpFromBoxes(boxes []string) (OTP, error) {
	if len(boxes) > OTPLength {
		return OTP{}, fmt.Errorf("expected at most %d boxes, got %d", OTPLength, len(boxes))
	}
	var otp OTP
	copy(otp[:], boxes)
	return otp, nil
}
