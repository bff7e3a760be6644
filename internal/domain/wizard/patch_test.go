package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatch_ApplyConversions(t *testing.T) {
	t.Parallel()

	var (
		text  string
		flag  bool
		count int
		tags  []string
		otp   OTP
	)
	targets := Fields{"text": &text, "flag": &flag, "count": &count, "tags": &tags, "otp": &otp}

	tests := []struct {
		name  string
		patch Patch
		check func(t *testing.T)
	}{
		{name: "string", patch: Patch{"text": "hi"}, check: func(t *testing.T) { assert.Equal(t, "hi", text) }},
		{name: "bool from text", patch: Patch{"flag": "true"}, check: func(t *testing.T) { assert.True(t, flag) }},
		{name: "int from json number", patch: Patch{"count": float64(15)}, check: func(t *testing.T) { assert.Equal(t, 15, count) }},
		{name: "int from text", patch: Patch{"count": " 20 "}, check: func(t *testing.T) { assert.Equal(t, 20, count) }},
		{name: "list from json", patch: Patch{"tags": []any{"a", "b"}}, check: func(t *testing.T) { assert.Equal(t, []string{"a", "b"}, tags) }},
		{name: "otp from boxes", patch: Patch{"otp": []any{"4", "2"}}, check: func(t *testing.T) { assert.Equal(t, "42", otp.Code()) }},
	}

	// Subtests share targets and therefore run sequentially.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.patch.Apply("s", targets))
			tt.check(t)
		})
	}
}

func TestPatch_ApplyCollectsErrors(t *testing.T) {
	t.Parallel()

	var (
		count int
		flag  bool
		otp   OTP
	)
	p := Patch{
		"count": 1.5,
		"flag":  "maybe",
		"otp":   []string{"1", "2", "3", "4", "5", "6", "7"},
		"other": "x",
	}

	err := p.Apply("s", Fields{"count": &count, "flag": &flag, "otp": &otp})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, StepID("s"), verr.Step)
	assert.Len(t, verr.Fields, 4)
	assert.Equal(t, "unknown field", verr.Fields["other"])
	assert.Equal(t, []string{"count", "flag", "other", "otp"}, p.Keys())
}

func TestPatch_ApplyRejectsLongOTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
	}{
		{name: "digits", value: "1234567"},
		{name: "multibyte", value: "١٢٣٤٥٦٧"},
		{name: "boxes", value: []any{"1", "2", "3", "4", "5", "6", "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			otp := ParseOTP("999999")
			err := Patch{"otp": tt.value}.Apply("verify", Fields{"otp": &otp})

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, "otp")
			assert.Equal(t, "999999", otp.Code())
		})
	}
}

func TestParseOTP(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OTP{"1", "2", "3", "", "", ""}, ParseOTP("123"))
	assert.Equal(t, "123456", ParseOTP("1234567").Code())
	assert.True(t, ParseOTP("000000").Filled())
	assert.False(t, ParseOTP("00000").Filled())
}
