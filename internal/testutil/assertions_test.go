package testutil

import (
	"testing"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
)

func TestFileAssertions(t *testing.T) {
	t.Parallel()

	path := WriteTempFile(t, t.TempDir(), "nested/draft.yaml", "session_id: abc\n")

	AssertFileMode(t, path, 0o600)
	AssertFileContains(t, path, "session_id: abc")
	AssertFileNotContains(t, path, "password")
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()

	path := WriteConfig(t, t.TempDir(), NewConfigBuilder().WithLanguage("de"))

	AssertFileContains(t, path, "language: de")
}

func TestAssertFieldError(t *testing.T) {
	t.Parallel()

	err := &wizard.ValidationError{
		Step:   "account",
		Fields: wizard.FieldErrors{"email": "Enter a valid e-mail address"},
	}

	AssertFieldError(t, err, "account", "email", "valid e-mail")
}
