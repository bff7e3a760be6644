package testutil

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
)

// AssertFileMode asserts that a regular file exists at path with the
// given permission bits.
func AssertFileMode(t testing.TB, path string, perm os.FileMode) {
	t.Helper()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		assert.Fail(t, "file does not exist", "expected file to exist: %s", path)
		return
	}
	require.NoError(t, err)
	assert.False(t, info.IsDir(), "expected file but got directory: %s", path)
	assert.Equal(t, perm, info.Mode().Perm(), "unexpected permissions on %s", path)
}

// AssertFileContains asserts that a file contains the expected substring.
func AssertFileContains(t testing.TB, path, expected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	assert.Contains(t, string(content), expected, msgAndArgs...)
}

// AssertFileNotContains asserts that a file does not contain the substring.
// Draft tests use it to prove secrets never reach disk.
func AssertFileNotContains(t testing.TB, path, unexpected string, msgAndArgs ...interface{}) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)

	assert.NotContains(t, string(content), unexpected, msgAndArgs...)
}

// AssertYAMLEquals asserts that two YAML strings are semantically equal.
func AssertYAMLEquals(t testing.TB, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedMap, actualMap interface{}

	err := yaml.Unmarshal([]byte(expected), &expectedMap)
	require.NoError(t, err, "failed to parse expected YAML")

	err = yaml.Unmarshal([]byte(actual), &actualMap)
	require.NoError(t, err, "failed to parse actual YAML")

	assert.Equal(t, expectedMap, actualMap, msgAndArgs...)
}

// AssertFieldError asserts that err is a validation error of step whose
// message for field contains want.
func AssertFieldError(t testing.TB, err error, step wizard.StepID, field, want string) {
	t.Helper()

	var verr *wizard.ValidationError
	if !errors.As(err, &verr) {
		assert.Fail(t, "not a validation error", "got %v", err)
		return
	}
	assert.Equal(t, step, verr.Step)
	require.Contains(t, verr.Fields, field, "no error for field %s", field)
	assert.Contains(t, verr.Fields[field], want)
}
