// Package testutil provides test helpers and fixtures for lingoflow tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTempFile writes content to a file in the specified directory.
func WriteTempFile(t testing.TB, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create directory for %s", filename)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return path
}

// WriteConfig writes a lingoflow.yaml built by b into dir.
func WriteConfig(t testing.TB, dir string, b *ConfigBuilder) string {
	t.Helper()
	return WriteTempFile(t, dir, "lingoflow.yaml", b.ToYAML(t))
}
