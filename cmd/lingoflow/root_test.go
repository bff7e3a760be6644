package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lingoflow/internal/config"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

func TestRootCommand_UseLine(t *testing.T) {
	assert.Equal(t, "lingoflow", rootCmd.Use)
}

func TestRootCommand_HasPersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	t.Run("config flag exists", func(t *testing.T) {
		flag := flags.Lookup("config")
		require.NotNil(t, flag)
		assert.Empty(t, flag.DefValue)
	})

	t.Run("verbose flag exists", func(t *testing.T) {
		flag := flags.Lookup("verbose")
		require.NotNil(t, flag)
		assert.Equal(t, "false", flag.DefValue)
		assert.Equal(t, "v", flag.Shorthand)
	})

	t.Run("log-format flag exists", func(t *testing.T) {
		flag := flags.Lookup("log-format")
		require.NotNil(t, flag)
		assert.Empty(t, flag.DefValue)
	})
}

func TestRootCommand_HasAllSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	for _, exp := range []string{
		"drafts", "language", "login", "logout", "mcp", "password", "plans",
		"profile", "recover", "register", "sandbox", "subscribe", "version", "whoami",
	} {
		assert.Contains(t, names, exp, "root command should have %s subcommand", exp)
	}
}

func TestWizardCommands_HaveSessionFlag(t *testing.T) {
	for _, cmd := range []string{"register", "recover", "subscribe"} {
		t.Run(cmd, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{cmd})
			require.NoError(t, err)
			flag := c.Flags().Lookup("session")
			require.NotNil(t, flag)
			assert.Empty(t, flag.DefValue)
		})
	}
}

func TestVersionCommand_Output(t *testing.T) {
	originalVersion, originalCommit, originalBuildDate := version, commit, buildDate
	version, commit, buildDate = "1.0.0", "abc123", "2026-01-01"
	defer func() {
		version, commit, buildDate = originalVersion, originalCommit, originalBuildDate
	}()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs([]string{})

	require.NoError(t, rootCmd.Execute())

	output := out.String()
	assert.Contains(t, output, "lingoflow 1.0.0")
	assert.Contains(t, output, "commit: abc123")
	assert.Contains(t, output, "built:  2026-01-01")
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "user error with suggestion",
			err: config.NewUserError(config.ErrCodeValidationFailed, "nothing to update").
				WithSuggestion("Pass --first-name"),
			contains: []string{"nothing to update", "Suggestion: Pass --first-name"},
		},
		{
			name: "user error hides underlying unless verbose",
			err: config.NewUserError(config.ErrCodeValidationFailed, "cannot read avatar").
				WithContext("me.png").
				WithUnderlying(errors.New("permission denied")),
			contains: []string{"cannot read avatar (at me.png)"},
			excludes: []string{"permission denied"},
		},
		{
			name:    "user error shows underlying when verbose",
			verbose: true,
			err: config.NewUserError(config.ErrCodeValidationFailed, "cannot read avatar").
				WithUnderlying(errors.New("permission denied")),
			contains: []string{"Technical details: permission denied"},
		},
		{
			name:     "validation error lists fields",
			err:      &wizard.ValidationError{Step: "password", Fields: wizard.FieldErrors{"confirmPassword": "Passwords do not match"}},
			contains: []string{"confirmPassword: Passwords do not match"},
		},
		{
			name:     "missing token suggests login",
			err:      fmt.Errorf("load profile: %w", ports.ErrNoToken),
			contains: []string{"you are not signed in", "lingoflow login"},
			excludes: []string{"Technical details"},
		},
		{
			name:     "rejected token suggests login",
			err:      &ports.RemoteError{StatusCode: 401, Message: "expired"},
			contains: []string{"you are not signed in"},
		},
		{
			name:     "unclassified error is shown as is",
			err:      errors.New("boom"),
			contains: []string{"boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := verbose
			verbose = tt.verbose
			defer func() { verbose = original }()

			msg := formatError(tt.err)
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, msg, unwanted)
			}
		})
	}
}

func TestFormatError_ErrorList(t *testing.T) {
	var list config.ErrorList
	list.Add(config.NewUserError(config.ErrCodeValidationFailed, "bad level"))

	assert.Contains(t, formatError(&list), "bad level")
}

func TestPrintErrorTo(t *testing.T) {
	var buf bytes.Buffer
	printErrorTo(&buf, errors.New("boom"))

	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestNewLogger_RejectsUnknownFormat(t *testing.T) {
	original := logFormat
	logFormat = "xml"
	defer func() { logFormat = original }()

	_, err := newLogger(config.Default(t.TempDir()), &bytes.Buffer{})

	var userErr *config.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, config.ErrCodeValidationFailed, userErr.Code)
}
