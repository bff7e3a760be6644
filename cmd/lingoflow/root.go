package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lingoflow/internal/adapters/logging"
	"github.com/felixgeelhaar/lingoflow/internal/app"
	"github.com/felixgeelhaar/lingoflow/internal/config"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

var (
	// Global flags
	cfgFile   string
	verbose   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "lingoflow",
	Short: "Sign up, recover your account and subscribe to a language course",
	Long: `Lingoflow walks learners through multi-step flows in the terminal:

  register   create an account (language, account, level, goal, e-mail code)
  recover    reset a forgotten password
  subscribe  pick a plan and pay for it

Every flow keeps a draft, so an interrupted session can be resumed with
--session. The same flows are offered to AI agents through "lingoflow mcp".`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: lingoflow.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// newApp builds the application for a command. Tests replace it to run
// commands against mocks.
var newApp = func(cmd *cobra.Command) (*app.Lingoflow, error) {
	cfg, err := config.NewLoader().Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	app.Version = version
	return app.Open(cfg, logger)
}

// newLogger builds the console logger from config and the global flags.
func newLogger(cfg *config.Config, out io.Writer) (ports.Logger, error) {
	format := cfg.Log.Format
	if logFormat != "" {
		format = logFormat
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, format, out)
	if err != nil {
		return nil, config.NewUserError(config.ErrCodeValidationFailed, "invalid logging options").
			WithContext("log").
			WithSuggestion(`Use --log-format text or json, and a level of debug, info, warn or error`).
			WithUnderlying(err)
	}
	return logger, nil
}

// withApp opens the application, runs fn and closes it again.
func withApp(cmd *cobra.Command, fn func(l *app.Lingoflow) error) error {
	l, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()
	return fn(l)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}

	var errList *config.ErrorList
	if errors.As(err, &errList) {
		if verbose {
			return errList.Detailed()
		}
		return errList.Error()
	}

	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}

	if errors.Is(err, ports.ErrNoToken) || errors.Is(err, ports.ErrUnauthorized) {
		msg := "you are not signed in\n\nSuggestion: run `lingoflow login`"
		if verbose {
			msg += fmt.Sprintf("\n\nTechnical details: %v", err)
		}
		return msg
	}

	msg := wizard.UserMessage(wizard.Classify(err))
	if verbose || msg == wizard.GenericFailureMessage {
		return err.Error()
	}
	return msg
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	// Complete --config with YAML and TOML files
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"text\tHuman readable lines",
			"json\tOne JSON object per line",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}
