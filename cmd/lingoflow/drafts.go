package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lingoflow/internal/app"
	"github.com/felixgeelhaar/lingoflow/internal/config"
	"github.com/felixgeelhaar/lingoflow/internal/domain/checkout"
	"github.com/felixgeelhaar/lingoflow/internal/domain/recovery"
	"github.com/felixgeelhaar/lingoflow/internal/domain/registration"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/validation"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage saved wizard sessions",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runDraftsList,
}

var draftsDiscardCmd = &cobra.Command{
	Use:     "discard <wizard> <session>",
	Short:   "Delete a saved session",
	Example: "  lingoflow drafts discard checkout 3f2b8c1e-9d4a-4c8e-9a53-2f0f7c1d6b10",
	Args:    cobra.ExactArgs(2),
	RunE:    runDraftsDiscard,
}

var draftsWizard string

func init() {
	rootCmd.AddCommand(draftsCmd)
	draftsCmd.AddCommand(draftsListCmd, draftsDiscardCmd)

	draftsListCmd.Flags().StringVarP(&draftsWizard, "wizard", "w", "", "only list sessions of this wizard")
	_ = draftsListCmd.RegisterFlagCompletionFunc("wizard", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return app.Wizards(), cobra.ShellCompDirectiveNoFileComp
	})
}

// commandFor maps a wizard name to the command that resumes it.
func commandFor(wizardName string) string {
	switch wizardName {
	case registration.Name:
		return "register"
	case recovery.Name:
		return "recover"
	case checkout.Name:
		return "subscribe"
	default:
		return wizardName
	}
}

func runDraftsList(cmd *cobra.Command, _ []string) error {
	if draftsWizard != "" {
		if err := validation.ValidateWizardName(draftsWizard, app.Wizards()); err != nil {
			return invalidArgument("wizard", err)
		}
	}

	return withApp(cmd, func(l *app.Lingoflow) error {
		snaps, err := l.Drafts(cmd.Context(), draftsWizard)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(snaps) == 0 {
			_, _ = fmt.Fprintln(out, "No saved sessions")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "WIZARD\tSESSION\tSTEP\tUPDATED\tRESUME WITH")
		for _, s := range snaps {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\tlingoflow %s --session %s\n",
				s.Wizard, s.SessionID, s.Current+1, s.UpdatedAt.Local().Format(time.DateTime),
				commandFor(s.Wizard), s.SessionID)
		}
		return w.Flush()
	})
}

func runDraftsDiscard(cmd *cobra.Command, args []string) error {
	wizardName, sessionID := args[0], args[1]
	if err := validation.ValidateWizardName(wizardName, app.Wizards()); err != nil {
		return invalidArgument("wizard", err)
	}
	if err := validation.ValidateSessionID(sessionID); err != nil {
		return invalidArgument("session", err)
	}

	return withApp(cmd, func(l *app.Lingoflow) error {
		err := l.DiscardDraft(cmd.Context(), wizardName, sessionID)
		if errors.Is(err, wizard.ErrSnapshotNotFound) {
			return config.NewUserError(config.ErrCodeValidationFailed, "no saved session "+sessionID).
				WithSuggestion("Run `lingoflow drafts list` to see saved sessions").
				WithUnderlying(err)
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Discarded %s session %s\n", wizardName, sessionID)
		return nil
	})
}

func invalidArgument(name string, err error) error {
	return config.NewUserError(config.ErrCodeValidationFailed, fmt.Sprintf("invalid %s", name)).
		WithSuggestion(err.Error()).
		WithUnderlying(err)
}
