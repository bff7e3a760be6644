package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lingoflow/internal/app"
	"github.com/felixgeelhaar/lingoflow/internal/config"
	"github.com/felixgeelhaar/lingoflow/internal/domain/registration"
	"github.com/felixgeelhaar/lingoflow/internal/ports"
	"github.com/felixgeelhaar/lingoflow/internal/tui"
)

// maxAvatarBytes limits avatar uploads.
const maxAvatarBytes = 5 << 20

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the access token",
	Long: `Login signs in with your e-mail and password. The password is asked for
interactively unless --password-stdin is given.

Examples:
  lingoflow login --email ana@example.com
  echo "$PASSWORD" | lingoflow login --email ana@example.com --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in learner",
	Args:  cobra.NoArgs,
	RunE:  runWhoAmI,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your learner profile",
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your name, language or avatar",
	Example: `  lingoflow profile update --first-name Ana --language es
  lingoflow profile update --avatar ~/me.png`,
	Args: cobra.NoArgs,
	RunE: runProfileUpdate,
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage your password",
}

var passwordChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Change your password",
	Long: `Change asks for your current password and the new one twice. Pass
--password-stdin to read the three values, one per line, from stdin.`,
	Args: cobra.NoArgs,
	RunE: runPasswordChange,
}

var languageCmd = &cobra.Command{
	Use:   "language",
	Short: "Show or set the interface language",
}

var languageGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the interface language",
	Args:  cobra.NoArgs,
	RunE:  runLanguageGet,
}

var languageSetCmd = &cobra.Command{
	Use:     "set <tag>",
	Short:   "Set the interface language (BCP 47 tag)",
	Example: "  lingoflow language set pt-BR",
	Args:    cobra.ExactArgs(1),
	RunE:    runLanguageSet,
}

var (
	loginEmail         string
	loginPasswordStdin bool

	profileFirstName string
	profileLastName  string
	profileLanguage  string
	profileAvatar    string

	passwordStdin bool
)

// promptSecret asks for a hidden value; tests replace it.
var promptSecret = func(ctx context.Context, cmd *cobra.Command, label string) (string, error) {
	return tui.Prompt(ctx, tui.PromptOptions{Label: label, Secret: true}, tui.Options{
		Input:  cmd.InOrStdin(),
		Output: cmd.OutOrStdout(),
	})
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, profileCmd, passwordCmd, languageCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	passwordCmd.AddCommand(passwordChangeCmd)
	languageCmd.AddCommand(languageGetCmd, languageSetCmd)

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account e-mail")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "read the password from stdin")
	_ = loginCmd.MarkFlagRequired("email")

	profileUpdateCmd.Flags().StringVar(&profileFirstName, "first-name", "", "first name")
	profileUpdateCmd.Flags().StringVar(&profileLastName, "last-name", "", "last name")
	profileUpdateCmd.Flags().StringVar(&profileLanguage, "language", "", "language you are learning (name or code, e.g. Spanish or es)")
	profileUpdateCmd.Flags().StringVar(&profileAvatar, "avatar", "", "path to an image to upload")
	_ = profileUpdateCmd.RegisterFlagCompletionFunc("language", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return registration.LanguageNames(), cobra.ShellCompDirectiveNoFileComp
	})

	passwordChangeCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read current, new and confirmation passwords from stdin")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var password string
	if loginPasswordStdin {
		lines, err := readLines(cmd.InOrStdin(), 1)
		if err != nil {
			return err
		}
		password = lines[0]
	} else {
		var err error
		if password, err = promptSecret(ctx, cmd, "Password for "+loginEmail); err != nil {
			return err
		}
	}

	return withApp(cmd, func(l *app.Lingoflow) error {
		u, err := l.Login(ctx, loginEmail, password)
		if errors.Is(err, ports.ErrUnauthorized) {
			return config.NewUserError(config.ErrCodeNotSignedIn, "e-mail or password is incorrect").
				WithSuggestion("Forgot your password? Run `lingoflow recover`").
				WithUnderlying(err)
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", displayName(u))
		return nil
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		if err := l.Logout(cmd.Context()); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	})
}

func runWhoAmI(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		u, err := l.WhoAmI(cmd.Context())
		if err != nil {
			return err
		}
		printUser(cmd.OutOrStdout(), u)
		return nil
	})
}

func runProfileUpdate(cmd *cobra.Command, _ []string) error {
	update := ports.ProfileUpdate{
		FirstName: strings.TrimSpace(profileFirstName),
		LastName:  strings.TrimSpace(profileLastName),
		Language:  strings.TrimSpace(profileLanguage),
	}
	if profileAvatar != "" {
		data, err := readAvatar(profileAvatar)
		if err != nil {
			return err
		}
		update.Avatar = data
		update.AvatarName = filepath.Base(profileAvatar)
	}
	if update.FirstName == "" && update.LastName == "" && update.Language == "" && update.Avatar == nil {
		return config.NewUserError(config.ErrCodeValidationFailed, "nothing to update").
			WithSuggestion("Pass at least one of --first-name, --last-name, --language or --avatar")
	}

	return withApp(cmd, func(l *app.Lingoflow) error {
		u, err := l.UpdateProfile(cmd.Context(), update)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Profile updated")
		printUser(cmd.OutOrStdout(), u)
		return nil
	})
}

func runPasswordChange(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var values []string
	if passwordStdin {
		lines, err := readLines(cmd.InOrStdin(), 3)
		if err != nil {
			return err
		}
		values = lines
	} else {
		for _, label := range []string{"Current password", "New password", "Confirm new password"} {
			v, err := promptSecret(ctx, cmd, label)
			if err != nil {
				return err
			}
			values = append(values, v)
		}
	}

	return withApp(cmd, func(l *app.Lingoflow) error {
		err := l.ChangePassword(ctx, ports.ChangePasswordRequest{
			CurrentPassword: values[0],
			NewPassword:     values[1],
			ConfirmPassword: values[2],
		})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
		return nil
	})
}

func runLanguageGet(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		lang, err := l.Language()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), lang)
		return nil
	})
}

func runLanguageSet(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		lang, err := l.SetLanguage(args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Interface language set to %s\n", lang)
		return nil
	})
}

// readLines reads n non-empty lines from r.
func readLines(r io.Reader, n int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	lines := make([]string, 0, n)
	for len(lines) < n && scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(lines) < n {
		return nil, config.NewUserError(config.ErrCodeValidationFailed,
			fmt.Sprintf("expected %d line(s) on stdin, got %d", n, len(lines)))
	}
	return lines, nil
}

func readAvatar(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, config.NewUserError(config.ErrCodeValidationFailed, "cannot read avatar").
			WithContext(path).
			WithUnderlying(err)
	}
	if info.Size() > maxAvatarBytes {
		return nil, config.NewUserError(config.ErrCodeValidationFailed, "avatar is larger than 5 MB").
			WithContext(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, config.NewUserError(config.ErrCodeValidationFailed, "cannot read avatar").
			WithContext(path).
			WithUnderlying(err)
	}
	return data, nil
}

func displayName(u *ports.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return fmt.Sprintf("%s <%s>", name, u.Email)
}

func printUser(w io.Writer, u *ports.User) {
	_, _ = fmt.Fprintf(w, "Name:     %s\n", strings.TrimSpace(u.FirstName+" "+u.LastName))
	_, _ = fmt.Fprintf(w, "E-mail:   %s\n", u.Email)
	if u.Language != "" {
		_, _ = fmt.Fprintf(w, "Learning: %s\n", u.Language)
	}
	if u.Level != "" {
		_, _ = fmt.Fprintf(w, "Level:    %s\n", u.Level)
	}
}
