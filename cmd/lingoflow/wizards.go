package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lingoflow/internal/app"
	"github.com/felixgeelhaar/lingoflow/internal/domain/checkout"
	"github.com/felixgeelhaar/lingoflow/internal/domain/recovery"
	"github.com/felixgeelhaar/lingoflow/internal/domain/registration"
	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
	"github.com/felixgeelhaar/lingoflow/internal/tui"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a learner account",
	Long: `Register walks through four steps: the language to learn, your account
details, your current level and daily goal, and the code sent to your e-mail.

Your answers are saved as you go. If you quit, resume with --session.`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Reset a forgotten password",
	Long: `Recover asks for your e-mail, the reset code we send to it and a new
password.`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Choose a plan and pay for it",
	Long: `Subscribe shows the available plans, asks you to accept the terms and
collects your billing details. Billing requires a signed-in account; if you
are not signed in the flow stops, and you can resume it after
"lingoflow login" with --session.`,
	Args: cobra.NoArgs,
	RunE: runSubscribe,
}

var (
	registerSession  string
	recoverSession   string
	subscribeSession string
)

// runWizard runs the step view; tests replace it.
var runWizard = func(ctx context.Context, s wizardSession, opts tui.Options) (*tui.Result, error) {
	return s.run(ctx, opts)
}

// wizardSession is a started controller with its result type erased.
type wizardSession interface {
	run(ctx context.Context, opts tui.Options) (*tui.Result, error)
	sessionID() string
	describeResult() string
}

type controllerRun[R any] struct {
	c        *wizard.Controller[R]
	describe func(R) string
}

func (r controllerRun[R]) run(ctx context.Context, opts tui.Options) (*tui.Result, error) {
	return tui.RunWizard(ctx, r.c, opts)
}

func (r controllerRun[R]) sessionID() string { return r.c.SessionID() }

func (r controllerRun[R]) describeResult() string {
	res, ok := r.c.Result()
	if !ok {
		return ""
	}
	return r.describe(res)
}

func init() {
	rootCmd.AddCommand(registerCmd, recoverCmd, subscribeCmd)

	registerCmd.Flags().StringVar(&registerSession, "session", "", "resume a saved registration")
	recoverCmd.Flags().StringVar(&recoverSession, "session", "", "resume a saved password reset")
	subscribeCmd.Flags().StringVar(&subscribeSession, "session", "", "resume a saved checkout")
}

func runRegister(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		ctx := cmd.Context()
		c, resumed, err := l.Registration(ctx, app.SessionOptions{SessionID: registerSession})
		if err != nil {
			return err
		}
		defer c.Close()

		s := controllerRun[registration.Outcome]{c: c, describe: func(o registration.Outcome) string {
			msg := fmt.Sprintf("Welcome aboard! %s is verified.", o.Email)
			if o.Message != "" {
				msg += " " + o.Message
			}
			return msg + "\nSign in with `lingoflow login`."
		}}
		return runFlow(ctx, cmd, s, resumed, "register", tui.Options{Title: "Create your account"})
	})
}

func runRecover(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		ctx := cmd.Context()
		c, resumed, err := l.Recovery(ctx, app.SessionOptions{SessionID: recoverSession})
		if err != nil {
			return err
		}
		defer c.Close()

		s := controllerRun[recovery.Outcome]{c: c, describe: func(o recovery.Outcome) string {
			return fmt.Sprintf("Your password has been reset. Sign in as %s with `lingoflow login`.", o.Email)
		}}
		return runFlow(ctx, cmd, s, resumed, "recover", tui.Options{Title: "Reset your password"})
	})
}

func runSubscribe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		ctx := cmd.Context()
		c, resumed, err := l.Checkout(ctx, app.SessionOptions{SessionID: subscribeSession})
		if err != nil {
			return err
		}
		defer c.Close()

		catalog, err := l.Catalog(ctx)
		if err != nil {
			return err
		}
		s := controllerRun[checkout.Receipt]{c: c, describe: func(r checkout.Receipt) string {
			return describeReceipt(catalog, r)
		}}
		opts := tui.Options{Title: "Go premium", Describe: describeCheckoutStep(catalog)}
		return runFlow(ctx, cmd, s, resumed, "subscribe", opts)
	})
}

// runFlow runs the step view and reports how it ended.
func runFlow(ctx context.Context, cmd *cobra.Command, s wizardSession, resumed bool, command string, opts tui.Options) error {
	out := cmd.OutOrStdout()
	if resumed {
		_, _ = fmt.Fprintf(out, "Resuming session %s\n", s.sessionID())
	}

	res, err := runWizard(ctx, s, opts)
	if err != nil {
		return err
	}
	printOutcome(out, res, s.describeResult(), command)
	return nil
}

func printOutcome(out io.Writer, res *tui.Result, summary, command string) {
	switch {
	case res.Completed:
		if summary != "" {
			_, _ = fmt.Fprintln(out, summary)
		}
	case res.Redirect == wizard.RedirectLogin:
		_, _ = fmt.Fprintln(out, res.Reason)
		_, _ = fmt.Fprintf(out, "Run `lingoflow login`, then `lingoflow %s --session %s` to continue.\n", command, res.SessionID)
	case res.Cancelled:
		_, _ = fmt.Fprintf(out, "Draft saved. Resume with `lingoflow %s --session %s`.\n", command, res.SessionID)
	}
}

// describeCheckoutStep shows the plan list on the pricing step and the
// chosen plan on the later steps.
func describeCheckoutStep(catalog checkout.Catalog) func(wizard.StepID, wizard.Draft) string {
	return func(step wizard.StepID, d wizard.Draft) string {
		if step == checkout.StepPricing {
			lines := make([]string, 0, len(catalog.Plans()))
			for _, p := range catalog.Plans() {
				line := fmt.Sprintf("%-8s %s", p.ID, checkout.FormatPrice(p))
				if p.Description != "" {
					line += "  " + p.Description
				}
				lines = append(lines, line)
			}
			return strings.Join(lines, "\n")
		}
		plan, ok := catalog.Find(wizard.Get[checkout.PricingData](d).PlanID)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%s plan, %s", plan.Name, checkout.FormatPrice(plan))
	}
}

func describeReceipt(catalog checkout.Catalog, r checkout.Receipt) string {
	name := r.PlanID
	if p, ok := catalog.Find(r.PlanID); ok {
		name = p.Name
	}
	return fmt.Sprintf("Subscribed to the %s plan (%s). Subscription %s is %s.",
		name, formatAmount(r.AmountCents, r.Currency), r.SubscriptionID, r.Status)
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
