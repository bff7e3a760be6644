package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lingoflow/internal/app"
	"github.com/felixgeelhaar/lingoflow/internal/domain/checkout"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List subscription plans",
	Args:  cobra.NoArgs,
	RunE:  runPlans,
}

var plansVerbose bool

func init() {
	rootCmd.AddCommand(plansCmd)

	plansCmd.Flags().BoolVar(&plansVerbose, "features", false, "list the features of each plan")
}

func runPlans(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(l *app.Lingoflow) error {
		catalog, err := l.Catalog(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tPLAN\tPRICE\tDESCRIPTION")
		for _, p := range catalog.Plans() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, checkout.FormatPrice(p), p.Description)
			if plansVerbose && len(p.Features) > 0 {
				_, _ = fmt.Fprintf(w, "\t\t\t%s\n", strings.Join(p.Features, ", "))
			}
		}
		return w.Flush()
	})
}
