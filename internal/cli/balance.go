package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finances/internal/core"
	"finances/internal/services"
)

func newBalanceCommand(a *app) *cobra.Command {
	var (
		grouping string
		window   int
	)
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the running balance and its rolling average",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := core.ParseGrouping(grouping)
			if err != nil {
				return err
			}
			if window < 0 {
				return fmt.Errorf("invalid window %d", window)
			}
			svc, err := openServices(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer svc.cleanup()

			view, err := svc.dashboard.Balance(cmd.Context(), g, window)
			if err != nil {
				return err
			}
			return printBalance(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().StringVar(&grouping, "grouping", "Day", "Period grouping: Day or Month")
	cmd.Flags().IntVar(&window, "window", 0, "Rolling average window in periods (0 uses ROLLING_WINDOW)")
	return cmd
}

// printBalance writes one line per period. The rolling column starts once
// a full window is available.
func printBalance(w io.Writer, view services.BalanceView) error {
	if len(view.Flows) == 0 {
		_, err := fmt.Fprintln(w, "no transactions")
		return err
	}

	skip := len(view.Flows)
	if view.Rolling != nil {
		skip = len(view.Flows) - view.Rolling.Len()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\tIN\tOUT\tNET\tBALANCE\tROLLING(%d)\t\n", view.Grouping, view.Window)
	for i, f := range view.Flows {
		rolling := "-"
		if i >= skip {
			rolling = core.FormatAmount(view.Rolling.Values[i-skip])
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			f.Label,
			core.FormatAmount(f.Incoming),
			core.FormatAmount(f.Outgoing),
			core.FormatAmount(f.Net),
			core.FormatAmount(view.Cumulative.Values[i]),
			rolling)
	}
	return tw.Flush()
}
