package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"finances/internal/config"
)

func newTagsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect the tag hierarchy of the household file",
	}

	verify := &cobra.Command{
		Use:   "verify L1 L2 L3",
		Short: "Check that a tag triple exists",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			household, err := config.LoadHousehold(a.cfg.HouseholdFile)
			if err != nil {
				return err
			}
			tags := household.Taxonomy()
			if tags.Verify(args[0], args[1], args[2]) {
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %s / %s / %s\n", args[0], args[1], args[2])
				return nil
			}
			if s, ok := tags.Suggest(args[0], args[1], args[2]); ok {
				return fmt.Errorf("unknown tags %s / %s / %s, did you mean %s / %s / %s?",
					args[0], args[1], args[2], s.L1, s.L2, s.L3)
			}
			return fmt.Errorf("unknown tags %s / %s / %s", args[0], args[1], args[2])
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every valid tag triple",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			household, err := config.LoadHousehold(a.cfg.HouseholdFile)
			if err != nil {
				return err
			}
			for _, t := range household.Taxonomy().Triples() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s / %s / %s\n", t.L1, t.L2, t.L3)
			}
			return nil
		},
	}

	cmd.AddCommand(verify, list)
	return cmd
}
