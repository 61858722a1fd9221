package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"finances/internal/storage"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DataBackend != "sqlite" {
				return errors.New("migrate needs DATA_BACKEND=sqlite")
			}
			if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			a.logger.Info("Migrations applied", "db_path", a.cfg.SQLiteDBPath, "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d", version)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}
