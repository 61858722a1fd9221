package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"finances/internal/config"
	"finances/internal/log"
)

// app is what every command receives once the root has bootstrapped.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

// bootstrap loads the env file, the configuration and the logger. Logs go
// to the command's stderr so they never mix with command output.
func bootstrap(cmd *cobra.Command, a *app) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := LoadEnvFile(envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.WithComponent(log.ComponentCLI)
	return nil
}

// NewRootCommand builds the finances command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "finances",
		Short: "Household ledger: transactions, balance and monthly budget",
		Long: `finances keeps a household ledger in SQLite, serves it as a web app and
a JSON API, and publishes every write so a worker can mirror the ledger into
a Google Sheet.

Configuration comes from the environment (see .env), optionally from the
settings file named by FINANCES_SETTINGS.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap(cmd, a)
		},
	}
	root.PersistentFlags().String("env-file", "", "Path to an env file (default ./.env when present)")

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newBalanceCommand(a),
		newTagsCommand(a),
	)
	return root
}

// NewWorkerCommand builds the mirror worker binary's command.
func NewWorkerCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "finances-worker",
		Short:        "Mirror ledger events into a Google Sheet",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap(cmd, a)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), a)
		},
	}
	cmd.PersistentFlags().String("env-file", "", "Path to an env file (default ./.env when present)")
	return cmd
}
