package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"finances/internal/backend"
	"finances/internal/config"
	apphttp "finances/internal/http"
	"finances/internal/log"
	"finances/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web app and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a)
		},
	}
}

// appServices bundles the application layer over an open backend.
type appServices struct {
	ledger    *services.LedgerService
	dashboard *services.DashboardService
	cleanup   backend.CleanupFunc
}

// openServices loads the household document, opens the configured backend
// and wires the services over it.
func openServices(ctx context.Context, a *app) (*appServices, error) {
	household, err := config.LoadHousehold(a.cfg.HouseholdFile)
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(a.logger).Create(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	ledgerSvc := services.NewLedgerService(res.Store, household, res.Publisher, a.logger)
	return &appServices{
		ledger:    ledgerSvc,
		dashboard: services.NewDashboardService(ledgerSvc, res.Store, a.cfg.RollingWindow, a.logger),
		cleanup:   res.Cleanup,
	}, nil
}

func runServe(ctx context.Context, a *app) error {
	svc, err := openServices(ctx, a)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.cleanup(); err != nil {
			a.logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + a.cfg.Port,
		Ledger:             svc.ledger,
		Dashboard:          svc.dashboard,
		Logger:             a.logger,
		PageSize:           a.cfg.PageSize,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		TrustedProxies:     a.cfg.TrustedProxies,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting finances server",
			"port", a.cfg.Port,
			"backend", a.cfg.DataBackend,
			log.FieldOperation, log.OpStartup)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown error", log.FieldError, err.Error(), log.FieldOperation, log.OpShutdown)
		return err
	}
	a.logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
	return nil
}
