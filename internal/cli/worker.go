package cli

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"finances/internal/amqp"
	"finances/internal/log"
	"finances/internal/sheets"
	gsheet "finances/internal/sheets/google"
	"finances/internal/sheets/memory"
	"finances/internal/storage"
	"finances/internal/worker"
)

// newMirror returns the Google Sheets client, or an in-process mirror when
// no spreadsheet is configured so the worker still drains pending rows.
func newMirror(ctx context.Context, a *app) (sheets.LedgerMirror, error) {
	if a.cfg.GoogleSpreadsheetID == "" {
		a.logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
		return memory.New(), nil
	}
	if err := a.cfg.ValidateMirror(); err != nil {
		return nil, err
	}
	creds, err := a.cfg.GoogleCredentials()
	if err != nil {
		return nil, err
	}
	client, err := gsheet.NewClient(ctx, a.cfg.GoogleSpreadsheetID, a.cfg.GoogleSheetName, creds)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	a.logger.Info("Google Sheets client initialized", "spreadsheet_id", a.cfg.GoogleSpreadsheetID)
	return client, nil
}

// runWorker consumes ledger events and runs the backfill loop until ctx
// ends or either stops with an error.
func runWorker(ctx context.Context, a *app) error {
	logger := a.logger.WithComponent(log.ComponentWorker)
	if a.cfg.DataBackend != "sqlite" {
		return errors.New("the mirror worker reads rows from SQLite: set DATA_BACKEND=sqlite")
	}
	if a.cfg.AMQPURL == "" {
		return errors.New("AMQP URL is required by the mirror worker")
	}

	logger.Info("Starting finances-worker", log.FieldOperation, log.OpStartup)

	repo, err := storage.NewSQLiteRepository(a.cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("initialize SQLite repository: %w", err)
	}
	defer repo.Close()

	mirror, err := newMirror(ctx, a)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(repo, mirror, a.cfg.SyncBatchSize)

	// Recover rows whose events were lost while the worker was down.
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeLedgerEvents(gctx, w.HandleEvent)
	})
	g.Go(func() error {
		return w.RunBackfill(gctx, a.cfg.SyncInterval)
	})

	err = g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
		return nil
	}
	return err
}
