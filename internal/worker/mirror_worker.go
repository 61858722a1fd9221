// Package worker keeps the spreadsheet mirror in step with the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finances/internal/amqp"
	"finances/internal/core"
	"finances/internal/ledger"
	"finances/internal/metrics"
	"finances/internal/sheets"
)

// Source is the part of the ledger the worker reads and acknowledges.
type Source interface {
	ledger.Reader
	ledger.SyncTracker
}

// MirrorWorker applies ledger events to a LedgerMirror and backfills rows
// whose events were lost.
type MirrorWorker struct {
	store     Source
	mirror    sheets.LedgerMirror
	batchSize int

	mu      sync.Mutex
	running bool
}

func NewMirrorWorker(store Source, mirror sheets.LedgerMirror, batchSize int) *MirrorWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &MirrorWorker{store: store, mirror: mirror, batchSize: batchSize}
}

// HandleEvent processes one ledger event from AMQP. The row is always
// re-read, so replays and out-of-order deliveries converge on the stored
// state.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"message_id", msg.MessageID,
		"kind", msg.Kind,
		"id", msg.ID,
		"version", msg.Version)

	if msg.Kind == amqp.EventDelete {
		err := w.mirror.Remove(ctx, msg.ID)
		metrics.MirrorSyncs.WithLabelValues("event", metrics.Result(err)).Inc()
		if err != nil {
			return fmt.Errorf("remove row %d from mirror: %w", msg.ID, err)
		}
		return nil
	}

	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		// deleted after the event was published; its delete event follows
		slog.InfoContext(ctx, "Transaction gone, clearing mirror row", "id", msg.ID)
		return w.mirror.Remove(ctx, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	err = w.push(ctx, tx)
	metrics.MirrorSyncs.WithLabelValues("event", metrics.Result(err)).Inc()
	return err
}

func (w *MirrorWorker) push(ctx context.Context, tx core.Transaction) error {
	id, version := tx.ID, tx.Version
	ref, err := w.mirror.Upsert(ctx, tx)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("upsert row %d into mirror: %w", id, err)
	}

	if err := w.store.MarkSynced(ctx, id, version); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		// the mirror write landed; the backfill will retry the flag
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Synced transaction to mirror",
		"id", id,
		"version", version,
		"row_ref", ref)
	return nil
}

// ProcessPending pushes up to one batch of pending rows and returns how
// many were synced.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize, "backfill")
}

func (w *MirrorWorker) processPending(ctx context.Context, limit int, source string) (int, error) {
	pending, err := w.store.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	metrics.MirrorPending.Set(float64(len(pending)))
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending), "source", source)

	synced := 0
	for _, tx := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		err := w.push(ctx, tx)
		metrics.MirrorSyncs.WithLabelValues(source, metrics.Result(err)).Inc()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", tx.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck drains a larger batch once, to recover from downtime.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5, "startup")
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

// RunBackfill runs ProcessPending every interval until ctx is done. It
// returns an error if the loop is already running.
func (w *MirrorWorker) RunBackfill(ctx context.Context, interval time.Duration) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("backfill loop is already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Backfill loop started", "interval", interval, "batch_size", w.batchSize)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Backfill loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Backfill pass failed", "error", err)
			}
		}
	}
}
