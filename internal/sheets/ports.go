// Package sheets mirrors the ledger into a spreadsheet for people who
// prefer to browse it there. The mirror is write-only from the
// application's point of view; SQLite stays the source of truth.
package sheets

import (
	"context"

	"finances/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror keeps one spreadsheet row per transaction.
	LedgerMirror interface {
		// Upsert writes tx, replacing the row with the same id. Rows that
		// already hold a newer version are left alone.
		Upsert(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		// Remove clears the row for id. Missing rows are not an error.
		Remove(ctx context.Context, id int64) error
	}

	// LedgerLister reads mirrored rows back, for reconciliation.
	LedgerLister interface {
		ListRows(ctx context.Context) ([]core.Transaction, error)
	}
)
