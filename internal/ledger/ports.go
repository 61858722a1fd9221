// Package ledger defines the storage ports the rest of the application
// depends on. Implementations live in internal/storage (SQLite) and
// internal/ledger/memory.
package ledger

import (
	"context"
	"errors"
	"time"

	"finances/internal/core"
)

// ErrNotFound is returned when a transaction id does not exist.
var ErrNotFound = errors.New("transaction not found")

// AccountVisibilityThreshold hides accounts whose total is effectively zero.
const AccountVisibilityThreshold = 0.001

// Reader pages through the ledger newest first.
type Reader interface {
	ListTransactions(ctx context.Context, offset, limit int) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
}

// Writer mutates the ledger. Every successful write bumps the row version
// and marks it pending for the mirror.
type Writer interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// Aggregator answers the summary queries behind the dashboard.
type Aggregator interface {
	// PeriodFlows returns one flow per period, oldest first.
	PeriodFlows(ctx context.Context, grouping core.Grouping) ([]core.PeriodFlow, error)
	// AccountTotals returns accounts whose total exceeds
	// AccountVisibilityThreshold, ordered by name.
	AccountTotals(ctx context.Context) ([]core.AccountSummary, error)
	// BudgetSpend is the negated sum of amounts in month's calendar month
	// tagged with one of l1Tags; nil when no row matches.
	BudgetSpend(ctx context.Context, month time.Time, l1Tags []string) (*float64, error)
	// CategorySpend returns one entry per requested tag, in request order.
	CategorySpend(ctx context.Context, month time.Time, l1Tags []string) ([]core.CategorySpend, error)
}

// SyncTracker records which rows the external mirror has seen.
type SyncTracker interface {
	PendingSync(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id, version int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// Store is everything a backend provides.
type Store interface {
	Reader
	Writer
	Aggregator
	SyncTracker
	Ping(ctx context.Context) error
	Close() error
}
