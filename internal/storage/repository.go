package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finances/internal/core"
	"finances/internal/ledger"

	_ "modernc.org/sqlite"
)

// dateLayout is how transaction dates are stored: sortable text.
const dateLayout = "2006-01-02 15:04:05"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toTransaction(f Finance) (core.Transaction, error) {
	date, err := time.Parse(dateLayout, f.Date)
	if err != nil {
		// Rows imported by hand may carry a bare day.
		date, err = time.Parse(core.DateLayout, f.Date)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parse date of row %d: %w", f.ID, err)
		}
	}
	return core.Transaction{
		ID:          f.ID,
		Account:     f.Account,
		Date:        date,
		Description: f.Description,
		Amount:      f.Amount,
		L1Tag:       f.L1Tag,
		L2Tag:       f.L2Tag,
		L3Tag:       f.L3Tag,
		Version:     f.Version,
	}, nil
}

func toTransactions(rows []Finance) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, f := range rows {
		tx, err := toTransaction(f)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func toParams(tx core.Transaction) CreateFinanceParams {
	return CreateFinanceParams{
		Account:     tx.Account,
		Date:        tx.Date.UTC().Format(dateLayout),
		Description: tx.Description,
		Amount:      tx.Amount,
		L1Tag:       tx.L1Tag,
		L2Tag:       tx.L2Tag,
		L3Tag:       tx.L3Tag,
	}
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, offset, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.ListFinances(ctx, int64(limit), int64(offset))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	f, err := r.queries.GetFinance(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return toTransaction(f)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	f, err := r.queries.CreateFinance(ctx, toParams(tx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", f.ID,
		"account", f.Account,
		"amount", f.Amount,
		"date", f.Date)

	return toTransaction(f)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	f, err := r.queries.UpdateFinance(ctx, UpdateFinanceParams{ID: tx.ID, CreateFinanceParams: toParams(tx)})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}
	return toTransaction(f)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteFinance(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) PeriodFlows(ctx context.Context, grouping core.Grouping) ([]core.PeriodFlow, error) {
	prefix := len(core.DateLayout)
	if grouping == core.GroupByMonth {
		prefix = len("2006-01")
	}
	rows, err := r.queries.PeriodFlows(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("period flows by %s: %w", grouping, err)
	}
	out := make([]core.PeriodFlow, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.PeriodFlow{
			Label:    row.Period,
			Incoming: row.Incoming,
			Outgoing: row.Outgoing,
			Net:      row.Net,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) AccountTotals(ctx context.Context) ([]core.AccountSummary, error) {
	rows, err := r.queries.AccountTotals(ctx, ledger.AccountVisibilityThreshold)
	if err != nil {
		return nil, fmt.Errorf("account totals: %w", err)
	}
	out := make([]core.AccountSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.AccountSummary{Name: row.Name, Amount: row.Amount})
	}
	return out, nil
}

// monthBounds compares on bare days so rows stored without a time of day
// still fall inside their month.
func monthBounds(month time.Time) (string, string) {
	start, end := core.MonthRange(month)
	return start.Format(core.DateLayout), end.Format(core.DateLayout)
}

func (r *SQLiteRepository) BudgetSpend(ctx context.Context, month time.Time, l1Tags []string) (*float64, error) {
	if len(l1Tags) == 0 {
		return nil, nil
	}
	start, end := monthBounds(month)
	spend, err := r.queries.BudgetSpend(ctx, start, end, l1Tags)
	if err != nil {
		return nil, fmt.Errorf("budget spend: %w", err)
	}
	if !spend.Valid {
		return nil, nil
	}
	return &spend.Float64, nil
}

func (r *SQLiteRepository) CategorySpend(ctx context.Context, month time.Time, l1Tags []string) ([]core.CategorySpend, error) {
	out := make([]core.CategorySpend, 0, len(l1Tags))
	if len(l1Tags) == 0 {
		return out, nil
	}
	start, end := monthBounds(month)
	byTag, err := r.queries.SpendByTag(ctx, start, end, l1Tags)
	if err != nil {
		return nil, fmt.Errorf("category spend: %w", err)
	}
	for _, tag := range l1Tags {
		cs := core.CategorySpend{Name: tag}
		if v, ok := byTag[tag]; ok {
			v := v
			cs.Amount = &v
		}
		out = append(out, cs)
	}
	return out, nil
}

func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.GetPendingSyncFinances(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, version int64) error {
	n, err := r.queries.MarkSynced(ctx, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction %d synced: %w", id, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	n, err := r.queries.MarkSyncError(ctx, id)
	if err != nil {
		return fmt.Errorf("mark transaction %d sync error: %w", id, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
