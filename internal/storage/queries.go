package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries wraps the SQL statements of the finances table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx runs the same statements inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Finance is one row of the finances table as stored.
type Finance struct {
	ID            int64
	Account       string
	Date          string
	Description   string
	Amount        float64
	L1Tag         string
	L2Tag         string
	L3Tag         string
	Version       int64
	SyncStatus    string
	SyncedVersion int64
}

const financeColumns = `id, account, date, description, amount, l1_tag, l2_tag, l3_tag, version, sync_status, synced_version`

func scanFinance(row interface{ Scan(...any) error }) (Finance, error) {
	var f Finance
	err := row.Scan(&f.ID, &f.Account, &f.Date, &f.Description, &f.Amount,
		&f.L1Tag, &f.L2Tag, &f.L3Tag, &f.Version, &f.SyncStatus, &f.SyncedVersion)
	return f, err
}

func collectFinances(rows *sql.Rows) ([]Finance, error) {
	defer rows.Close()
	var items []Finance
	for rows.Next() {
		f, err := scanFinance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listFinances = `SELECT ` + financeColumns + `
FROM finances
ORDER BY date DESC, id DESC
LIMIT ? OFFSET ?`

func (q *Queries) ListFinances(ctx context.Context, limit, offset int64) ([]Finance, error) {
	rows, err := q.db.QueryContext(ctx, listFinances, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectFinances(rows)
}

const getFinance = `SELECT ` + financeColumns + ` FROM finances WHERE id = ?`

func (q *Queries) GetFinance(ctx context.Context, id int64) (Finance, error) {
	return scanFinance(q.db.QueryRowContext(ctx, getFinance, id))
}

type CreateFinanceParams struct {
	Account     string
	Date        string
	Description string
	Amount      float64
	L1Tag       string
	L2Tag       string
	L3Tag       string
}

const createFinance = `INSERT INTO finances (account, date, description, amount, l1_tag, l2_tag, l3_tag)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + financeColumns

func (q *Queries) CreateFinance(ctx context.Context, arg CreateFinanceParams) (Finance, error) {
	row := q.db.QueryRowContext(ctx, createFinance,
		arg.Account, arg.Date, arg.Description, arg.Amount, arg.L1Tag, arg.L2Tag, arg.L3Tag)
	return scanFinance(row)
}

type UpdateFinanceParams struct {
	ID int64
	CreateFinanceParams
}

const updateFinance = `UPDATE finances
SET account = ?, date = ?, description = ?, amount = ?, l1_tag = ?, l2_tag = ?, l3_tag = ?,
    version = version + 1,
    sync_status = 'pending',
    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ?
RETURNING ` + financeColumns

func (q *Queries) UpdateFinance(ctx context.Context, arg UpdateFinanceParams) (Finance, error) {
	row := q.db.QueryRowContext(ctx, updateFinance,
		arg.Account, arg.Date, arg.Description, arg.Amount, arg.L1Tag, arg.L2Tag, arg.L3Tag, arg.ID)
	return scanFinance(row)
}

const deleteFinance = `DELETE FROM finances WHERE id = ?`

func (q *Queries) DeleteFinance(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteFinance, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type PeriodFlowRow struct {
	Period   string
	Incoming float64
	Outgoing float64
	Net      float64
}

// Dates are stored as "YYYY-MM-DD HH:MM:SS", so a prefix of the column is
// the period key: 10 characters for a day, 7 for a month.
const periodFlows = `SELECT substr(date, 1, ?) AS period,
       COALESCE(SUM(CASE WHEN amount > 0 THEN amount END), 0) AS incoming,
       COALESCE(SUM(CASE WHEN amount <= 0 THEN amount END), 0) AS outgoing,
       SUM(amount) AS net
FROM finances
GROUP BY period
ORDER BY period`

func (q *Queries) PeriodFlows(ctx context.Context, prefixLen int) ([]PeriodFlowRow, error) {
	rows, err := q.db.QueryContext(ctx, periodFlows, prefixLen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PeriodFlowRow
	for rows.Next() {
		var i PeriodFlowRow
		if err := rows.Scan(&i.Period, &i.Incoming, &i.Outgoing, &i.Net); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type AccountTotalRow struct {
	Name   string
	Amount float64
}

const accountTotals = `WITH grouped AS (
    SELECT account AS name, SUM(amount) AS amount FROM finances GROUP BY account
)
SELECT name, amount FROM grouped WHERE amount > ? ORDER BY name`

func (q *Queries) AccountTotals(ctx context.Context, threshold float64) ([]AccountTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, accountTotals, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountTotalRow
	for rows.Next() {
		var i AccountTotalRow
		if err := rows.Scan(&i.Name, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func spendArgs(start, end string, tags []string) []any {
	args := make([]any, 0, len(tags)+2)
	args = append(args, start, end)
	for _, t := range tags {
		args = append(args, t)
	}
	return args
}

func (q *Queries) BudgetSpend(ctx context.Context, start, end string, tags []string) (sql.NullFloat64, error) {
	query := `SELECT -SUM(amount) FROM finances
WHERE date >= ? AND date < ? AND l1_tag IN (` + placeholders(len(tags)) + `)`
	var spend sql.NullFloat64
	err := q.db.QueryRowContext(ctx, query, spendArgs(start, end, tags)...).Scan(&spend)
	return spend, err
}

func (q *Queries) SpendByTag(ctx context.Context, start, end string, tags []string) (map[string]float64, error) {
	query := `SELECT l1_tag, -SUM(amount) FROM finances
WHERE date >= ? AND date < ? AND l1_tag IN (` + placeholders(len(tags)) + `)
GROUP BY l1_tag`
	rows, err := q.db.QueryContext(ctx, query, spendArgs(start, end, tags)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var (
			tag   string
			spend float64
		)
		if err := rows.Scan(&tag, &spend); err != nil {
			return nil, err
		}
		out[tag] = spend
	}
	return out, rows.Err()
}

const pendingSync = `SELECT ` + financeColumns + `
FROM finances
WHERE sync_status = 'pending'
ORDER BY id
LIMIT ?`

func (q *Queries) GetPendingSyncFinances(ctx context.Context, limit int64) ([]Finance, error) {
	rows, err := q.db.QueryContext(ctx, pendingSync, limit)
	if err != nil {
		return nil, err
	}
	return collectFinances(rows)
}

// A row only becomes synced when the acknowledged version is current.
const markSynced = `UPDATE finances
SET synced_version = MAX(synced_version, ?1),
    sync_status = CASE WHEN version <= ?1 THEN 'synced' ELSE sync_status END,
    synced_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ?2`

func (q *Queries) MarkSynced(ctx context.Context, id, version int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, version, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSyncError = `UPDATE finances SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkSyncError(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSyncError, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
