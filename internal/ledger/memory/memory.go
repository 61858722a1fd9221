// Package memory is an in-process ledger.Store used for development and
// tests. It mirrors the SQLite queries in plain Go.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"finances/internal/core"
	"finances/internal/ledger"
)

type row struct {
	tx     core.Transaction
	synced int64 // version last acknowledged by the mirror
	failed bool
}

// Store keeps transactions in a map guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	rows   map[int64]*row
	nextID int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int64]*row), nextID: 1}
}

// NewWithTransactions seeds a store; ids and versions are assigned.
func NewWithTransactions(txs []core.Transaction) *Store {
	s := New()
	for _, tx := range txs {
		_, _ = s.CreateTransaction(context.Background(), tx)
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// sorted returns rows newest first: date desc, id desc.
func (s *Store) sorted() []core.Transaction {
	out := make([]core.Transaction, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) ListTransactions(ctx context.Context, offset, limit int) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sorted()
	if offset >= len(all) || limit <= 0 {
		return []core.Transaction{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]core.Transaction(nil), all[offset:end]...), nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[id]
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return r.tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.nextID
	tx.Version = 1
	s.nextID++
	s.rows[tx.ID] = &row{tx: tx}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[tx.ID]
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	tx.Version = r.tx.Version + 1
	r.tx = tx
	r.failed = false
	return tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *Store) PeriodFlows(ctx context.Context, grouping core.Grouping) ([]core.PeriodFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	byLabel := make(map[string]*core.PeriodFlow)
	for _, r := range s.rows {
		label := grouping.Label(r.tx.Date)
		f, ok := byLabel[label]
		if !ok {
			f = &core.PeriodFlow{Label: label}
			byLabel[label] = f
		}
		if r.tx.Amount > 0 {
			f.Incoming += r.tx.Amount
		} else {
			f.Outgoing += r.tx.Amount
		}
		f.Net += r.tx.Amount
	}
	out := make([]core.PeriodFlow, 0, len(byLabel))
	for _, f := range byLabel {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (s *Store) AccountTotals(ctx context.Context) ([]core.AccountSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]float64)
	for _, r := range s.rows {
		totals[r.tx.Account] += r.tx.Amount
	}
	out := make([]core.AccountSummary, 0, len(totals))
	for name, amount := range totals {
		if amount > ledger.AccountVisibilityThreshold {
			out = append(out, core.AccountSummary{Name: name, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) spendByTag(month time.Time, tags []string) map[string]float64 {
	start, end := core.MonthRange(month)
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	spend := make(map[string]float64)
	for _, r := range s.rows {
		if r.tx.Date.Before(start) || !r.tx.Date.Before(end) || !want[r.tx.L1Tag] {
			continue
		}
		spend[r.tx.L1Tag] += r.tx.Spend()
	}
	return spend
}

func (s *Store) BudgetSpend(ctx context.Context, month time.Time, l1Tags []string) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	spend := s.spendByTag(month, l1Tags)
	if len(spend) == 0 {
		return nil, nil
	}
	var total float64
	for _, v := range spend {
		total += v
	}
	return &total, nil
}

func (s *Store) CategorySpend(ctx context.Context, month time.Time, l1Tags []string) ([]core.CategorySpend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	spend := s.spendByTag(month, l1Tags)
	out := make([]core.CategorySpend, 0, len(l1Tags))
	for _, tag := range l1Tags {
		cs := core.CategorySpend{Name: tag}
		if v, ok := spend[tag]; ok {
			v := v
			cs.Amount = &v
		}
		out = append(out, cs)
	}
	return out, nil
}

func (s *Store) PendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Transaction
	for _, r := range s.rows {
		if r.synced < r.tx.Version && !r.failed {
			out = append(out, r.tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkSynced(ctx context.Context, id, version int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if version > r.synced {
		r.synced = version
	}
	r.failed = false
	return nil
}

func (s *Store) MarkSyncError(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return ledger.ErrNotFound
	}
	r.failed = true
	return nil
}
