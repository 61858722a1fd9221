// Package ledgertest holds behaviour checks shared by every ledger.Store
// implementation.
package ledgertest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"finances/internal/core"
	"finances/internal/ledger"
)

// Factory returns an empty store; cleanup is the factory's job.
type Factory func(t *testing.T) ledger.Store

func day(s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(account, date string, amount float64, l1 string) core.Transaction {
	return core.Transaction{
		Account:     account,
		Date:        day(date),
		Description: l1 + " on " + date,
		Amount:      amount,
		L1Tag:       l1,
		L2Tag:       "sub",
		L3Tag:       "leaf",
	}
}

// Fixture is the ledger every check starts from.
func Fixture() []core.Transaction {
	return []core.Transaction{
		tx("Checking", "2024-01-05", 2000, "Income"),
		tx("Checking", "2024-01-06", -120.5, "Food"),
		tx("Checking", "2024-01-06", -30, "Fun"),
		tx("Savings", "2024-01-20", 500, "Transfer"),
		tx("Checking", "2024-01-20", -500, "Transfer"),
		tx("Checking", "2024-02-01", -80, "Food"),
		tx("Cash", "2024-02-03", -10, "Food"),
		tx("Cash", "2024-02-03", 10, "Refund"),
	}
}

func seed(t *testing.T, s ledger.Store) []core.Transaction {
	t.Helper()
	var out []core.Transaction
	for _, in := range Fixture() {
		created, err := s.CreateTransaction(context.Background(), in)
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		out = append(out, created)
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// Run executes every check against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("create assigns id and version", func(t *testing.T) {
		s := newStore(t)
		created := seed(t, s)
		if created[0].ID == 0 || created[0].Version != 1 {
			t.Fatalf("unexpected created row %+v", created[0])
		}
		got, err := s.GetTransaction(context.Background(), created[1].ID)
		if err != nil {
			t.Fatalf("GetTransaction: %v", err)
		}
		if got.Account != "Checking" || got.Amount != -120.5 || !got.Date.Equal(day("2024-01-06")) {
			t.Fatalf("round trip mismatch %+v", got)
		}
	})

	t.Run("list is newest first and windowed", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		ctx := context.Background()

		first, err := s.ListTransactions(ctx, 0, 3)
		if err != nil {
			t.Fatalf("ListTransactions: %v", err)
		}
		if len(first) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(first))
		}
		if !first[0].Date.Equal(day("2024-02-03")) || first[0].ID < first[1].ID {
			t.Fatalf("expected newest first with id tiebreak, got %+v", first[:2])
		}
		rest, _ := s.ListTransactions(ctx, 6, 3)
		if len(rest) != 2 {
			t.Fatalf("expected 2 trailing rows, got %d", len(rest))
		}
		if !rest[1].Date.Equal(day("2024-01-05")) {
			t.Fatalf("expected oldest row last, got %+v", rest[1])
		}
		none, _ := s.ListTransactions(ctx, 100, 3)
		if len(none) != 0 {
			t.Fatalf("expected empty page past the end, got %d", len(none))
		}
	})

	t.Run("update bumps version", func(t *testing.T) {
		s := newStore(t)
		created := seed(t, s)
		ctx := context.Background()

		changed := created[1]
		changed.Amount = -99
		changed.Description = "corrected"
		updated, err := s.UpdateTransaction(ctx, changed)
		if err != nil {
			t.Fatalf("UpdateTransaction: %v", err)
		}
		if updated.Version != 2 {
			t.Fatalf("expected version 2, got %d", updated.Version)
		}
		got, _ := s.GetTransaction(ctx, changed.ID)
		if got.Amount != -99 || got.Description != "corrected" {
			t.Fatalf("update not persisted: %+v", got)
		}

		missing := changed
		missing.ID = 9999
		if _, err := s.UpdateTransaction(ctx, missing); !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		created := seed(t, s)
		ctx := context.Background()
		if err := s.DeleteTransaction(ctx, created[0].ID); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
		if _, err := s.GetTransaction(ctx, created[0].ID); !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteTransaction(ctx, created[0].ID); !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("period flows by day", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		flows, err := s.PeriodFlows(context.Background(), core.GroupByDay)
		if err != nil {
			t.Fatalf("PeriodFlows: %v", err)
		}
		want := []core.PeriodFlow{
			{Label: "2024-01-05", Incoming: 2000, Outgoing: 0, Net: 2000},
			{Label: "2024-01-06", Incoming: 0, Outgoing: -150.5, Net: -150.5},
			{Label: "2024-01-20", Incoming: 500, Outgoing: -500, Net: 0},
			{Label: "2024-02-01", Incoming: 0, Outgoing: -80, Net: -80},
			{Label: "2024-02-03", Incoming: 10, Outgoing: -10, Net: 0},
		}
		if len(flows) != len(want) {
			t.Fatalf("expected %d flows, got %+v", len(want), flows)
		}
		for i, w := range want {
			f := flows[i]
			if f.Label != w.Label || !near(f.Incoming, w.Incoming) || !near(f.Outgoing, w.Outgoing) || !near(f.Net, w.Net) {
				t.Fatalf("flow %d: expected %+v, got %+v", i, w, f)
			}
			if !near(f.Net, f.Incoming+f.Outgoing) {
				t.Fatalf("flow %d: net must equal incoming+outgoing: %+v", i, f)
			}
		}
	})

	t.Run("period flows by month", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		flows, err := s.PeriodFlows(context.Background(), core.GroupByMonth)
		if err != nil {
			t.Fatalf("PeriodFlows: %v", err)
		}
		if len(flows) != 2 || flows[0].Label != "2024-01" || flows[1].Label != "2024-02" {
			t.Fatalf("unexpected month flows %+v", flows)
		}
		if !near(flows[0].Net, 1849.5) || !near(flows[1].Net, -80) {
			t.Fatalf("unexpected month nets %+v", flows)
		}
	})

	t.Run("account totals hide empty accounts", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		totals, err := s.AccountTotals(context.Background())
		if err != nil {
			t.Fatalf("AccountTotals: %v", err)
		}
		// Cash nets to zero and is hidden.
		if len(totals) != 2 || totals[0].Name != "Checking" || totals[1].Name != "Savings" {
			t.Fatalf("unexpected totals %+v", totals)
		}
		if !near(totals[0].Amount, 1269.5) || !near(totals[1].Amount, 500) {
			t.Fatalf("unexpected amounts %+v", totals)
		}
	})

	t.Run("budget spend", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		ctx := context.Background()
		spend, err := s.BudgetSpend(ctx, day("2024-01-15"), []string{"Food", "Fun"})
		if err != nil {
			t.Fatalf("BudgetSpend: %v", err)
		}
		if spend == nil || !near(*spend, 150.5) {
			t.Fatalf("expected 150.5, got %v", spend)
		}
		none, err := s.BudgetSpend(ctx, day("2024-03-01"), []string{"Food"})
		if err != nil || none != nil {
			t.Fatalf("expected absent spend, got %v (err=%v)", none, err)
		}
	})

	t.Run("category spend keeps request order", func(t *testing.T) {
		s := newStore(t)
		seed(t, s)
		got, err := s.CategorySpend(context.Background(), day("2024-02-10"), []string{"Fun", "Food", "Refund"})
		if err != nil {
			t.Fatalf("CategorySpend: %v", err)
		}
		if len(got) != 3 || got[0].Name != "Fun" || got[1].Name != "Food" || got[2].Name != "Refund" {
			t.Fatalf("unexpected order %+v", got)
		}
		if got[0].Amount != nil {
			t.Fatalf("expected no Fun spend in February, got %v", *got[0].Amount)
		}
		if got[1].Amount == nil || !near(*got[1].Amount, 90) {
			t.Fatalf("expected Food spend 90, got %v", got[1].Amount)
		}
		if got[2].Amount == nil || !near(*got[2].Amount, -10) {
			t.Fatalf("expected Refund spend -10, got %v", got[2].Amount)
		}
	})

	t.Run("sync tracking", func(t *testing.T) {
		s := newStore(t)
		created := seed(t, s)
		ctx := context.Background()

		pending, err := s.PendingSync(ctx, 100)
		if err != nil {
			t.Fatalf("PendingSync: %v", err)
		}
		if len(pending) != len(created) {
			t.Fatalf("expected all rows pending, got %d", len(pending))
		}
		limited, _ := s.PendingSync(ctx, 2)
		if len(limited) != 2 || limited[0].ID != created[0].ID {
			t.Fatalf("expected oldest two pending, got %+v", limited)
		}

		if err := s.MarkSynced(ctx, created[0].ID, 1); err != nil {
			t.Fatalf("MarkSynced: %v", err)
		}
		if err := s.MarkSyncError(ctx, created[1].ID); err != nil {
			t.Fatalf("MarkSyncError: %v", err)
		}
		pending, _ = s.PendingSync(ctx, 100)
		if len(pending) != len(created)-2 {
			t.Fatalf("expected %d pending, got %d", len(created)-2, len(pending))
		}

		// A later edit makes the synced row pending again.
		changed := created[0]
		changed.Description = "edited"
		if _, err := s.UpdateTransaction(ctx, changed); err != nil {
			t.Fatalf("UpdateTransaction: %v", err)
		}
		pending, _ = s.PendingSync(ctx, 100)
		if len(pending) != len(created)-1 {
			t.Fatalf("expected edited row back in pending, got %d", len(pending))
		}
		if err := s.MarkSynced(ctx, 9999, 1); !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.ListTransactions(ctx, 0, 10); err == nil {
			t.Fatalf("expected error for cancelled context")
		}
	})
}
