package memory

import (
	"context"
	"testing"
	"time"

	"finances/internal/core"
)

func tx(id, version int64, amount float64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Account:     "Checking",
		Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Description: "row",
		Amount:      amount,
		L1Tag:       "A",
		L2Tag:       "B",
		L3Tag:       "C",
		Version:     version,
	}
}

func TestMirrorUpsertKeepsNewestVersion(t *testing.T) {
	ctx := context.Background()
	m := New()

	ref, err := m.Upsert(ctx, tx(1, 2, -5))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}
	if _, err := m.Upsert(ctx, tx(1, 1, -99)); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Row(1)
	if got.Amount != -5 || got.Version != 2 {
		t.Fatalf("stale write replaced row: %+v", got)
	}
	if m.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1", m.Writes())
	}

	if _, err := m.Upsert(ctx, tx(1, 3, -7)); err != nil {
		t.Fatal(err)
	}
	got, _ = m.Row(1)
	if got.Amount != -7 {
		t.Errorf("newer write ignored: %+v", got)
	}
}

func TestMirrorRejectsInvalid(t *testing.T) {
	bad := tx(1, 1, -1)
	bad.L3Tag = ""
	if _, err := New().Upsert(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestMirrorRemoveAndList(t *testing.T) {
	ctx := context.Background()
	m := New()
	for _, id := range []int64{3, 1, 2} {
		if _, err := m.Upsert(ctx, tx(id, 1, -1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Remove(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(ctx, 42); err != nil {
		t.Fatalf("removing a missing row should succeed: %v", err)
	}
	rows, _ := m.ListRows(ctx)
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].ID != 3 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
