package pager

import (
	"context"
	"errors"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	p := New(0)
	if p.Offset() != 0 || p.Limit() != DefaultLimit {
		t.Fatalf("expected (0,%d), got (%d,%d)", DefaultLimit, p.Offset(), p.Limit())
	}
	if p.LastRows() >= 0 {
		t.Fatalf("expected no page loaded yet")
	}
}

func TestOlderAfterFullPage(t *testing.T) {
	p := New(50)
	p.Loaded(50)
	tr := p.Older()
	if tr.Kind != NeedsRefetch || tr.Offset != 50 || p.Offset() != 50 || p.Limit() != 50 {
		t.Fatalf("expected refetch at 50, got %+v state (%d,%d)", tr, p.Offset(), p.Limit())
	}
}

func TestOlderAfterPartialPageIsNoop(t *testing.T) {
	p := New(50)
	p.Loaded(50)
	p.Older()
	p.Loaded(17)
	tr := p.Older()
	if tr.Kind != Stable || p.Offset() != 50 {
		t.Fatalf("expected stable at 50, got %+v offset %d", tr, p.Offset())
	}
}

func TestOlderBeforeAnyLoadIsNoop(t *testing.T) {
	p := New(10)
	if tr := p.Older(); tr.Refetch() || p.Offset() != 0 {
		t.Fatalf("expected no move, got %+v", tr)
	}
}

func TestNewer(t *testing.T) {
	cases := []struct {
		name   string
		offset int
		limit  int
		want   int
	}{
		{"one page back", 50, 50, 0},
		{"clamped", 20, 50, 0},
		{"at zero", 0, 50, 0},
		{"deep", 150, 50, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Restore(tc.offset, tc.limit, tc.limit)
			tr := p.Newer()
			if tr.Kind != NeedsRefetch || tr.Offset != tc.want || p.Offset() != tc.want {
				t.Fatalf("expected refetch at %d, got %+v", tc.want, tr)
			}
		})
	}
}

func TestRestoreClampsLastRows(t *testing.T) {
	p := Restore(0, 50, 500)
	if p.LastRows() != 50 {
		t.Fatalf("LastRows() = %d, want 50", p.LastRows())
	}
	if tr := p.Older(); tr.Kind != NeedsRefetch || tr.Offset != 50 {
		t.Fatalf("expected refetch at 50, got %+v", tr)
	}

	if p := Restore(0, 50, -1); p.LastRows() != -1 {
		t.Fatalf("LastRows() = %d, want -1", p.LastRows())
	}
}

func TestEmptyPageSelfCorrects(t *testing.T) {
	p := Restore(100, 50, 50)
	tr := p.Loaded(0)
	if tr.Kind != NeedsRefetch || p.Offset() != 50 {
		t.Fatalf("expected refetch at 50, got %+v", tr)
	}
}

func TestEmptyLedgerIsStable(t *testing.T) {
	p := New(50)
	if tr := p.Loaded(0); tr.Refetch() || p.Offset() != 0 {
		t.Fatalf("expected stable empty view, got %+v", tr)
	}
}

func TestOffsetNeverNegative(t *testing.T) {
	p := Restore(30, 50, 0)
	for i := 0; i < 5; i++ {
		p.Newer()
		p.Loaded(0)
		if p.Offset() < 0 {
			t.Fatalf("offset went negative: %d", p.Offset())
		}
	}
}

type ledger []int

func (l ledger) fetch(calls *[]int) FetchFunc[int] {
	return func(_ context.Context, offset, limit int) ([]int, error) {
		*calls = append(*calls, offset)
		if offset >= len(l) {
			return nil, nil
		}
		end := offset + limit
		if end > len(l) {
			end = len(l)
		}
		return l[offset:end], nil
	}
}

func TestLoadWalksBackAndCorrects(t *testing.T) {
	rows := make(ledger, 100)
	for i := range rows {
		rows[i] = i
	}
	var calls []int
	p := New(50)
	ctx := context.Background()

	page, err := Load(ctx, p, rows.fetch(&calls))
	if err != nil || len(page) != 50 {
		t.Fatalf("first page: %d rows, err %v", len(page), err)
	}
	p.Older()
	page, _ = Load(ctx, p, rows.fetch(&calls))
	if len(page) != 50 || page[0] != 50 {
		t.Fatalf("second page unexpected: %v", page[:1])
	}

	// The second page was full, so Older moves to 100 where nothing exists
	// and Load must bounce back to the last real page.
	p.Older()
	page, _ = Load(ctx, p, rows.fetch(&calls))
	if p.Offset() != 50 || len(page) != 50 || page[0] != 50 {
		t.Fatalf("expected correction to offset 50, got offset %d page len %d", p.Offset(), len(page))
	}
	want := []int{0, 50, 100, 50}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, calls)
		}
	}
}

func TestLoadPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Load(context.Background(), New(10), func(context.Context, int, int) ([]string, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
