package google

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"finances/internal/core"
)

func sampleTx() core.Transaction {
	return core.Transaction{
		ID:          42,
		Account:     "Checking",
		Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Description: "Groceries",
		Amount:      -12.5,
		L1Tag:       "Food",
		L2Tag:       "Home",
		L3Tag:       "Market",
		Version:     3,
	}
}

func TestNewClient_RequiresSettings(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		sheet string
		creds []byte
		want  string
	}{
		{"no spreadsheet", " ", "Ledger", []byte("{}"), "missing spreadsheet id"},
		{"no sheet", "abc", "", []byte("{}"), "missing sheet name"},
		{"no credentials", "abc", "Ledger", nil, "missing service account credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tt.id, tt.sheet, tt.creds)
			if err == nil || err.Error() != tt.want {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestClient_UpsertValidatesBeforeCalling(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Ledger"}
	tx := sampleTx()
	tx.Account = " "

	_, err := c.Upsert(context.Background(), tx)
	if !errors.Is(err, core.ErrEmptyAccount) {
		t.Fatalf("expected ErrEmptyAccount, got %v", err)
	}
}

func TestClient_NilServiceErrors(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Ledger"}
	ctx := context.Background()
	if _, err := c.Upsert(ctx, sampleTx()); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("Upsert error = %v", err)
	}
	if err := c.Remove(ctx, 1); err == nil {
		t.Error("Remove should fail without a service")
	}
	if _, err := c.ListRows(ctx); err == nil {
		t.Error("ListRows should fail without a service")
	}
}

func TestRowValuesRoundTrip(t *testing.T) {
	tx := sampleTx()
	got, ok := parseRow(rowValues(tx))
	if !ok {
		t.Fatal("parseRow rejected a written row")
	}
	if got != tx {
		t.Errorf("parseRow(rowValues(tx)) = %+v, want %+v", got, tx)
	}
}

func TestParseRow_SkipsNonData(t *testing.T) {
	tests := []struct {
		name string
		row  []any
	}{
		{"header", header},
		{"cleared", []any{}},
		{"short", []any{"1", "2024-01-01"}},
		{"bad date", []any{"1", "01/02/2024", "A", "d", "1", "x", "y", "z"}},
		{"bad amount", []any{"1", "2024-01-02", "A", "d", "abc", "x", "y", "z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseRow(tt.row); ok {
				t.Errorf("parseRow(%v) accepted", tt.row)
			}
		})
	}
}

func TestParseRow_CommaDecimal(t *testing.T) {
	tx, ok := parseRow([]any{"7", "2024-01-02", "Cash", "Coffee", "-1,50", "Food", "Out", "Bar"})
	if !ok {
		t.Fatal("row rejected")
	}
	if tx.Amount != -1.5 || tx.Version != 0 {
		t.Errorf("unexpected %+v", tx)
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		header,
		{"1", "2024-01-01", "A", "x", 1.0, "a", "b", "c", "2"},
		{},
		{int64(9), "2024-01-02", "A", "y", 2.0, "a", "b", "c", int64(5)},
	}

	row, version := findRow(values, 9)
	if row != 4 || version != 5 {
		t.Errorf("findRow(9) = %d,%d want 4,5", row, version)
	}
	row, version = findRow(values, 1)
	if row != 2 || version != 2 {
		t.Errorf("findRow(1) = %d,%d want 2,2", row, version)
	}
	if row, _ := findRow(values, 3); row != 0 {
		t.Errorf("findRow(3) = %d want 0", row)
	}
}

func TestRowRange(t *testing.T) {
	if got := rowRange("Ledger", 12); got != "Ledger!A12:I12" {
		t.Errorf("rowRange = %q", got)
	}
}
