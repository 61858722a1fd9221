//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"finances/internal/core"
)

// Run with: go test -tags=integration ./internal/sheets/google
func TestIntegration_MirrorRoundTrip(t *testing.T) {
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	credsFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")
	if credsFile == "" {
		t.Skip("GOOGLE_SERVICE_ACCOUNT_FILE not set, skipping integration test")
	}
	creds, err := os.ReadFile(credsFile)
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}
	sheet := os.Getenv("GOOGLE_SHEET_NAME")
	if sheet == "" {
		sheet = "LedgerTest"
	}

	ctx := context.Background()
	client, err := NewClient(ctx, spreadsheetID, sheet, creds)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	id := time.Now().Unix()
	tx := core.Transaction{
		ID:          id,
		Account:     "Integration",
		Date:        time.Now().UTC().Truncate(24 * time.Hour),
		Description: "integration test row",
		Amount:      -1.23,
		L1Tag:       "Test",
		L2Tag:       "Test",
		L3Tag:       "Test",
		Version:     1,
	}
	if _, err := client.Upsert(ctx, tx); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	tx.Version = 2
	tx.Amount = -4.56
	ref, err := client.Upsert(ctx, tx)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	t.Logf("row %s", ref)

	rows, err := client.ListRows(ctx)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	found := 0
	for _, r := range rows {
		if r.ID == id {
			found++
			if r.Amount != -4.56 || r.Version != 2 {
				t.Errorf("row not updated: %+v", r)
			}
		}
	}
	if found != 1 {
		t.Errorf("found %d rows for id %d, want 1", found, id)
	}

	if err := client.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}
