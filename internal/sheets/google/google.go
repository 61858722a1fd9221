package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finances/internal/core"
	ports "finances/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.LedgerMirror = (*Client)(nil)
	_ ports.LedgerLister = (*Client)(nil)
)

// NewClient builds a Sheets client authenticated with a service account.
func NewClient(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := rowRange(c.sheetName, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// Upsert implements ports.LedgerMirror.
func (c *Client) Upsert(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	values, err := c.readAll(ctx)
	if err != nil {
		return "", err
	}

	row, stored := findRow(values, tx.ID)
	if row > 0 && stored > tx.Version {
		slog.DebugContext(ctx, "Sheet row is newer, skipping",
			"id", tx.ID, "version", tx.Version, "stored_version", stored)
		return rowRange(c.sheetName, row), nil
	}
	if row == 0 {
		if len(values) == 0 {
			if err := c.writeRow(ctx, 1, header); err != nil {
				return "", err
			}
			values = append(values, header)
		}
		row = len(values) + 1
	}

	if err := c.writeRow(ctx, row, rowValues(tx)); err != nil {
		return "", err
	}
	return rowRange(c.sheetName, row), nil
}

// Remove implements ports.LedgerMirror.
func (c *Client) Remove(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	row, _ := findRow(values, id)
	if row == 0 {
		return nil
	}
	rng := rowRange(c.sheetName, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// ListRows implements ports.LedgerLister. Unparseable rows are skipped.
func (c *Client) ListRows(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	for _, r := range values {
		if tx, ok := parseRow(r); ok {
			out = append(out, tx)
		}
	}
	return out, nil
}
