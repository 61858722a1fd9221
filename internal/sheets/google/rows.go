package google

import (
	"fmt"
	"strconv"
	"strings"

	"finances/internal/core"
)

// Column layout of the ledger sheet, A through I.
var header = []any{"ID", "Date", "Account", "Description", "Amount", "L1", "L2", "L3", "Version"}

const lastColumn = "I"

func rowValues(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.Format(core.DateLayout),
		tx.Account,
		tx.Description,
		tx.Amount,
		tx.L1Tag,
		tx.L2Tag,
		tx.L3Tag,
		tx.Version,
	}
}

// findRow locates id in a values matrix read from column A onwards. It
// returns the 1-based sheet row and the stored version, or row 0 when the
// id is absent.
func findRow(values [][]any, id int64) (row int, version int64) {
	want := strconv.FormatInt(id, 10)
	for i, r := range values {
		cols := toStrings(r)
		if len(cols) == 0 || cols[0] != want {
			continue
		}
		if len(cols) > 8 {
			version, _ = strconv.ParseInt(cols[8], 10, 64)
		}
		return i + 1, version
	}
	return 0, 0
}

// parseRow turns one sheet row back into a transaction. Header and
// cleared rows yield ok=false.
func parseRow(r []any) (core.Transaction, bool) {
	cols := toStrings(r)
	if len(cols) < 8 {
		return core.Transaction{}, false
	}
	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil || id <= 0 {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Transaction{}, false
	}
	amount, ok := parseSheetAmount(cols[4])
	if !ok {
		return core.Transaction{}, false
	}
	tx := core.Transaction{
		ID:          id,
		Date:        date,
		Account:     cols[2],
		Description: cols[3],
		Amount:      amount,
		L1Tag:       cols[5],
		L2Tag:       cols[6],
		L3Tag:       cols[7],
	}
	if len(cols) > 8 {
		tx.Version, _ = strconv.ParseInt(cols[8], 10, 64)
	}
	return tx, true
}

// parseSheetAmount accepts numbers rendered with either decimal separator.
func parseSheetAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}
