package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used on every external surface.
const DateLayout = "2006-01-02"

const (
	GroupByDay   Grouping = "Day"
	GroupByMonth Grouping = "Month"
)

type (
	// Grouping selects the period granularity of balance aggregation.
	Grouping string

	Transaction struct {
		ID          int64     `json:"id"`
		Account     string    `json:"account"`
		Date        time.Time `json:"date"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount"`
		L1Tag       string    `json:"l1_tag"`
		L2Tag       string    `json:"l2_tag"`
		L3Tag       string    `json:"l3_tag"`
		Version     int64     `json:"version"`
	}

	// AccountSummary is the running total of one account.
	AccountSummary struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}

	// PeriodFlow is the money movement of one period. Outgoing is the sum
	// of negative amounts, so Net == Incoming + Outgoing.
	PeriodFlow struct {
		Label    string  `json:"label"`
		Incoming float64 `json:"incoming"`
		Outgoing float64 `json:"outgoing"`
		Net      float64 `json:"net"`
	}

	// CategorySpend is the spend of one level-1 tag; Amount is nil when
	// nothing was recorded for it.
	CategorySpend struct {
		Name   string   `json:"name"`
		Amount *float64 `json:"amount"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidGrouping    = errors.New("invalid grouping")
	ErrEmptyAccount       = errors.New("empty account")
	ErrEmptyTag           = errors.New("empty tag")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// ParseGrouping accepts "Day" or "Month", case-insensitively.
func ParseGrouping(s string) (Grouping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day":
		return GroupByDay, nil
	case "month":
		return GroupByMonth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGrouping, s)
}

// Label renders the period key of t under g.
func (g Grouping) Label(t time.Time) string {
	if g == GroupByMonth {
		return t.Format("2006-01")
	}
	return t.Format(DateLayout)
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Account) == "" {
		return ErrEmptyAccount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if t.L1Tag == "" || t.L2Tag == "" || t.L3Tag == "" {
		return ErrEmptyTag
	}
	return nil
}

// Spend is the amount as money going out: positive for expenses.
func (t Transaction) Spend() float64 {
	return -t.Amount
}
