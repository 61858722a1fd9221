package core

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate parses a YYYY-MM-DD calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// DaysInMonth returns the number of days of t's month.
func DaysInMonth(t time.Time) int {
	return MonthStart(t).AddDate(0, 1, -1).Day()
}

// MonthStart truncates t to the first day of its month, UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns the half-open interval [start, end) covering t's month.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := MonthStart(t)
	return start, start.AddDate(0, 1, 0)
}
