// Package budget evaluates how far through the month and through the
// monthly budget the household is.
package budget

import (
	"time"

	"finances/internal/core"
)

// ProgressFraction returns elapsed/total. total must be positive; callers
// own that contract.
func ProgressFraction(elapsed, total int) float64 {
	return float64(elapsed) / float64(total)
}

// ProgressThroughMonth is the fraction of date's month that has elapsed,
// counting date's own day.
func ProgressThroughMonth(date time.Time) float64 {
	return ProgressFraction(date.Day(), core.DaysInMonth(date))
}

// Progress pairs the configured monthly budget with the month's spend.
// Spend is nil when nothing budgeted was recorded.
type Progress struct {
	Budget float64  `json:"budget"`
	Spend  *float64 `json:"spend"`
}

// SpendOrZero returns the spend, treating absent as zero.
func (p Progress) SpendOrZero() float64 {
	if p.Spend == nil {
		return 0
	}
	return *p.Spend
}

// Fraction is spend/budget. Budget must be positive.
func (p Progress) Fraction() float64 {
	return p.SpendOrZero() / p.Budget
}

// Remaining is the budget left to spend; negative once overspent.
func (p Progress) Remaining() float64 {
	return p.Budget - p.SpendOrZero()
}

// Report is the budget view for one day of one month.
type Report struct {
	Date     string   `json:"date"`
	Budget   float64  `json:"budget"`
	Spend    *float64 `json:"spend"`
	Progress float64  `json:"progress"`
	Expected float64  `json:"expected"`
	OnTrack  bool     `json:"on_track"`
}

// Evaluate builds the Report for date: spend progress is compared with the
// share of the month elapsed.
func Evaluate(p Progress, date time.Time) Report {
	r := Report{
		Date:     date.Format(core.DateLayout),
		Budget:   p.Budget,
		Spend:    p.Spend,
		Progress: p.Fraction(),
		Expected: ProgressThroughMonth(date),
	}
	r.OnTrack = r.Progress <= r.Expected
	return r
}
