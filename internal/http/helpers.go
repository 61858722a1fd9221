package http

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"finances/internal/balance"
	"finances/internal/core"
)

var templateFuncs = template.FuncMap{
	"amount":  formatAmount,
	"date":    func(t time.Time) string { return t.Format(core.DateLayout) },
	"percent": func(f float64) string { return strconv.FormatFloat(f*100, 'f', 0, 64) + "%" },
	"spend": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return formatAmount(*v)
	},
	"add": func(a, b int) int { return a + b },
}

// formatAmount renders an amount with two decimals and a thousands
// separator, e.g. "-1,234.50".
func formatAmount(v float64) string {
	neg := v < 0
	s := core.FormatAmount(math.Abs(v))
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg && out != "0.00" {
		return "-" + out
	}
	return out
}

// today truncates now to a UTC calendar day.
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// barWidth scales v against max as a rounded percentage. Non-zero values
// get at least 2% so they stay visible.
func barWidth(v, max float64) int {
	if max <= 0 || v <= 0 {
		return 0
	}
	width := int(math.Round(v * 100 / max))
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// chart is an SVG polyline plot of one or two series sharing a y scale.
type chart struct {
	Width, Height int
	Balance       string
	Rolling       string
	Min, Max      string
	First, Last   string
}

const (
	chartWidth  = 800
	chartHeight = 240
)

// newChart projects cumulative (and rolling, when present) into SVG
// coordinates. Rolling points align with the right end of the x axis.
func newChart(cumulative balance.Series, rolling *balance.Series) chart {
	c := chart{Width: chartWidth, Height: chartHeight}
	n := cumulative.Len()
	if n == 0 {
		return c
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range cumulative.Values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if rolling != nil {
		for _, v := range rolling.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi == lo {
		hi, lo = hi+1, lo-1
	}

	x := func(i int) float64 {
		if n == 1 {
			return chartWidth / 2
		}
		return float64(i) * chartWidth / float64(n-1)
	}
	y := func(v float64) float64 {
		return chartHeight - (v-lo)*chartHeight/(hi-lo)
	}
	points := func(values []float64, start int) string {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprintf("%.1f,%.1f", x(start+i), y(v))
		}
		return strings.Join(parts, " ")
	}

	c.Balance = points(cumulative.Values, 0)
	if rolling != nil {
		c.Rolling = points(rolling.Values, n-rolling.Len())
	}
	c.Min, c.Max = formatAmount(lo), formatAmount(hi)
	c.First, c.Last = cumulative.Labels[0], cumulative.Labels[n-1]
	return c
}
