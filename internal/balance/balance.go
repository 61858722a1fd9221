// Package balance turns per-period money flows into balance series.
//
// Both builders are pure: identical input yields bit-identical output, and
// neither keeps state between calls.
package balance

import "finances/internal/core"

// Series is an ordered sequence of labelled values. Labels and Values
// always have the same length.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len reports the number of points in s.
func (s Series) Len() int {
	return len(s.Values)
}

// Last returns the final value of s, or false when s is empty.
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// Cumulative computes the running balance of flows: the i-th value is the
// sum of Net over flows[0..i], added left to right. Flows must already be
// in ascending period order.
func Cumulative(flows []core.PeriodFlow) Series {
	out := Series{
		Labels: make([]string, 0, len(flows)),
		Values: make([]float64, 0, len(flows)),
	}
	var running float64
	for _, f := range flows {
		running += f.Net
		out.Labels = append(out.Labels, f.Label)
		out.Values = append(out.Values, running)
	}
	return out
}

// RollingAverage computes the moving average of s over window points.
//
// The result is absent (false) when s has fewer than window points, which
// callers must tell apart from an empty series. The first point is the mean
// of the first window values; every following point slides the previous
// mean by removing leaving/window and adding entering/window. The result
// is labelled with s's labels from index window-1 onwards.
func RollingAverage(s Series, window int) (Series, bool) {
	n := len(s.Values)
	if window < 1 || n < window {
		return Series{}, false
	}

	out := Series{
		Labels: make([]string, 0, n-window+1),
		Values: make([]float64, 0, n-window+1),
	}
	w := float64(window)

	var sum float64
	for _, v := range s.Values[:window] {
		sum += v
	}
	avg := sum / w
	out.Labels = append(out.Labels, s.Labels[window-1])
	out.Values = append(out.Values, avg)

	for i := window; i < n; i++ {
		avg = avg - s.Values[i-window]/w + s.Values[i]/w
		out.Labels = append(out.Labels, s.Labels[i])
		out.Values = append(out.Values, avg)
	}
	return out, true
}
