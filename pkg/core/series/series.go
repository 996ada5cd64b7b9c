// Package series holds resolved per-period metric values and the helpers
// that align and combine them.
package series

import (
	"sort"

	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/statement"
)

// Series is a resolved metric over an ordered period window (most recent
// first). A period in the window may have no value.
type Series struct {
	Metric  string
	periods []statement.Period
	values  map[string]float64
}

// New builds a series. Values for labels outside periods are dropped.
func New(metric string, periods []statement.Period, values map[string]float64) Series {
	s := Series{
		Metric:  metric,
		periods: append([]statement.Period(nil), periods...),
		values:  make(map[string]float64, len(values)),
	}
	for _, p := range s.periods {
		if v, ok := values[p.Label]; ok {
			s.values[p.Label] = v
		}
	}
	return s
}

// FromRow wraps a statement row over the table's period window.
func FromRow(metric string, periods []statement.Period, row statement.Row) Series {
	return New(metric, periods, row)
}

// Periods returns the full window, including periods without a value.
func (s Series) Periods() []statement.Period {
	return append([]statement.Period(nil), s.periods...)
}

// Get returns the value at a period label.
func (s Series) Get(label string) (float64, bool) {
	v, ok := s.values[label]
	return v, ok
}

// Len is the window length.
func (s Series) Len() int { return len(s.periods) }

// Present returns the periods that carry a value, in window order.
func (s Series) Present() []statement.Period {
	out := make([]statement.Period, 0, len(s.values))
	for _, p := range s.periods {
		if _, ok := s.values[p.Label]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Empty reports whether no period carries a value.
func (s Series) Empty() bool { return len(s.values) == 0 }

// Rename returns the same values under another metric name.
func (s Series) Rename(metric string) Series {
	return New(metric, s.periods, s.values)
}

// Values returns the present values in window order.
func (s Series) Values() []float64 {
	out := make([]float64, 0, len(s.values))
	for _, p := range s.periods {
		if v, ok := s.values[p.Label]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Latest returns the first present value, most recent first.
func Latest(s Series) (float64, error) {
	vals := s.Values()
	if len(vals) < 1 {
		return 0, outcome.New(outcome.InsufficientPeriods, s.Metric, "need at least one period, got 0")
	}
	return vals[0], nil
}

// LatestAndPrevious returns the first two present values.
func LatestAndPrevious(s Series) (float64, float64, error) {
	vals := s.Values()
	if len(vals) < 2 {
		return 0, 0, outcome.New(outcome.InsufficientPeriods, s.Metric, "need at least two periods, got %d", len(vals))
	}
	return vals[0], vals[1], nil
}

// Chronological returns the periods oldest first. Dated windows are ordered
// by date; a window with any undated period is taken to be most-recent-first
// already and is reversed.
func Chronological(periods []statement.Period) []statement.Period {
	out := append([]statement.Period(nil), periods...)
	if allDated(out) {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
		return out
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Predecessors maps each period label to the label of the chronologically
// preceding period in the window. The earliest period has no entry.
func Predecessors(periods []statement.Period) map[string]string {
	chrono := Chronological(periods)
	out := make(map[string]string, len(chrono))
	for i := 1; i < len(chrono); i++ {
		out[chrono[i].Label] = chrono[i-1].Label
	}
	return out
}

func allDated(periods []statement.Period) bool {
	for _, p := range periods {
		if !p.Dated() {
			return false
		}
	}
	return true
}

func sortRecentFirst(periods []statement.Period) {
	if allDated(periods) {
		sort.SliceStable(periods, func(i, j int) bool { return periods[i].Date.After(periods[j].Date) })
	}
}
