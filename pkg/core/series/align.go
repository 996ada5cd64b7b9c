package series

import (
	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/statement"
)

// Align restricts every series to the periods where all of them carry a
// value. The window order of the first series is kept. A period missing from
// any input is dropped from every output; nothing is filled.
func Align(ss ...Series) []Series {
	if len(ss) == 0 {
		return nil
	}
	window := make([]statement.Period, 0, len(ss[0].periods))
	for _, p := range ss[0].periods {
		inAll := true
		for _, s := range ss {
			if _, ok := s.values[p.Label]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			window = append(window, p)
		}
	}
	out := make([]Series, len(ss))
	for i, s := range ss {
		out[i] = New(s.Metric, window, s.values)
	}
	return out
}

// Combine applies a derivation operator across operand series. Cells absent
// from an operand count as zero. A period outside an operand's window makes
// the result absent at that period.
func Combine(metric string, op catalog.Operator, operands ...Series) Series {
	var union []statement.Period
	seen := map[string]bool{}
	for _, s := range operands {
		for _, p := range s.periods {
			if !seen[p.Label] {
				seen[p.Label] = true
				union = append(union, p)
			}
		}
	}
	sortRecentFirst(union)

	values := make(map[string]float64, len(union))
	for _, p := range union {
		var acc float64
		covered := true
		for i, s := range operands {
			if !s.inWindow(p.Label) {
				covered = false
				break
			}
			v := s.values[p.Label]
			switch {
			case i == 0:
				acc = v
			case op == catalog.Subtract:
				acc -= v
			default:
				acc += v
			}
		}
		if covered {
			values[p.Label] = acc
		}
	}
	return New(metric, union, values)
}

func (s Series) inWindow(label string) bool {
	for _, p := range s.periods {
		if p.Label == label {
			return true
		}
	}
	return false
}

// Apply evaluates fn per period over aligned inputs. Periods where any input
// lacks a value are absent in the result.
func Apply(metric string, fn func(v []float64) float64, ss ...Series) Series {
	if len(ss) == 0 {
		return New(metric, nil, nil)
	}
	values := make(map[string]float64, len(ss[0].periods))
	args := make([]float64, len(ss))
	for _, p := range ss[0].periods {
		ok := true
		for i, s := range ss {
			v, present := s.values[p.Label]
			if !present {
				ok = false
				break
			}
			args[i] = v
		}
		if ok {
			values[p.Label] = fn(args)
		}
	}
	return New(metric, ss[0].periods, values)
}

// Delta returns x_t - x_{t-1} per period where t-1 is the chronologically
// preceding period of the window. The earliest period is 0.
func Delta(metric string, s Series) Series {
	prev := Predecessors(s.periods)
	values := make(map[string]float64, len(s.periods))
	for _, p := range s.periods {
		cur, ok := s.values[p.Label]
		if !ok {
			continue
		}
		pl, has := prev[p.Label]
		if !has {
			values[p.Label] = 0
			continue
		}
		if pv, ok := s.values[pl]; ok {
			values[p.Label] = cur - pv
		}
	}
	return New(metric, s.periods, values)
}

// Constant is a series holding v at every period of the window.
func Constant(metric string, periods []statement.Period, v float64) Series {
	values := make(map[string]float64, len(periods))
	for _, p := range periods {
		values[p.Label] = v
	}
	return New(metric, periods, values)
}

// Reindex places s on another window, keeping values at shared labels.
func Reindex(s Series, periods []statement.Period) Series {
	return New(s.Metric, periods, s.values)
}

// FillForwardBackward fills gaps on the window: first carrying the last
// known earlier value forward in time, then carrying the earliest known
// value back to the start of the window.
func FillForwardBackward(s Series, periods []statement.Period) Series {
	chrono := Chronological(periods)
	values := make(map[string]float64, len(chrono))
	var last float64
	var have bool
	for _, p := range chrono {
		if v, ok := s.values[p.Label]; ok {
			last, have = v, true
		}
		if have {
			values[p.Label] = last
		}
	}
	have = false
	for i := len(chrono) - 1; i >= 0; i-- {
		p := chrono[i]
		if v, ok := values[p.Label]; ok {
			last, have = v, true
			continue
		}
		if have {
			values[p.Label] = last
		}
	}
	return New(s.Metric, periods, values)
}

// Clip bounds every value to [lo, hi].
func Clip(s Series, lo, hi float64) Series {
	return Apply(s.Metric, func(v []float64) float64 {
		switch {
		case v[0] < lo:
			return lo
		case v[0] > hi:
			return hi
		}
		return v[0]
	}, s)
}
