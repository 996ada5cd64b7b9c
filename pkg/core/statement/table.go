// Package statement models the raw statement tables a market-data
// collaborator exposes: line items keyed by vendor name, each a row of
// per-period values with periods ordered most-recent-first.
package statement

import (
	"context"
	"encoding/json"
	"math"
	"sort"
)

// Row maps a period label to its value. A period without a key is absent.
type Row map[string]float64

// Table is an immutable statement table.
type Table struct {
	periods []Period
	rows    map[string]Row
}

// NewTable builds a table. Periods are sorted most-recent-first when every
// label is a date; otherwise the input order is kept as is. Duplicate labels
// keep their first occurrence and cells for unknown periods are dropped.
func NewTable(periods []Period, rows map[string]Row) *Table {
	seen := make(map[string]bool, len(periods))
	ps := make([]Period, 0, len(periods))
	for _, p := range periods {
		if seen[p.Label] {
			continue
		}
		seen[p.Label] = true
		ps = append(ps, p)
	}

	allDated := len(ps) > 0
	for _, p := range ps {
		if !p.Dated() {
			allDated = false
			break
		}
	}
	if allDated {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Date.After(ps[j].Date) })
	}

	t := &Table{periods: ps, rows: make(map[string]Row, len(rows))}
	for name, row := range rows {
		r := make(Row, len(row))
		for label, v := range row {
			if seen[label] {
				r[label] = v
			}
		}
		t.rows[name] = r
	}
	return t
}

// FromSlices builds a table from period labels and positional values.
// NaN marks an absent cell.
func FromSlices(labels []string, values map[string][]float64) *Table {
	rows := make(map[string]Row, len(values))
	for name, vs := range values {
		r := make(Row, len(vs))
		for i, v := range vs {
			if i >= len(labels) || math.IsNaN(v) {
				continue
			}
			r[labels[i]] = v
		}
		rows[name] = r
	}
	return NewTable(ParsePeriods(labels...), rows)
}

// Empty returns a table without periods or rows.
func Empty() *Table { return NewTable(nil, nil) }

// Periods returns the period keys, most recent first.
func (t *Table) Periods() []Period {
	return append([]Period(nil), t.periods...)
}

// Row returns a copy of the named line item.
func (t *Table) Row(name string) (Row, bool) {
	r, ok := t.rows[name]
	if !ok {
		return nil, false
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out, true
}

// Has reports whether the line item exists, even if all its cells are absent.
func (t *Table) Has(name string) bool {
	_, ok := t.rows[name]
	return ok
}

// LineItems returns the line item names, sorted.
func (t *Table) LineItems() []string {
	out := make([]string, 0, len(t.rows))
	for k := range t.rows {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type tableJSON struct {
	Periods []string       `json:"periods"`
	Rows    map[string]Row `json:"rows"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	labels := make([]string, len(t.periods))
	for i, p := range t.periods {
		labels[i] = p.Label
	}
	return json.Marshal(tableJSON{Periods: labels, Rows: t.rows})
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var tj tableJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return err
	}
	*t = *NewTable(ParsePeriods(tj.Periods...), tj.Rows)
	return nil
}

// Source exposes the two statement tables of one company.
type Source interface {
	Income(ctx context.Context) (*Table, error)
	Balance(ctx context.Context) (*Table, error)
}

// MemorySource serves pre-built tables. Nil tables are served as empty.
type MemorySource struct {
	IncomeTable  *Table
	BalanceTable *Table
}

func (m *MemorySource) Income(context.Context) (*Table, error) {
	if m.IncomeTable == nil {
		return Empty(), nil
	}
	return m.IncomeTable, nil
}

func (m *MemorySource) Balance(context.Context) (*Table, error) {
	if m.BalanceTable == nil {
		return Empty(), nil
	}
	return m.BalanceTable, nil
}
