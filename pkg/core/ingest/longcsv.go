// Package ingest reads long-format financial CSV files (Year,Metric,Value)
// and pivots them into a wide per-year table usable as a statement source.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/statement"
)

// RequiredColumns are the header names a long CSV must carry.
var RequiredColumns = []string{"Year", "Metric", "Value"}

// Wide is a long CSV pivoted to one row per metric keyed by year.
type Wide struct {
	years   []int
	metrics map[string]map[int]float64
}

// Years returns the years present, ascending.
func (w *Wide) Years() []int { return append([]int(nil), w.years...) }

// Metrics returns the metric names, sorted.
func (w *Wide) Metrics() []string {
	out := make([]string, 0, len(w.metrics))
	for m := range w.metrics {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Value returns the value of metric for year.
func (w *Wide) Value(metric string, year int) (float64, bool) {
	v, ok := w.metrics[metric][year]
	return v, ok
}

// ReadFile opens and reads a long CSV.
func ReadFile(path string) (*Wide, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadLong(f)
}

// ReadLong reads a long CSV. The header must name Year, Metric and Value in
// any order. Rows with an unparsable year or value, or an empty metric, are
// dropped. For a duplicated (Year, Metric) the first row wins.
func ReadLong(r io.Reader) (*Wide, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}
	yi, mi, vi := idx["Year"], idx["Metric"], idx["Value"]

	w := &Wide{metrics: make(map[string]map[int]float64)}
	seenYear := make(map[int]bool)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(rec) <= yi || len(rec) <= mi || len(rec) <= vi {
			continue
		}
		year, err := parseYear(rec[yi])
		if err != nil {
			continue
		}
		metric := strings.TrimSpace(rec[mi])
		if metric == "" {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(rec[vi]), 64)
		if err != nil {
			continue
		}

		row := w.metrics[metric]
		if row == nil {
			row = make(map[int]float64)
			w.metrics[metric] = row
		}
		if _, dup := row[year]; dup {
			continue
		}
		row[year] = value
		if !seenYear[year] {
			seenYear[year] = true
			w.years = append(w.years, year)
		}
	}
	sort.Ints(w.years)
	return w, nil
}

// parseYear accepts integers and integral floats such as "2023.0".
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return int(f), nil
}

// lineItems maps the compact column names used in long CSV exports to
// catalog line items. Other names pass through unchanged.
var lineItems = map[string]string{
	"Revenue":                  catalog.TotalRevenue,
	"TotalRevenue":             catalog.TotalRevenue,
	"CostOfRevenue":            catalog.CostOfRevenue,
	"GrossProfit":              catalog.GrossProfit,
	"OperatingIncome":          catalog.OperatingIncome,
	"OperatingExpense":         catalog.OperatingExpense,
	"NetIncome":                catalog.NetIncome,
	"InterestExpense":          catalog.InterestExpense,
	"EBT":                      catalog.PretaxIncome,
	"PretaxIncome":             catalog.PretaxIncome,
	"TaxExpense":               catalog.TaxProvision,
	"TaxProvision":             catalog.TaxProvision,
	"DepreciationAmortization": catalog.DepreciationAmort,
	"DilutedEPS":               catalog.DilutedEPS,
	"TotalAssets":              catalog.TotalAssets,
	"CurrentAssets":            catalog.CurrentAssets,
	"CurrentLiabilities":       catalog.CurrentLiabilities,
	"AccountsReceivable":       catalog.AccountsReceivable,
	"StockholdersEquity":       catalog.StockholdersEquity,
	"TotalLiabilities":         catalog.TotalLiabilities,
	"TotalDebt":                catalog.TotalDebt,
	"ShortTermDebt":            catalog.ShortTermDebt,
	"LongTermDebt":             catalog.LongTermDebt,
	"Cash":                     catalog.CashAndEquivalents,
	"NetPPE":                   catalog.NetPPE,
}

// LineItem returns the statement line item a CSV metric maps to.
func LineItem(metric string) string {
	if li, ok := lineItems[metric]; ok {
		return li
	}
	return metric
}

// Table converts the wide data into a statement table keyed by year-end
// periods. When two CSV metrics map to the same line item the one reported
// under the line item's own name wins.
func (w *Wide) Table() *statement.Table {
	periods := make([]statement.Period, len(w.years))
	for i, y := range w.years {
		periods[i] = statement.YearPeriod(y)
	}
	rows := make(map[string]statement.Row, len(w.metrics))
	for _, metric := range w.Metrics() {
		name := LineItem(metric)
		if _, taken := rows[name]; taken && name != metric {
			continue
		}
		row := make(statement.Row, len(w.metrics[metric]))
		for y, v := range w.metrics[metric] {
			row[statement.YearPeriod(y).Label] = v
		}
		rows[name] = row
	}
	return statement.NewTable(periods, rows)
}

// Source exposes the table as both statements. Lookups go by line item, so
// one combined table serves income and balance metrics alike.
func (w *Wide) Source() *statement.MemorySource {
	t := w.Table()
	return &statement.MemorySource{IncomeTable: t, BalanceTable: t}
}
