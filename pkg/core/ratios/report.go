package ratios

import (
	"context"
	"encoding/json"
	"math"

	"statement_metrics/pkg/core/outcome"
)

// Family groups related ratios.
type Family string

const (
	Profitability Family = "profitability"
	Leverage      Family = "leverage"
	Efficiency    Family = "efficiency"
	Growth        Family = "growth"
	Liquidity     Family = "liquidity"
	Valuation     Family = "valuation"
)

// Families lists the families in report order.
var Families = []Family{Profitability, Leverage, Efficiency, Growth, Liquidity, Valuation}

// Definition names one ratio and how to compute it.
type Definition struct {
	Family  Family
	Key     string
	Label   string
	compute func(*Engine, context.Context) (float64, error)
}

var definitions = []Definition{
	{Profitability, KeyROE, "Return on Equity", (*Engine).ROE},
	{Profitability, KeyROA, "Return on Assets", (*Engine).ROA},
	{Profitability, KeyGrossMargin, "Gross Margin", (*Engine).GrossMargin},
	{Profitability, KeyOperatingMargin, "Operating Margin", (*Engine).OperatingMargin},
	{Profitability, KeyNetMargin, "Net Margin", (*Engine).NetMargin},
	{Profitability, KeyEBITDAMargin, "EBITDA Margin", (*Engine).EBITDAMargin},
	{Leverage, KeyDebtToEquity, "Debt to Equity", (*Engine).DebtToEquity},
	{Leverage, KeyDebtRatio, "Debt Ratio", (*Engine).DebtRatio},
	{Leverage, KeyEquityRatio, "Equity Ratio", (*Engine).EquityRatio},
	{Leverage, KeyInterestCoverage, "Interest Coverage", (*Engine).InterestCoverage},
	{Efficiency, KeyAssetTurnover, "Asset Turnover", (*Engine).AssetTurnover},
	{Efficiency, KeyInventoryTurnover, "Inventory Turnover", (*Engine).InventoryTurnover},
	{Efficiency, KeyReceivablesTurnover, "Receivables Turnover", (*Engine).ReceivablesTurnover},
	{Growth, KeyRevenueGrowth, "Revenue Growth", (*Engine).RevenueGrowth},
	{Growth, KeyNetIncomeGrowth, "Net Income Growth", (*Engine).NetIncomeGrowth},
	{Growth, KeyEPSGrowth, "EPS Growth", (*Engine).EPSGrowth},
	{Liquidity, KeyCurrentRatio, "Current Ratio", (*Engine).CurrentRatio},
	{Liquidity, KeyQuickRatio, "Quick Ratio", (*Engine).QuickRatio},
	{Valuation, KeyPriceToEarnings, "P/E", (*Engine).PriceToEarnings},
	{Valuation, KeyPriceToBook, "P/B", (*Engine).PriceToBook},
	{Valuation, KeyEVToEBITDA, "EV/EBITDA", (*Engine).EVToEBITDA},
}

// Definitions returns every ratio in report order.
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// Value is one ratio outcome: a number, or the kind of failure.
type Value struct {
	Number float64
	OK     bool
	Kind   outcome.Kind
	Detail string
}

func valueOf(v float64, err error) Value {
	if err == nil {
		return Value{Number: v, OK: true}
	}
	k, _ := outcome.KindOf(err)
	if root := outcome.Root(err); root != nil {
		k = root.Kind
	}
	return Value{Kind: k, Detail: err.Error()}
}

// MarshalJSON writes {"value": n} or {"kind": "...", "detail": "..."}.
// Infinite values are written as the strings "+Inf" / "-Inf".
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return json.Marshal(struct {
			Kind   outcome.Kind `json:"kind"`
			Detail string       `json:"detail"`
		}{v.Kind, v.Detail})
	}
	var n any = v.Number
	switch {
	case math.IsInf(v.Number, 1):
		n = "+Inf"
	case math.IsInf(v.Number, -1):
		n = "-Inf"
	}
	return json.Marshal(struct {
		Value any `json:"value"`
	}{n})
}

// Report holds every ratio for one company grouped by family.
type Report struct {
	Ticker   string                      `json:"ticker"`
	Families map[Family]map[string]Value `json:"families"`
}

// Get returns one ratio by key.
func (r *Report) Get(key string) (Value, bool) {
	for _, fam := range r.Families {
		if v, ok := fam[key]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Report evaluates every ratio. Unavailable ratios are recorded in the
// report; any other error aborts it.
func (e *Engine) Report(ctx context.Context, ticker string) (*Report, error) {
	r := &Report{Ticker: ticker, Families: make(map[Family]map[string]Value, len(Families))}
	for _, d := range definitions {
		v, err := d.compute(e, ctx)
		if err != nil && !outcome.IsUnavailable(err) {
			return nil, err
		}
		if r.Families[d.Family] == nil {
			r.Families[d.Family] = make(map[string]Value)
		}
		r.Families[d.Family][d.Key] = valueOf(v, err)
	}
	return r, nil
}
