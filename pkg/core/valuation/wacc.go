// Package valuation estimates the weighted average cost of capital from
// statement metrics and external market data.
package valuation

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/resolve"
	"statement_metrics/pkg/core/series"
)

// DefaultTaxRate is used when tax provision or pretax income cannot be
// resolved at all.
const DefaultTaxRate = 0.21

// MetricWACC names WACC-level outcomes.
const MetricWACC = "WACC"

// CAPM computes the cost of equity.
//
// FORMULA: r_e = r_f + β × ERP
func CAPM(riskFreeRate, beta, equityRiskPremium float64) float64 {
	return riskFreeRate + beta*equityRiskPremium
}

// Weighted combines the rates by capital weights.
//
// FORMULA: WACC = w_e × r_e + w_d × r_d × (1 - T)
func Weighted(weightEquity, costOfEquity, weightDebt, costOfDebt, taxRate float64) float64 {
	return weightEquity*costOfEquity + weightDebt*costOfDebt*(1-taxRate)
}

// MarketValues is the capital structure used for weights.
type MarketValues struct {
	Equity float64 `json:"equity"`
	Debt   float64 `json:"debt"`
}

// Result holds the WACC and every component.
type Result struct {
	CostOfEquity float64      `json:"cost_of_equity"`
	CostOfDebt   float64      `json:"cost_of_debt"`
	TaxRate      float64      `json:"tax_rate"`
	WeightEquity float64      `json:"weight_equity"`
	WeightDebt   float64      `json:"weight_debt"`
	WACC         float64      `json:"wacc"`
	Market       MarketValues `json:"market_values"`
}

// Engine computes WACC for one company.
type Engine struct {
	resolver resolve.Resolver
	snapshot market.Snapshot
	logger   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates a WACC engine.
func New(r resolve.Resolver, snap market.Snapshot, opts ...Option) *Engine {
	e := &Engine{resolver: r, snapshot: snap, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CostOfEquity applies CAPM with the snapshot beta.
func (e *Engine) CostOfEquity(riskFreeRate, equityRiskPremium float64) (float64, error) {
	beta, err := market.Require(e.snapshot.Beta, market.FieldBeta)
	if err != nil {
		e.logger.Warn().Msg("beta not available, cannot compute cost of equity")
		return 0, err
	}
	return CAPM(riskFreeRate, beta, equityRiskPremium), nil
}

// CostOfDebt = |interest expense / total debt| on the latest period, 0 when
// there is no debt.
func (e *Engine) CostOfDebt(ctx context.Context) (float64, error) {
	interest, err := e.latest(ctx, catalog.InterestExpense)
	if err != nil {
		return 0, err
	}
	debt, err := e.latest(ctx, catalog.TotalDebt)
	if err != nil {
		return 0, err
	}
	if debt == 0 {
		return 0, nil
	}
	return math.Abs(interest / debt), nil
}

// EffectiveTaxRate = tax provision / pretax income on the latest period.
// Zero or negative pretax income gives 0. When either series cannot be
// resolved at all the default rate applies.
func (e *Engine) EffectiveTaxRate(ctx context.Context) (float64, error) {
	provision, perr := e.resolver.Resolve(ctx, catalog.TaxProvision)
	pretax, berr := e.resolver.Resolve(ctx, catalog.PretaxIncome)
	for _, err := range []error{perr, berr} {
		if err != nil && !outcome.IsUnavailable(err) {
			return 0, err
		}
	}
	if perr != nil || berr != nil {
		e.logger.Warn().Float64("rate", DefaultTaxRate).Msg("tax provision or pretax income not found, using default tax rate")
		return DefaultTaxRate, nil
	}

	tax, err := series.Latest(provision)
	if err != nil {
		return 0, err
	}
	ebt, err := series.Latest(pretax)
	if err != nil {
		return 0, err
	}
	if ebt <= 0 {
		return 0, nil
	}
	return tax / ebt, nil
}

// MarketValues returns market capitalization and latest total debt.
func (e *Engine) MarketValues(ctx context.Context) (MarketValues, error) {
	marketCap, err := market.Require(e.snapshot.MarketCap, market.FieldMarketCap)
	if err != nil {
		e.logger.Warn().Msg("market cap not available")
		return MarketValues{}, err
	}
	debt, err := e.latest(ctx, catalog.TotalDebt)
	if err != nil {
		return MarketValues{}, err
	}
	return MarketValues{Equity: marketCap, Debt: debt}, nil
}

// Calculate computes WACC. Missing components make it unavailable with the
// component's own outcome; a zero total market value is DivisionUndefined.
func (e *Engine) Calculate(ctx context.Context, riskFreeRate, equityRiskPremium float64) (*Result, error) {
	mv, err := e.MarketValues(ctx)
	if err != nil {
		return nil, err
	}
	total := mv.Equity + mv.Debt
	if total == 0 {
		return nil, outcome.New(outcome.DivisionUndefined, MetricWACC, "total market value is zero")
	}

	re, err := e.CostOfEquity(riskFreeRate, equityRiskPremium)
	if err != nil {
		return nil, err
	}
	rd, err := e.CostOfDebt(ctx)
	if err != nil {
		return nil, err
	}
	tc, err := e.EffectiveTaxRate(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		CostOfEquity: re,
		CostOfDebt:   rd,
		TaxRate:      tc,
		WeightEquity: mv.Equity / total,
		WeightDebt:   mv.Debt / total,
		Market:       mv,
	}
	res.WACC = Weighted(res.WeightEquity, re, res.WeightDebt, rd, tc)
	e.logger.Debug().Float64("wacc", res.WACC).Msg("wacc computed")
	return res, nil
}

func (e *Engine) latest(ctx context.Context, metric string) (float64, error) {
	s, err := e.resolver.Resolve(ctx, metric)
	if err != nil {
		return 0, err
	}
	return series.Latest(s)
}
