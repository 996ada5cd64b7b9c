// Package ratios computes cross-sectional financial ratios from resolved
// statement metrics and an optional market snapshot.
package ratios

import (
	"context"

	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/resolve"
	"statement_metrics/pkg/core/series"
)

// Ratio keys used in reports.
const (
	KeyROE                 = "roe"
	KeyROA                 = "roa"
	KeyGrossMargin         = "gross_margin"
	KeyOperatingMargin     = "operating_margin"
	KeyNetMargin           = "net_margin"
	KeyEBITDAMargin        = "ebitda_margin"
	KeyDebtToEquity        = "debt_to_equity"
	KeyDebtRatio           = "debt_ratio"
	KeyEquityRatio         = "equity_ratio"
	KeyInterestCoverage    = "interest_coverage"
	KeyAssetTurnover       = "asset_turnover"
	KeyInventoryTurnover   = "inventory_turnover"
	KeyReceivablesTurnover = "receivables_turnover"
	KeyRevenueGrowth       = "revenue_growth"
	KeyNetIncomeGrowth     = "net_income_growth"
	KeyEPSGrowth           = "eps_growth"
	KeyCurrentRatio        = "current_ratio"
	KeyQuickRatio          = "quick_ratio"
	KeyPriceToEarnings     = "pe_ratio"
	KeyPriceToBook         = "pb_ratio"
	KeyEVToEBITDA          = "ev_ebitda"
)

// Engine evaluates ratios for one company. It holds no state besides its
// inputs; the resolver memoizes the underlying series.
type Engine struct {
	resolver resolve.Resolver
	snapshot market.Snapshot
}

// New creates an engine. A zero snapshot is fine for statement-only ratios.
func New(r resolve.Resolver, snap market.Snapshot) *Engine {
	return &Engine{resolver: r, snapshot: snap}
}

func (e *Engine) latest(ctx context.Context, metric string) (float64, error) {
	s, err := e.resolver.Resolve(ctx, metric)
	if err != nil {
		return 0, err
	}
	return series.Latest(s)
}

func (e *Engine) latestAndPrevious(ctx context.Context, metric string) (float64, float64, error) {
	s, err := e.resolver.Resolve(ctx, metric)
	if err != nil {
		return 0, 0, err
	}
	return series.LatestAndPrevious(s)
}

// flowOverAverage is latest(flow) / avg(latest, previous of balance).
func (e *Engine) flowOverAverage(ctx context.Context, flow, balance string) (float64, error) {
	f, err := e.latest(ctx, flow)
	if err != nil {
		return 0, err
	}
	cur, prev, err := e.latestAndPrevious(ctx, balance)
	if err != nil {
		return 0, err
	}
	return Turnover(f, cur, prev), nil
}

func (e *Engine) quotient(ctx context.Context, numerator, denominator string) (float64, error) {
	n, err := e.latest(ctx, numerator)
	if err != nil {
		return 0, err
	}
	d, err := e.latest(ctx, denominator)
	if err != nil {
		return 0, err
	}
	return safeDiv(n, d), nil
}

func (e *Engine) growth(ctx context.Context, metric string) (float64, error) {
	cur, prev, err := e.latestAndPrevious(ctx, metric)
	if err != nil {
		return 0, err
	}
	return GrowthRate(cur, prev), nil
}

// =============================================================================
// PROFITABILITY
// =============================================================================

// ROE = NI / avg(Equity_t, Equity_t-1).
func (e *Engine) ROE(ctx context.Context) (float64, error) {
	return e.flowOverAverage(ctx, catalog.NetIncome, catalog.StockholdersEquity)
}

// ROA = NI / avg(Assets_t, Assets_t-1).
func (e *Engine) ROA(ctx context.Context) (float64, error) {
	return e.flowOverAverage(ctx, catalog.NetIncome, catalog.TotalAssets)
}

func (e *Engine) GrossMargin(ctx context.Context) (float64, error) {
	return e.quotient(ctx, catalog.GrossProfit, catalog.TotalRevenue)
}

func (e *Engine) OperatingMargin(ctx context.Context) (float64, error) {
	return e.quotient(ctx, catalog.OperatingIncome, catalog.TotalRevenue)
}

func (e *Engine) NetMargin(ctx context.Context) (float64, error) {
	return e.quotient(ctx, catalog.NetIncome, catalog.TotalRevenue)
}

func (e *Engine) EBITDAMargin(ctx context.Context) (float64, error) {
	return e.quotient(ctx, catalog.EBITDA, catalog.TotalRevenue)
}

// =============================================================================
// LEVERAGE
// =============================================================================

func (e *Engine) DebtToEquity(ctx context.Context) (float64, error) {
	return e.quotient(ctx, catalog.TotalDebt, catalog.StockholdersEquity)
}

func (e *Engine) DebtRatio(ctx context.Context) (float64, error) {
	return e.quotient(ctx, catalog.TotalDebt, catalog.TotalAssets)
}

func (e *Engine) EquityRatio(ctx context.Context) (float64, error) {
	return e.quotient(ctx, catalog.StockholdersEquity, catalog.TotalAssets)
}

// InterestCoverage is +Inf when interest expense is zero.
func (e *Engine) InterestCoverage(ctx context.Context) (float64, error) {
	ebit, err := e.latest(ctx, catalog.EBIT)
	if err != nil {
		return 0, err
	}
	interest, err := e.latest(ctx, catalog.InterestExpense)
	if err != nil {
		return 0, err
	}
	return InterestCoverage(ebit, interest), nil
}

// =============================================================================
// EFFICIENCY
// =============================================================================

func (e *Engine) AssetTurnover(ctx context.Context) (float64, error) {
	return e.flowOverAverage(ctx, catalog.TotalRevenue, catalog.TotalAssets)
}

// InventoryTurnover uses cost of revenue as the flow.
func (e *Engine) InventoryTurnover(ctx context.Context) (float64, error) {
	return e.flowOverAverage(ctx, catalog.CostOfRevenue, catalog.Inventory)
}

func (e *Engine) ReceivablesTurnover(ctx context.Context) (float64, error) {
	return e.flowOverAverage(ctx, catalog.TotalRevenue, catalog.AccountsReceivable)
}

// =============================================================================
// GROWTH
// =============================================================================

func (e *Engine) RevenueGrowth(ctx context.Context) (float64, error) {
	return e.growth(ctx, catalog.TotalRevenue)
}

func (e *Engine) NetIncomeGrowth(ctx context.Context) (float64, error) {
	return e.growth(ctx, catalog.NetIncome)
}

// EPSGrowth is undefined when previous EPS is zero or negative.
func (e *Engine) EPSGrowth(ctx context.Context) (float64, error) {
	cur, prev, err := e.latestAndPrevious(ctx, catalog.DilutedEPS)
	if err != nil {
		return 0, err
	}
	return positiveBase(KeyEPSGrowth, cur-prev, prev, "previous EPS")
}

// =============================================================================
// LIQUIDITY
// =============================================================================

func (e *Engine) CurrentRatio(ctx context.Context) (float64, error) {
	return e.quotient(ctx, catalog.CurrentAssets, catalog.CurrentLiabilities)
}

func (e *Engine) QuickRatio(ctx context.Context) (float64, error) {
	ca, err := e.latest(ctx, catalog.CurrentAssets)
	if err != nil {
		return 0, err
	}
	cl, err := e.latest(ctx, catalog.CurrentLiabilities)
	if err != nil {
		return 0, err
	}
	inv, err := e.latest(ctx, catalog.Inventory)
	if err != nil {
		return 0, err
	}
	return QuickRatio(ca, inv, cl), nil
}

// =============================================================================
// VALUATION MULTIPLES
// =============================================================================

// BookValuePerShare = latest equity / shares outstanding.
func (e *Engine) BookValuePerShare(ctx context.Context) (float64, error) {
	equity, err := e.latest(ctx, catalog.StockholdersEquity)
	if err != nil {
		return 0, err
	}
	shares, err := market.Require(e.snapshot.SharesOutstanding, market.FieldShares)
	if err != nil {
		return 0, err
	}
	if shares == 0 {
		return 0, outcome.New(outcome.ExternalDataUnavailable, market.FieldShares, "shares outstanding reported as zero")
	}
	return equity / shares, nil
}

// EnterpriseValue = market cap + latest debt - latest cash.
func (e *Engine) EnterpriseValue(ctx context.Context) (float64, error) {
	marketCap, err := market.Require(e.snapshot.MarketCap, market.FieldMarketCap)
	if err != nil {
		return 0, err
	}
	debt, err := e.latest(ctx, catalog.TotalDebt)
	if err != nil {
		return 0, err
	}
	cash, err := e.latest(ctx, catalog.CashAndEquivalents)
	if err != nil {
		return 0, err
	}
	return EnterpriseValue(marketCap, debt, cash), nil
}

// PriceToEarnings is undefined for zero or negative EPS.
func (e *Engine) PriceToEarnings(ctx context.Context) (float64, error) {
	price, err := market.Require(e.snapshot.Price, market.FieldPrice)
	if err != nil {
		return 0, err
	}
	eps, err := e.latest(ctx, catalog.DilutedEPS)
	if err != nil {
		return 0, err
	}
	return positiveBase(KeyPriceToEarnings, price, eps, "EPS")
}

// PriceToBook is undefined for zero or negative book value per share.
func (e *Engine) PriceToBook(ctx context.Context) (float64, error) {
	price, err := market.Require(e.snapshot.Price, market.FieldPrice)
	if err != nil {
		return 0, err
	}
	bvps, err := e.BookValuePerShare(ctx)
	if err != nil {
		return 0, err
	}
	return positiveBase(KeyPriceToBook, price, bvps, "book value per share")
}

// EVToEBITDA is undefined for zero or negative EBITDA.
func (e *Engine) EVToEBITDA(ctx context.Context) (float64, error) {
	ev, err := e.EnterpriseValue(ctx)
	if err != nil {
		return 0, err
	}
	ebitda, err := e.latest(ctx, catalog.EBITDA)
	if err != nil {
		return 0, err
	}
	return positiveBase(KeyEVToEBITDA, ev, ebitda, "EBITDA")
}
