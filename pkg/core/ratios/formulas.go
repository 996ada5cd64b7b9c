package ratios

import (
	"math"

	"statement_metrics/pkg/core/outcome"
)

// =============================================================================
// PURE FORMULAS
// Magnitude ratios report a degenerate base as 0. Per-share and multiple
// ratios instead report DivisionUndefined near their boundaries.
// =============================================================================

func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func average(a, b float64) float64 {
	return (a + b) / 2
}

// ReturnOnAverage divides a flow by the average of two balance figures.
// ROE = NI / avg(Equity), ROA = NI / avg(Assets).
func ReturnOnAverage(flow, current, previous float64) float64 {
	return safeDiv(flow, average(current, previous))
}

// Margin = line / revenue.
func Margin(line, revenue float64) float64 {
	return safeDiv(line, revenue)
}

// Turnover = flow / avg(balance).
func Turnover(flow, current, previous float64) float64 {
	return safeDiv(flow, average(current, previous))
}

// GrowthRate = (current - prior) / prior, 0 when prior is 0.
func GrowthRate(current, prior float64) float64 {
	return safeDiv(current-prior, prior)
}

// CurrentRatio = CA / CL.
func CurrentRatio(currentAssets, currentLiabilities float64) float64 {
	return safeDiv(currentAssets, currentLiabilities)
}

// QuickRatio = (CA - Inventory) / CL.
func QuickRatio(currentAssets, inventory, currentLiabilities float64) float64 {
	return safeDiv(currentAssets-inventory, currentLiabilities)
}

// InterestCoverage = EBIT / interest. No interest means unbounded coverage.
func InterestCoverage(ebit, interestExpense float64) float64 {
	if interestExpense == 0 {
		return math.Inf(1)
	}
	return ebit / interestExpense
}

// EnterpriseValue = market cap + debt - cash.
func EnterpriseValue(marketCap, debt, cash float64) float64 {
	return marketCap + debt - cash
}

// positiveBase divides by a base that must be strictly positive.
func positiveBase(name string, numerator, base float64, what string) (float64, error) {
	if base <= 0 {
		return 0, outcome.New(outcome.DivisionUndefined, name, "%s is zero or negative (%g)", what, base)
	}
	return numerator / base, nil
}
