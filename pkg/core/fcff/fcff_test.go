package fcff

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/resolve"
	"statement_metrics/pkg/core/series"
	"statement_metrics/pkg/core/statement"
)

var twoYears = []string{"2024-12-31", "2023-12-31"}

func engineFor(labels []string, income, balance map[string][]float64) *Engine {
	src := &statement.MemorySource{
		IncomeTable:  statement.FromSlices(labels, income),
		BalanceTable: statement.FromSlices(labels, balance),
	}
	return New(resolve.NewSession(src, nil))
}

func scenarioIncome() map[string][]float64 {
	return map[string][]float64{
		"EBIT":                          {200, 180},
		"Tax Rate For Calcs":            {0.25, 0.25},
		"Depreciation And Amortization": {50, 40},
	}
}

func scenarioBalance() map[string][]float64 {
	return map[string][]float64{
		"Net PPE":                   {300, 260},
		"Current Assets":            {400, 380},
		"Current Liabilities":       {150, 140},
		"Cash And Cash Equivalents": {50, 40},
		"Short Term Debt":           {20, 20},
	}
}

func at(t *testing.T, s series.Series, label string) float64 {
	t.Helper()
	v, ok := s.Get(label)
	require.True(t, ok, "%s has no value at %s", s.Metric, label)
	return v
}

func TestComputeScenario(t *testing.T) {
	c, err := engineFor(twoYears, scenarioIncome(), scenarioBalance()).Compute(context.Background())
	require.NoError(t, err)

	latest := "2024-12-31"
	assert.InDelta(t, 150.0, at(t, c.NOPAT, latest), 1e-9)
	assert.InDelta(t, 90.0, at(t, c.Capex, latest), 1e-9)
	assert.InDelta(t, 220.0, at(t, c.NWC, latest), 1e-9)
	assert.InDelta(t, 220.0, at(t, c.NWC, "2023-12-31"), 1e-9)
	assert.InDelta(t, 0.0, at(t, c.DeltaNWC, latest), 1e-9)
	assert.InDelta(t, 110.0, at(t, c.FCFF, latest), 1e-9)
	assert.Equal(t, TaxFromExplicit, c.TaxSource)

	// earliest period has no predecessor
	assert.Equal(t, 0.0, at(t, c.DeltaNWC, "2023-12-31"))
	assert.InDelta(t, 40.0, at(t, c.Capex, "2023-12-31"), 1e-9)
	assert.InDelta(t, 135.0, at(t, c.FCFF, "2023-12-31"), 1e-9)

	v, err := c.Latest()
	require.NoError(t, err)
	assert.InDelta(t, 110.0, v, 1e-9)
}

func TestRows(t *testing.T) {
	c, err := engineFor(twoYears, scenarioIncome(), scenarioBalance()).Compute(context.Background())
	require.NoError(t, err)

	rows := c.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 2024, rows[0].Year)
	assert.InDelta(t, 110.0, rows[0].FCFF, 1e-9)
	assert.InDelta(t, 0.25, rows[0].TaxRate, 1e-9)

	chrono := c.ChronologicalRows()
	assert.Equal(t, 2023, chrono[0].Year)
	assert.Equal(t, 2024, chrono[1].Year)
}

func TestLatestFCFF(t *testing.T) {
	v, err := engineFor(twoYears, scenarioIncome(), scenarioBalance()).LatestFCFF(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 110.0, v, 1e-9)
}

func TestSinglePeriodDeltaIsZero(t *testing.T) {
	income := map[string][]float64{
		"EBIT":                          {200},
		"Tax Rate For Calcs":            {0.25},
		"Depreciation And Amortization": {50},
	}
	balance := map[string][]float64{
		"Net PPE":             {300},
		"Current Assets":      {400},
		"Current Liabilities": {150},
	}
	c, err := engineFor([]string{"2024-12-31"}, income, balance).Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, at(t, c.DeltaNWC, "2024-12-31"))
	// capex = 0 + 50; cash and short-term debt count as zero
	assert.InDelta(t, 50.0, at(t, c.Capex, "2024-12-31"), 1e-9)
	assert.InDelta(t, 250.0, at(t, c.NWC, "2024-12-31"), 1e-9)
	assert.InDelta(t, 150.0, at(t, c.FCFF, "2024-12-31"), 1e-9)
}

func TestRequiredInputUnavailable(t *testing.T) {
	balance := scenarioBalance()
	delete(balance, "Current Assets")

	_, err := engineFor(twoYears, scenarioIncome(), balance).Compute(context.Background())
	require.Error(t, err)
	var u *outcome.Unavailable
	require.ErrorAs(t, err, &u)
	assert.Equal(t, outcome.OperandUnavailable, u.Kind)
	assert.Equal(t, MetricFCFF, u.Metric)
	assert.Contains(t, u.Detail, catalog.CurrentAssets)
	assert.Equal(t, outcome.NotFound, outcome.Root(err).Kind)
}

func TestEBITFallsBackToOperatingIncome(t *testing.T) {
	income := scenarioIncome()
	delete(income, "EBIT")
	income["Operating Income"] = []float64{160, 140}

	c, err := engineFor(twoYears, income, scenarioBalance()).Compute(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 120.0, at(t, c.NOPAT, "2024-12-31"), 1e-9)
}

func TestBlankOptionalRowDefaultsToZero(t *testing.T) {
	balance := scenarioBalance()
	balance["Short Term Debt"] = []float64{math.NaN(), math.NaN()}

	c, err := engineFor(twoYears, scenarioIncome(), balance).Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Periods, 2)
	// (400-50)-(150-0) and (380-40)-(140-0)
	assert.InDelta(t, 200.0, at(t, c.NWC, "2024-12-31"), 1e-9)
	assert.InDelta(t, 200.0, at(t, c.NWC, "2023-12-31"), 1e-9)
	assert.InDelta(t, 0.0, at(t, c.DeltaNWC, "2024-12-31"), 1e-9)

	v, err := c.Latest()
	require.NoError(t, err)
	assert.InDelta(t, 110.0, v, 1e-9)

	t.Run("blank cash", func(t *testing.T) {
		balance := scenarioBalance()
		balance["Cash And Cash Equivalents"] = []float64{math.NaN(), math.NaN()}
		c, err := engineFor(twoYears, scenarioIncome(), balance).Compute(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 270.0, at(t, c.NWC, "2024-12-31"), 1e-9)
		assert.InDelta(t, 260.0, at(t, c.NWC, "2023-12-31"), 1e-9)
		v, err := c.Latest()
		require.NoError(t, err)
		assert.InDelta(t, 100.0, v, 1e-9)
	})
}

func TestAlignmentDropsPartialPeriods(t *testing.T) {
	labels := []string{"2024-12-31", "2023-12-31", "2022-12-31"}
	income := map[string][]float64{
		"EBIT":                          {200, 180, 170},
		"Tax Rate For Calcs":            {0.25, 0.25, 0.25},
		"Depreciation And Amortization": {50, math.NaN(), 30},
	}
	balance := map[string][]float64{
		"Net PPE":             {300, 260, 250},
		"Current Assets":      {400, 380, 370},
		"Current Liabilities": {150, 140, 130},
	}
	c, err := engineFor(labels, income, balance).Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Periods, 2)
	assert.Equal(t, "2024-12-31", c.Periods[0].Label)
	assert.Equal(t, "2022-12-31", c.Periods[1].Label)
	// predecessor of 2024 is 2022 once 2023 is dropped
	assert.InDelta(t, 50.0+50.0, at(t, c.Capex, "2024-12-31"), 1e-9)
}

func TestTaxRate(t *testing.T) {
	labels := []string{"2024-12-31", "2023-12-31", "2022-12-31"}
	window := statement.ParsePeriods(labels...)

	t.Run("provision over pretax is clipped and filled", func(t *testing.T) {
		e := engineFor(labels, map[string][]float64{
			"Tax Provision": {100, math.NaN(), 10},
			"Pretax Income": {100, 100, 50},
		}, nil)
		rate, source, err := e.TaxRate(context.Background(), window)
		require.NoError(t, err)
		assert.Equal(t, TaxFromStatement, source)
		assert.InDelta(t, 0.6, at(t, rate, "2024-12-31"), 1e-9)
		assert.InDelta(t, 0.2, at(t, rate, "2023-12-31"), 1e-9)
		assert.InDelta(t, 0.2, at(t, rate, "2022-12-31"), 1e-9)
	})

	t.Run("back fill covers the start of the window", func(t *testing.T) {
		e := engineFor(labels, map[string][]float64{
			"Tax Rate For Calcs": {0.3, math.NaN(), math.NaN()},
		}, nil)
		rate, source, err := e.TaxRate(context.Background(), window)
		require.NoError(t, err)
		assert.Equal(t, TaxFromExplicit, source)
		assert.Equal(t, []float64{0.3, 0.3, 0.3}, rate.Values())
	})

	t.Run("default rate when nothing resolves", func(t *testing.T) {
		e := engineFor(labels, map[string][]float64{"EBIT": {1, 2, 3}}, nil)
		rate, source, err := e.TaxRate(context.Background(), window)
		require.NoError(t, err)
		assert.Equal(t, TaxFromDefault, source)
		assert.Equal(t, []float64{DefaultTaxRate, DefaultTaxRate, DefaultTaxRate}, rate.Values())
	})

	t.Run("negative rates clip to zero", func(t *testing.T) {
		e := engineFor(labels, map[string][]float64{
			"Tax Provision": {-10, -10, -10},
			"Pretax Income": {100, 100, 100},
		}, nil)
		rate, _, err := e.TaxRate(context.Background(), window)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0, 0}, rate.Values())
	})
}

func TestPureComponents(t *testing.T) {
	periods := statement.ParsePeriods(twoYears...)
	s := func(metric string, a, b float64) series.Series {
		return series.New(metric, periods, map[string]float64{twoYears[0]: a, twoYears[1]: b})
	}
	nwc := NWC(s("ca", 400, 380), s("cash", 50, 40), s("cl", 150, 140), s("std", 20, 20))
	assert.Equal(t, []float64{220, 220}, nwc.Values())
	assert.Equal(t, []float64{0, 0}, DeltaNWC(nwc).Values())
	assert.Equal(t, []float64{90, 40}, Capex(s("ppe", 300, 260), s("da", 50, 40)).Values())
	assert.Equal(t, []float64{150, 135}, NOPAT(s("ebit", 200, 180), s("t", 0.25, 0.25)).Values())
}
