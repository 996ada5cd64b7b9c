package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/ratios"
	"statement_metrics/pkg/core/statement"
)

func fixture() *statement.MemorySource {
	labels := []string{"2024-12-31", "2023-12-31"}
	return &statement.MemorySource{
		IncomeTable: statement.FromSlices(labels, map[string][]float64{
			"Total Revenue":                 {1000, 900},
			"Net Income":                    {100, 80},
			"EBIT":                          {200, 180},
			"Interest Expense":              {10, 9},
			"Tax Provision":                 {50, 45},
			"Pretax Income":                 {200, 180},
			"Depreciation And Amortization": {50, 40},
		}),
		BalanceTable: statement.FromSlices(labels, map[string][]float64{
			"Stockholders Equity":       {500, 480},
			"Total Assets":              {1200, 1100},
			"Total Debt":                {100, 100},
			"Net PPE":                   {300, 260},
			"Current Assets":            {400, 380},
			"Current Liabilities":       {150, 140},
			"Cash And Cash Equivalents": {50, 40},
			"Short Term Debt":           {20, 20},
		}),
	}
}

var fixedNow = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func TestAnalysisEngine_Analyze(t *testing.T) {
	ctx := context.Background()
	e := NewAnalysisEngine(nil, WithClock(func() time.Time { return fixedNow }))
	src := WithSnapshot(fixture(), market.Snapshot{Beta: market.Float(1.2), MarketCap: market.Float(900)})

	c, err := e.Open(ctx, " acme ", src)
	require.NoError(t, err)
	assert.Equal(t, "ACME", c.Ticker)

	a, err := c.Analyze(ctx, DefaultRiskFreeRate, DefaultEquityRiskPremium)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, a.LastAnalyzed)

	roe, ok := a.Ratios.Get(ratios.KeyROE)
	require.True(t, ok)
	assert.InDelta(t, 100/490.0, roe.Number, 1e-9)

	require.NotNil(t, a.Components())
	require.Len(t, a.FCFF, 2)
	assert.Equal(t, "2024-12-31", a.FCFF[0].Period)
	assert.InDelta(t, 110, a.FCFF[0].FCFF, 1e-9)
	assert.Nil(t, a.FCFFError)

	require.NotNil(t, a.WACC)
	assert.InDelta(t, 0.106, a.WACC.CostOfEquity, 1e-12)
	assert.InDelta(t, 0.1, a.WACC.CostOfDebt, 1e-12)
	assert.InDelta(t, 0.25, a.WACC.TaxRate, 1e-12)
	assert.InDelta(t, 0.1029, a.WACC.WACC, 1e-12)
	assert.Nil(t, a.WACCError)

	in := a.ReportInput()
	assert.Equal(t, "ACME", in.Ticker)
	assert.Same(t, a.Components(), in.FCFF)
}

func TestAnalyzeRecordsUnavailableSections(t *testing.T) {
	ctx := context.Background()
	src := fixture()
	c, err := NewAnalysisEngine(nil).Open(ctx, "ACME", WithSnapshot(&statement.MemorySource{
		IncomeTable:  src.IncomeTable,
		BalanceTable: statement.FromSlices([]string{"2024-12-31"}, map[string][]float64{"Total Assets": {1200}}),
	}, market.Snapshot{}))
	require.NoError(t, err)

	a, err := c.Analyze(ctx, DefaultRiskFreeRate, DefaultEquityRiskPremium)
	require.NoError(t, err)

	assert.Nil(t, a.Components())
	require.NotNil(t, a.FCFFError)
	assert.Equal(t, outcome.NotFound, a.FCFFError.Kind)

	assert.Nil(t, a.WACC)
	require.NotNil(t, a.WACCError)
	assert.Equal(t, outcome.ExternalDataUnavailable, a.WACCError.Kind)

	in := a.ReportInput()
	assert.Error(t, in.FCFFErr)
	assert.Error(t, in.WACCErr)
}

type failingSource struct {
	statement.MemorySource
	snapErr, fetchErr error
}

func (f *failingSource) Income(context.Context) (*statement.Table, error) {
	return nil, f.fetchErr
}

func (f *failingSource) Balance(context.Context) (*statement.Table, error) {
	return nil, f.fetchErr
}

func (f *failingSource) Snapshot(context.Context) (market.Snapshot, error) {
	return market.Snapshot{}, f.snapErr
}

func TestOpenAndAnalyzePropagateFetchErrors(t *testing.T) {
	ctx := context.Background()
	e := NewAnalysisEngine(nil)

	boom := errors.New("provider down")
	_, err := e.Open(ctx, "ACME", &failingSource{snapErr: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	c, err := e.Open(ctx, "ACME", &failingSource{fetchErr: boom})
	require.NoError(t, err)
	_, err = c.Analyze(ctx, DefaultRiskFreeRate, DefaultEquityRiskPremium)
	assert.ErrorIs(t, err, boom)
	assert.False(t, outcome.IsUnavailable(err))
}
