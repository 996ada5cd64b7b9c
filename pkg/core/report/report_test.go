package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_metrics/pkg/core/fcff"
	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/ratios"
	"statement_metrics/pkg/core/resolve"
	"statement_metrics/pkg/core/statement"
	"statement_metrics/pkg/core/valuation"
)

func input(t *testing.T) Input {
	t.Helper()
	labels := []string{"2024-12-31", "2023-12-31"}
	src := &statement.MemorySource{
		IncomeTable: statement.FromSlices(labels, map[string][]float64{
			"Total Revenue":                 {1000, 900},
			"Net Income":                    {100, 80},
			"EBIT":                          {200, 180},
			"Interest Expense":              {0, 0},
			"Tax Rate For Calcs":            {0.25, 0.25},
			"Depreciation And Amortization": {50, 40},
		}),
		BalanceTable: statement.FromSlices(labels, map[string][]float64{
			"Stockholders Equity":       {500, 480},
			"Total Assets":              {1200, 1100},
			"Net PPE":                   {300, 260},
			"Current Assets":            {400, 380},
			"Current Liabilities":       {150, 140},
			"Cash And Cash Equivalents": {50, 40},
			"Short Term Debt":           {20, 20},
		}),
	}
	session := resolve.NewSession(src, nil)
	ctx := context.Background()

	r, err := ratios.New(session, market.Snapshot{}).Report(ctx, "ACME")
	require.NoError(t, err)
	c, err := fcff.New(session).Compute(ctx)
	require.NoError(t, err)

	return Input{
		Ticker:    "ACME",
		Generated: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
		Ratios:    r,
		FCFF:      c,
		WACCErr:   errors.New("external_data_unavailable [beta]"),
	}
}

func TestMarkdown(t *testing.T) {
	doc, err := Markdown(input(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "# ACME statement metrics"))
	assert.Contains(t, doc, "_Generated 2025-01-02 03:04 UTC_")
	assert.Contains(t, doc, "| Return on Equity | 0.2041 |")
	assert.Contains(t, doc, "| Interest Coverage | ∞ |")
	assert.Contains(t, doc, "| P/E | n/a (external_data_unavailable) |")
	assert.Contains(t, doc, "| 2024-12-31 | 150.00 | 50.00 |")
	assert.Contains(t, doc, "Tax rate source: explicit.")
	assert.Contains(t, doc, "_Unavailable: external_data_unavailable [beta]_")
}

func TestPageRendersTables(t *testing.T) {
	page, err := Page(input(t))
	require.NoError(t, err)

	dom, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "ACME statement metrics", dom.Find("title").Text())
	assert.Equal(t, "ACME statement metrics", dom.Find("h1").Text())
	// six ratio families plus the FCFF table
	assert.Equal(t, len(ratios.Families)+1, dom.Find("table").Length())

	var roe string
	dom.Find("tr").Each(func(_ int, s *goquery.Selection) {
		if s.Find("td").First().Text() == "Return on Equity" {
			roe = s.Find("td").Eq(1).Text()
		}
	})
	assert.Equal(t, "0.2041", roe)

	fcffRows := dom.Find("table").Last().Find("tbody tr")
	assert.Equal(t, 2, fcffRows.Length())
	assert.Equal(t, "110.00", fcffRows.First().Find("td").Eq(5).Text())
}

func TestHTMLDropsRawHTML(t *testing.T) {
	out, err := HTML("# <script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestMarkdownWithWACC(t *testing.T) {
	in := input(t)
	in.WACC = &valuation.Result{CostOfEquity: 0.106, WACC: 0.0923}
	in.WACCErr = nil
	doc, err := Markdown(in)
	require.NoError(t, err)
	assert.Contains(t, doc, "| **WACC** | **9.23%** |")
	assert.Contains(t, doc, "| Cost of equity | 10.60% |")
}
