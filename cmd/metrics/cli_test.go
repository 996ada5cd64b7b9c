package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longCSV = `Year,Metric,Value
2023,Revenue,900
2024,Revenue,1000
2023,NetIncome,80
2024,NetIncome,100
2023,EBIT,180
2024,EBIT,200
2023,InterestExpense,9
2024,InterestExpense,10
2023,TaxExpense,45
2024,TaxExpense,50
2023,EBT,180
2024,EBT,200
2023,Tax Rate For Calcs,0.25
2024,Tax Rate For Calcs,0.25
2023,DepreciationAmortization,40
2024,DepreciationAmortization,50
2023,NetPPE,260
2024,NetPPE,300
2023,CurrentAssets,380
2024,CurrentAssets,400
2023,CurrentLiabilities,140
2024,CurrentLiabilities,150
2023,Cash,40
2024,Cash,50
2023,ShortTermDebt,20
2024,ShortTermDebt,20
2023,TotalDebt,100
2024,TotalDebt,100
2023,StockholdersEquity,480
2024,StockholdersEquity,500
2023,TotalAssets,1100
2024,TotalAssets,1200
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("METRICS_CACHE_DIR", t.TempDir())
	var out bytes.Buffer
	c := newCLI(&out)
	c.root.SetErr(&bytes.Buffer{})
	c.root.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acme.csv")
	require.NoError(t, os.WriteFile(path, []byte(longCSV), 0o644))
	return path
}

func TestFCFFFromCSV(t *testing.T) {
	out, err := run(t, "fcff", "--csv", writeCSV(t))
	require.NoError(t, err)
	assert.Equal(t, "Year,NOPAT,DA,CapexOut,DeltaNWC,FCFF\n"+
		"2023,135,40,40,0,135\n"+
		"2024,150,50,90,0,110\n", out)
}

func TestFCFFOutFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "fcff.csv")
	out, err := run(t, "fcff", "--csv", writeCSV(t), "--ticker", "acme", "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "ACME: wrote "+dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2024,150,50,90,0,110")
}

func TestRatiosText(t *testing.T) {
	out, err := run(t, "ratios", "--csv", writeCSV(t))
	require.NoError(t, err)
	assert.Contains(t, out, "[profitability]")
	line := lineWith(out, "Return on Equity")
	assert.Contains(t, line, "0.2041")
	assert.Contains(t, lineWith(out, "P/E"), "n/a (external_data_unavailable)")
}

func TestRatiosJSONWithPrice(t *testing.T) {
	out, err := run(t, "ratios", "--csv", writeCSV(t), "--json", "--price", "20", "--shares", "10")
	require.NoError(t, err)

	var reps []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reps))
	require.Len(t, reps, 1)
	assert.Equal(t, "CSV", reps[0]["ticker"])
	pb := reps[0]["families"].(map[string]any)["valuation"].(map[string]any)["pb_ratio"].(map[string]any)
	assert.InDelta(t, 20/50.0, pb["value"].(float64), 1e-9)
}

func TestWACCFromCSV(t *testing.T) {
	out, err := run(t, "wacc", "--csv", writeCSV(t), "--beta", "1.2", "--market-cap", "900")
	require.NoError(t, err)
	assert.Contains(t, lineWith(out, "WACC"), "0.1029")
	assert.Contains(t, lineWith(out, "Cost of equity"), "0.1060")

	out, err = run(t, "wacc", "--csv", writeCSV(t))
	require.NoError(t, err)
	assert.Contains(t, out, "n/a (external_data_unavailable)")
}

func TestResolve(t *testing.T) {
	out, err := run(t, "resolve", "--csv", writeCSV(t), "Total Revenue", "Inventory", "EBITDA")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Revenue: 2024=1000 2023=900")
	assert.Contains(t, out, "Inventory: n/a (not_found)")
	assert.Contains(t, out, "EBITDA: 2024=250 2023=220")
}

func TestReportMarkdown(t *testing.T) {
	out, err := run(t, "report", "--csv", writeCSV(t), "--ticker", "acme")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# ACME statement metrics"))
	assert.Contains(t, out, "| Return on Equity | 0.2041 |")
}

func TestRequiresInput(t *testing.T) {
	_, err := run(t, "ratios")
	assert.EqualError(t, err, "either --ticker or --csv is required")
}

func TestTickersWithoutToken(t *testing.T) {
	t.Setenv("METRICS_PROVIDER_API_TOKEN", "")
	_, err := run(t, "ratios", "--ticker", "AAPL.US,MSFT.US")
	assert.ErrorContains(t, err, "api token")
}

func TestPerTickerPath(t *testing.T) {
	assert.Equal(t, "out.csv", perTickerPath("out.csv", "AAPL", false))
	assert.Equal(t, "out_AAPL.csv", perTickerPath("out.csv", "AAPL", true))
	assert.Equal(t, filepath.Join("dir.v2", "out_AAPL"), perTickerPath(filepath.Join("dir.v2", "out"), "AAPL", true))
}

func lineWith(out, needle string) string {
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, needle) {
			return l
		}
	}
	return ""
}
