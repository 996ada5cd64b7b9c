package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/fcff"
	"statement_metrics/pkg/core/resolve"
)

func TestReadLong(t *testing.T) {
	in := `Metric,Value,Year
Revenue,1000,2024
Revenue,900,2023
Revenue,1,2024
NetIncome,abc,2024
,5,2024
NetIncome,80,not-a-year
NetIncome,100,2024.0
`
	w, err := ReadLong(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, w.Years())
	assert.Equal(t, []string{"NetIncome", "Revenue"}, w.Metrics())

	v, ok := w.Value("Revenue", 2024)
	require.True(t, ok)
	assert.Equal(t, 1000.0, v, "first duplicate wins")

	v, ok = w.Value("NetIncome", 2024)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
	_, ok = w.Value("NetIncome", 2023)
	assert.False(t, ok)
}

func TestReadLongRequiresColumns(t *testing.T) {
	_, err := ReadLong(strings.NewReader("year,Metric,Value\n2024,Revenue,1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Year")

	_, err = ReadLong(strings.NewReader(""))
	assert.Error(t, err)
}

func TestTableMapsLineItems(t *testing.T) {
	in := "Year,Metric,Value\n2023,NetIncome,80\n2024,NetIncome,100\n2024,Net Income,111\n2024,Custom,7\n"
	w, err := ReadLong(strings.NewReader(in))
	require.NoError(t, err)
	tbl := w.Table()

	periods := tbl.Periods()
	require.Len(t, periods, 2)
	assert.Equal(t, "2024", periods[0].Label)

	row, ok := tbl.Row(catalog.NetIncome)
	require.True(t, ok)
	assert.Equal(t, 111.0, row["2024"], "explicit line item name wins over compact name")
	assert.True(t, tbl.Has("Custom"))
}

func TestReadFileFeedsFCFF(t *testing.T) {
	csv := `Year,Metric,Value
2023,EBIT,180
2024,EBIT,200
2023,TaxExpense,40
2024,TaxExpense,50
2023,EBT,160
2024,EBT,200
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
`
	path := filepath.Join(t.TempDir(), "acme.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	w, err := ReadFile(path)
	require.NoError(t, err)
	c, err := fcff.New(resolve.NewSession(w.Source(), nil)).Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fcff.TaxFromStatement, c.TaxSource)
	latest, err := c.Latest()
	require.NoError(t, err)
	// NOPAT 200*0.75=150, capex 40+50=90, dNWC 0
	assert.InDelta(t, 110.0, latest, 1e-9)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
