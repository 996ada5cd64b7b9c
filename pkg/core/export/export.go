// Package export writes FCFF component tables as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"statement_metrics/pkg/core/fcff"
)

// FCFFHeader is the column layout of the component export.
var FCFFHeader = []string{"Year", "NOPAT", "DA", "CapexOut", "DeltaNWC", "FCFF"}

// WriteFCFF writes one row per period, oldest first.
func WriteFCFF(w io.Writer, c *fcff.Components) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FCFFHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range c.ChronologicalRows() {
		year := r.Period
		if y := r.Year; y != 0 {
			year = strconv.Itoa(y)
		}
		rec := []string{
			year,
			formatFloat(r.NOPAT),
			formatFloat(r.DA),
			formatFloat(r.CapexOut),
			formatFloat(r.DeltaNWC),
			formatFloat(r.FCFF),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row %s: %w", r.Period, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFCFFFile writes the export to path.
func WriteFCFFFile(path string, c *fcff.Components) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteFCFF(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
