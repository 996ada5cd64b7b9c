package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"statement_metrics/pkg/core/analysis"
	"statement_metrics/pkg/core/export"
	"statement_metrics/pkg/core/fcff"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/ratios"
	"statement_metrics/pkg/core/report"
	"statement_metrics/pkg/core/resolve"
	"statement_metrics/pkg/core/series"
	"statement_metrics/pkg/core/valuation"
)

func (c *cli) writeJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func unavailable(err error) string {
	if f := outcome.Describe(err); f != nil {
		return fmt.Sprintf("n/a (%s): %s", f.Kind, f.Detail)
	}
	return err.Error()
}

// ============================================================================
// ratios
// ============================================================================

func (c *cli) newRatiosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratios",
		Short: "Compute the ratio report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := c.companies(cmd)
			if err != nil {
				return err
			}
			reps, err := each(cmd.Context(), comps, func(ctx context.Context, comp *analysis.Company) (*ratios.Report, error) {
				return comp.Ratios.Report(ctx, comp.Ticker)
			})
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.writeJSON(reps)
			}
			for i, rep := range reps {
				header(c.out, comps, i)
				if err := writeRatios(c.out, rep); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func writeRatios(w io.Writer, rep *ratios.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, fam := range ratios.Families {
		fmt.Fprintf(tw, "[%s]\n", fam)
		for _, d := range ratios.Definitions() {
			if d.Family != fam {
				continue
			}
			v, _ := rep.Get(d.Key)
			fmt.Fprintf(tw, "  %s\t%s\n", d.Label, ratioText(v))
		}
	}
	return tw.Flush()
}

func ratioText(v ratios.Value) string {
	switch {
	case !v.OK:
		return "n/a (" + v.Kind.String() + ")"
	case math.IsInf(v.Number, 1):
		return "+Inf"
	case math.IsInf(v.Number, -1):
		return "-Inf"
	}
	return fmt.Sprintf("%.4f", v.Number)
}

// ============================================================================
// fcff
// ============================================================================

func (c *cli) newFCFFCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "fcff",
		Short: "Compute FCFF components; writes Year,NOPAT,DA,CapexOut,DeltaNWC,FCFF CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := c.companies(cmd)
			if err != nil {
				return err
			}
			type result struct {
				c   *fcff.Components
				err error
			}
			results, err := each(cmd.Context(), comps, func(ctx context.Context, comp *analysis.Company) (result, error) {
				fc, err := comp.FCFF.Compute(ctx)
				if err != nil && !outcome.IsUnavailable(err) {
					return result{}, err
				}
				return result{fc, err}, nil
			})
			if err != nil {
				return err
			}

			for i, r := range results {
				if r.err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", comps[i].Ticker, unavailable(r.err))
					continue
				}
				if outPath != "" {
					path := perTickerPath(outPath, comps[i].Ticker, len(comps) > 1)
					if err := export.WriteFCFFFile(path, r.c); err != nil {
						return err
					}
					fmt.Fprintf(c.out, "%s: wrote %s (tax rate: %s)\n", comps[i].Ticker, path, r.c.TaxSource)
					continue
				}
				header(c.out, comps, i)
				if err := export.WriteFCFF(c.out, r.c); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the component CSV to this file")
	return cmd
}

// ============================================================================
// wacc
// ============================================================================

func (c *cli) newWACCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wacc",
		Short: "Compute the weighted average cost of capital",
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := c.companies(cmd)
			if err != nil {
				return err
			}
			type result struct {
				Ticker string            `json:"ticker"`
				Result *valuation.Result `json:"result,omitempty"`
				Error  *outcome.Failure  `json:"error,omitempty"`
				err    error
			}
			results, err := each(cmd.Context(), comps, func(ctx context.Context, comp *analysis.Company) (result, error) {
				res, err := comp.WACC.Calculate(ctx, c.rf, c.erp)
				if err != nil && !outcome.IsUnavailable(err) {
					return result{}, err
				}
				return result{Ticker: comp.Ticker, Result: res, Error: outcome.Describe(err), err: err}, nil
			})
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.writeJSON(results)
			}
			for i, r := range results {
				header(c.out, comps, i)
				if r.err != nil {
					fmt.Fprintln(c.out, unavailable(r.err))
					continue
				}
				tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "Cost of equity\t%.4f\n", r.Result.CostOfEquity)
				fmt.Fprintf(tw, "Cost of debt\t%.4f\n", r.Result.CostOfDebt)
				fmt.Fprintf(tw, "Tax rate\t%.4f\n", r.Result.TaxRate)
				fmt.Fprintf(tw, "Equity weight\t%.4f\n", r.Result.WeightEquity)
				fmt.Fprintf(tw, "Debt weight\t%.4f\n", r.Result.WeightDebt)
				fmt.Fprintf(tw, "WACC\t%.4f\n", r.Result.WACC)
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// ============================================================================
// resolve
// ============================================================================

func (c *cli) newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve METRIC [METRIC...]",
		Short: "Resolve catalog metrics to per-period series",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, err := c.companies(cmd)
			if err != nil {
				return err
			}
			all, err := each(cmd.Context(), comps, func(ctx context.Context, comp *analysis.Company) (map[string]resolve.Resolution, error) {
				return comp.Session.ResolveAll(ctx, args...)
			})
			if err != nil {
				return err
			}
			for i, res := range all {
				header(c.out, comps, i)
				for _, metric := range args {
					r := res[metric]
					if r.Err != nil {
						fmt.Fprintf(c.out, "%s: %s\n", metric, unavailable(r.Err))
						continue
					}
					fmt.Fprintf(c.out, "%s: %s\n", metric, seriesText(r.Series))
				}
			}
			return nil
		},
	}
}

func seriesText(s series.Series) string {
	parts := make([]string, 0, s.Len())
	for _, p := range s.Periods() {
		if v, ok := s.Get(p.Label); ok {
			parts = append(parts, fmt.Sprintf("%s=%g", p.Label, v))
		} else {
			parts = append(parts, p.Label+"=-")
		}
	}
	return strings.Join(parts, " ")
}

// ============================================================================
// report
// ============================================================================

func (c *cli) newReportCmd() *cobra.Command {
	var (
		html    bool
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a Markdown (or HTML) report with ratios, FCFF and WACC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := c.companies(cmd)
			if err != nil {
				return err
			}
			docs, err := each(cmd.Context(), comps, func(ctx context.Context, comp *analysis.Company) (string, error) {
				a, err := comp.Analyze(ctx, c.rf, c.erp)
				if err != nil {
					return "", err
				}
				if html {
					return report.Page(a.ReportInput())
				}
				return report.Markdown(a.ReportInput())
			})
			if err != nil {
				return err
			}
			for i, doc := range docs {
				if outPath != "" {
					path := perTickerPath(outPath, comps[i].Ticker, len(comps) > 1)
					if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
						return fmt.Errorf("failed to write report: %w", err)
					}
					fmt.Fprintf(c.out, "%s: wrote %s\n", comps[i].Ticker, path)
					continue
				}
				if _, err := io.WriteString(c.out, doc); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&html, "html", false, "Render HTML instead of Markdown")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to this file")
	return cmd
}
