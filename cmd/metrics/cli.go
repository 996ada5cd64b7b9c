package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"statement_metrics/pkg/bootstrap"
	"statement_metrics/pkg/config"
	"statement_metrics/pkg/core/analysis"
	"statement_metrics/pkg/core/ingest"
	"statement_metrics/pkg/core/market"
)

// csvTicker labels a company loaded from a CSV file when --ticker is not given.
const csvTicker = "CSV"

type cli struct {
	cfgPath string
	tickers []string
	csvPath string
	jsonOut bool
	rf      float64
	erp     float64

	beta, marketCap, shares, price float64

	out    io.Writer
	cfg    *config.Config
	logger zerolog.Logger
	deps   *bootstrap.Deps
	root   *cobra.Command
}

func newCLI(out io.Writer) *cli {
	c := &cli{out: out, logger: zerolog.Nop()}
	c.root = c.newRootCmd()
	return c
}

func (c *cli) Execute() error {
	defer func() {
		if c.deps != nil {
			c.deps.Close()
		}
	}()
	return c.root.Execute()
}

func (c *cli) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "metrics",
		Short:         "Resolve statement metrics and compute ratios, FCFF and WACC",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	cmd.SetOut(c.out)

	f := cmd.PersistentFlags()
	f.StringVarP(&c.cfgPath, "config", "c", "", "Path to a YAML config file")
	f.StringSliceVarP(&c.tickers, "ticker", "t", nil, "Comma separated tickers, e.g. AAPL.US,MSFT.US")
	f.StringVar(&c.csvPath, "csv", "", "Long Year,Metric,Value CSV file to use instead of the provider")
	f.BoolVar(&c.jsonOut, "json", false, "Write JSON instead of text")
	f.Float64Var(&c.rf, "rf", analysis.DefaultRiskFreeRate, "Risk-free rate (default from config)")
	f.Float64Var(&c.erp, "erp", analysis.DefaultEquityRiskPremium, "Equity risk premium (default from config)")
	f.Float64Var(&c.beta, "beta", 0, "Beta for --csv input")
	f.Float64Var(&c.marketCap, "market-cap", 0, "Market capitalization for --csv input")
	f.Float64Var(&c.shares, "shares", 0, "Shares outstanding for --csv input")
	f.Float64Var(&c.price, "price", 0, "Share price for --csv input")

	cmd.AddCommand(c.newRatiosCmd())
	cmd.AddCommand(c.newFCFFCmd())
	cmd.AddCommand(c.newWACCCmd())
	cmd.AddCommand(c.newResolveCmd())
	cmd.AddCommand(c.newReportCmd())
	return cmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = cfg.Logger().Output(zerolog.ConsoleWriter{Out: os.Stderr})

	f := cmd.Flags()
	if !f.Changed("rf") {
		c.rf = cfg.Valuation.RiskFreeRate
	}
	if !f.Changed("erp") {
		c.erp = cfg.Valuation.EquityRiskPremium
	}
	if c.csvPath == "" && len(c.tickers) == 0 {
		return errors.New("either --ticker or --csv is required")
	}

	c.deps, err = bootstrap.New(cmd.Context(), cfg, c.logger)
	return err
}

// csvSnapshot builds the market snapshot from the flags that were set.
func (c *cli) csvSnapshot(cmd *cobra.Command) market.Snapshot {
	var snap market.Snapshot
	f := cmd.Flags()
	if f.Changed("beta") {
		snap.Beta = market.Float(c.beta)
	}
	if f.Changed("market-cap") {
		snap.MarketCap = market.Float(c.marketCap)
	}
	if f.Changed("shares") {
		snap.SharesOutstanding = market.Float(c.shares)
	}
	if f.Changed("price") {
		snap.Price = market.Float(c.price)
	}
	return snap
}

// companies opens every requested company, concurrently for tickers.
func (c *cli) companies(cmd *cobra.Command) ([]*analysis.Company, error) {
	ctx := cmd.Context()
	if c.csvPath != "" {
		wide, err := ingest.ReadFile(c.csvPath)
		if err != nil {
			return nil, err
		}
		ticker := csvTicker
		if len(c.tickers) > 0 {
			ticker = c.tickers[0]
		}
		src := analysis.WithSnapshot(wide.Source(), c.csvSnapshot(cmd))
		comp, err := c.deps.Engine.Open(ctx, ticker, src)
		if err != nil {
			return nil, err
		}
		return []*analysis.Company{comp}, nil
	}

	out := make([]*analysis.Company, len(c.tickers))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range c.tickers {
		i, t := i, t
		g.Go(func() error {
			src, err := c.deps.Open(t)
			if err != nil {
				return err
			}
			comp, err := c.deps.Engine.Open(gctx, t, src)
			if err != nil {
				return err
			}
			out[i] = comp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// each runs fn for every company concurrently and returns the results in
// input order.
func each[T any](ctx context.Context, comps []*analysis.Company, fn func(context.Context, *analysis.Company) (T, error)) ([]T, error) {
	out := make([]T, len(comps))
	g, gctx := errgroup.WithContext(ctx)
	for i, comp := range comps {
		i, comp := i, comp
		g.Go(func() error {
			v, err := fn(gctx, comp)
			if err != nil {
				return fmt.Errorf("%s: %w", comp.Ticker, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func header(w io.Writer, comps []*analysis.Company, i int) {
	if len(comps) > 1 {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s ==\n", comps[i].Ticker)
	}
}

func perTickerPath(path, ticker string, many bool) string {
	if !many {
		return path
	}
	dot := strings.LastIndex(path, ".")
	if dot <= strings.LastIndex(path, string(os.PathSeparator)) {
		return path + "_" + ticker
	}
	return path[:dot] + "_" + ticker + path[dot:]
}
