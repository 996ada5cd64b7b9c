// Package analysis wires the resolver and the ratio, FCFF and WACC engines
// together for one company at a time.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/fcff"
	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/ratios"
	"statement_metrics/pkg/core/resolve"
	"statement_metrics/pkg/core/statement"
	"statement_metrics/pkg/core/valuation"
)

// Defaults for the WACC market inputs.
const (
	DefaultRiskFreeRate      = 0.04
	DefaultEquityRiskPremium = 0.055
)

// AnalysisEngine opens companies against one catalog.
type AnalysisEngine struct {
	catalog *catalog.Catalog
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures an AnalysisEngine.
type Option func(*AnalysisEngine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *AnalysisEngine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *AnalysisEngine) { e.now = now }
}

// NewAnalysisEngine creates an engine. A nil catalog means the default.
func NewAnalysisEngine(cat *catalog.Catalog, opts ...Option) *AnalysisEngine {
	if cat == nil {
		cat = catalog.Default()
	}
	e := &AnalysisEngine{catalog: cat, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the engine's catalog.
func (e *AnalysisEngine) Catalog() *catalog.Catalog { return e.catalog }

// Company is one opened company: a resolution session plus the engines that
// share it, so every metric is resolved at most once.
type Company struct {
	Ticker   string
	Session  *resolve.Session
	Snapshot market.Snapshot
	Ratios   *ratios.Engine
	FCFF     *fcff.Engine
	WACC     *valuation.Engine

	now    func() time.Time
	logger zerolog.Logger
}

// Open fetches the market snapshot and prepares the engines. A snapshot
// fetch failure is returned as is; statements load lazily on first use.
func (e *AnalysisEngine) Open(ctx context.Context, ticker string, src Source) (*Company, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	snap, err := src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", ticker, err)
	}
	logger := e.logger.With().Str("ticker", ticker).Logger()
	sess := resolve.NewSession(src, e.catalog, resolve.WithLogger(logger), resolve.WithTicker(ticker))
	return &Company{
		Ticker:   ticker,
		Session:  sess,
		Snapshot: snap,
		Ratios:   ratios.New(sess, snap),
		FCFF:     fcff.New(sess, fcff.WithLogger(logger)),
		WACC:     valuation.New(sess, snap, valuation.WithLogger(logger)),
		now:      e.now,
		logger:   logger,
	}, nil
}

// Analyze computes ratios, FCFF and WACC. Missing data is recorded per
// section; only statement fetch failures are returned as errors.
func (c *Company) Analyze(ctx context.Context, riskFreeRate, equityRiskPremium float64) (*CompanyAnalysis, error) {
	a := &CompanyAnalysis{
		Ticker:       c.Ticker,
		LastAnalyzed: c.now(),
		Snapshot:     c.Snapshot,
	}

	rep, err := c.Ratios.Report(ctx, c.Ticker)
	if err != nil {
		return nil, err
	}
	a.Ratios = rep

	comps, err := c.FCFF.Compute(ctx)
	switch {
	case err == nil:
		a.components = comps
		a.FCFF = comps.Rows()
		a.TaxSource = comps.TaxSource
	case outcome.IsUnavailable(err):
		a.fcffErr = err
		a.FCFFError = outcome.Describe(err)
	default:
		return nil, err
	}

	res, err := c.WACC.Calculate(ctx, riskFreeRate, equityRiskPremium)
	switch {
	case err == nil:
		a.WACC = res
	case outcome.IsUnavailable(err):
		a.waccErr = err
		a.WACCError = outcome.Describe(err)
	default:
		return nil, err
	}

	c.logger.Info().
		Bool("fcff", a.FCFFError == nil).
		Bool("wacc", a.WACCError == nil).
		Msg("company analyzed")
	return a, nil
}

// WithSnapshot pairs a plain statement source with a fixed snapshot, for
// inputs such as CSV files that carry no market data.
func WithSnapshot(src statement.Source, snap market.Snapshot) Source {
	return staticSource{Source: src, snap: snap}
}

type staticSource struct {
	statement.Source
	snap market.Snapshot
}

func (s staticSource) Snapshot(context.Context) (market.Snapshot, error) { return s.snap, nil }
