// Package fcff builds the multi-period free-cash-flow-to-firm pipeline:
// operating working capital, its change, estimated capex, effective tax
// rate, NOPAT and FCFF, all over one aligned period window.
package fcff

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/resolve"
	"statement_metrics/pkg/core/series"
	"statement_metrics/pkg/core/statement"
)

const (
	// DefaultTaxRate applies when no tax information resolves at all.
	DefaultTaxRate = 0.21
	maxTaxRate     = 0.6
)

// Names of the computed series.
const (
	MetricNWC      = "NWC"
	MetricDeltaNWC = "Delta NWC"
	MetricCapex    = "Capex"
	MetricTaxRate  = "Tax Rate"
	MetricNOPAT    = "NOPAT"
	MetricFCFF     = "FCFF"
)

// Where the tax rate series came from.
const (
	TaxFromExplicit  = "explicit"
	TaxFromStatement = "provision/pretax"
	TaxFromDefault   = "default"
)

// Engine computes FCFF components for one company.
type Engine struct {
	resolver resolve.Resolver
	logger   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over a resolver.
func New(r resolve.Resolver, opts ...Option) *Engine {
	e := &Engine{resolver: r, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Components holds every intermediate series over the aligned window.
type Components struct {
	Periods   []statement.Period
	EBIT      series.Series
	DA        series.Series
	NetPPE    series.Series
	NWC       series.Series
	DeltaNWC  series.Series
	Capex     series.Series
	TaxRate   series.Series
	NOPAT     series.Series
	FCFF      series.Series
	TaxSource string
}

// Row is one period of Components.
type Row struct {
	Period   string  `json:"period"`
	Year     int     `json:"year"`
	NOPAT    float64 `json:"nopat"`
	DA       float64 `json:"da"`
	CapexOut float64 `json:"capex_out"`
	DeltaNWC float64 `json:"delta_nwc"`
	FCFF     float64 `json:"fcff"`
	TaxRate  float64 `json:"tax_rate"`
	NWC      float64 `json:"nwc"`
}

// Rows returns one row per period, most recent first.
func (c *Components) Rows() []Row {
	rows := make([]Row, 0, len(c.Periods))
	for _, p := range c.Periods {
		get := func(s series.Series) float64 {
			v, _ := s.Get(p.Label)
			return v
		}
		rows = append(rows, Row{
			Period:   p.Label,
			Year:     p.Year(),
			NOPAT:    get(c.NOPAT),
			DA:       get(c.DA),
			CapexOut: get(c.Capex),
			DeltaNWC: get(c.DeltaNWC),
			FCFF:     get(c.FCFF),
			TaxRate:  get(c.TaxRate),
			NWC:      get(c.NWC),
		})
	}
	return rows
}

// ChronologicalRows returns the rows oldest first.
func (c *Components) ChronologicalRows() []Row {
	rows := c.Rows()
	byLabel := make(map[string]Row, len(rows))
	for _, r := range rows {
		byLabel[r.Period] = r
	}
	out := make([]Row, 0, len(rows))
	for _, p := range series.Chronological(c.Periods) {
		out = append(out, byLabel[p.Label])
	}
	return out
}

// Latest returns the most recent FCFF value.
func (c *Components) Latest() (float64, error) {
	return series.Latest(c.FCFF)
}

// NWC is operating working capital: (CA - cash) - (CL - short-term debt).
func NWC(currentAssets, cash, currentLiabilities, shortTermDebt series.Series) series.Series {
	return series.Apply(MetricNWC, func(v []float64) float64 {
		return (v[0] - v[1]) - (v[2] - v[3])
	}, currentAssets, cash, currentLiabilities, shortTermDebt)
}

// DeltaNWC is the change in NWC against the chronologically preceding
// period. The earliest period is zero.
func DeltaNWC(nwc series.Series) series.Series {
	return series.Delta(MetricDeltaNWC, nwc)
}

// Capex estimates capital expenditure as the change in net PP&E plus D&A.
func Capex(netPPE, da series.Series) series.Series {
	return series.Apply(MetricCapex, func(v []float64) float64 {
		return v[0] + v[1]
	}, series.Delta(catalog.NetPPE, netPPE), da)
}

// NOPAT is EBIT x (1 - tax rate).
func NOPAT(ebit, taxRate series.Series) series.Series {
	return series.Apply(MetricNOPAT, func(v []float64) float64 {
		return v[0] * (1 - v[1])
	}, ebit, taxRate)
}

// FCFF is NOPAT + D&A - capex - change in NWC.
func FCFF(nopat, da, capex, deltaNWC series.Series) series.Series {
	return series.Apply(MetricFCFF, func(v []float64) float64 {
		return v[0] + v[1] - v[2] - v[3]
	}, nopat, da, capex, deltaNWC)
}

// Compute resolves the inputs, aligns them and builds every component. A
// required input that cannot be resolved makes the whole computation
// unavailable.
func (e *Engine) Compute(ctx context.Context) (*Components, error) {
	ebit, err := e.ebit(ctx)
	if err != nil {
		return nil, err
	}
	da, err := e.required(ctx, catalog.DepreciationAmort)
	if err != nil {
		return nil, err
	}
	ppe, err := e.required(ctx, catalog.NetPPE)
	if err != nil {
		return nil, err
	}
	ca, err := e.required(ctx, catalog.CurrentAssets)
	if err != nil {
		return nil, err
	}
	cl, err := e.required(ctx, catalog.CurrentLiabilities)
	if err != nil {
		return nil, err
	}
	cash, hasCash, err := e.optional(ctx, catalog.CashAndEquivalents)
	if err != nil {
		return nil, err
	}
	std, hasSTD, err := e.optional(ctx, catalog.ShortTermDebt)
	if err != nil {
		return nil, err
	}

	inputs := []series.Series{ebit, da, ppe, ca, cl}
	if hasCash {
		inputs = append(inputs, cash)
	}
	if hasSTD {
		inputs = append(inputs, std)
	}
	aligned := series.Align(inputs...)
	window := aligned[0].Periods()
	if len(window) == 0 {
		return nil, outcome.New(outcome.InsufficientPeriods, MetricFCFF, "required inputs share no reporting period")
	}
	ebit, da, ppe, ca, cl = aligned[0], aligned[1], aligned[2], aligned[3], aligned[4]
	if hasCash {
		cash = aligned[5]
	} else {
		cash = series.Constant(catalog.CashAndEquivalents, window, 0)
	}
	if hasSTD {
		std = aligned[len(aligned)-1]
	} else {
		std = series.Constant(catalog.ShortTermDebt, window, 0)
	}

	tax, source, err := e.TaxRate(ctx, window)
	if err != nil {
		return nil, err
	}

	c := &Components{
		Periods:   window,
		EBIT:      ebit,
		DA:        da,
		NetPPE:    ppe,
		TaxRate:   tax,
		TaxSource: source,
	}
	c.NWC = NWC(ca, cash, cl, std)
	c.DeltaNWC = DeltaNWC(c.NWC)
	c.Capex = Capex(ppe, da)
	c.NOPAT = NOPAT(ebit, tax)
	c.FCFF = FCFF(c.NOPAT, da, c.Capex, c.DeltaNWC)

	e.logger.Debug().Int("periods", len(window)).Str("tax_source", source).Msg("fcff computed")
	return c, nil
}

// LatestFCFF returns FCFF for the most recent period of the aligned window.
func (e *Engine) LatestFCFF(ctx context.Context) (float64, error) {
	c, err := e.Compute(ctx)
	if err != nil {
		return 0, err
	}
	return c.Latest()
}

// TaxRate builds the effective tax rate over window: the explicit tax rate
// line when it resolves, otherwise provision over pretax income clipped to
// [0, 0.6]. Either is filled forward then backward across the window. With
// neither available the default rate applies to every period.
func (e *Engine) TaxRate(ctx context.Context, window []statement.Period) (series.Series, string, error) {
	explicit, err := e.resolver.Resolve(ctx, catalog.TaxRateForCalcs)
	switch {
	case err == nil:
		if filled := series.FillForwardBackward(explicit, window); !filled.Empty() {
			return filled.Rename(MetricTaxRate), TaxFromExplicit, nil
		}
	case !outcome.IsUnavailable(err):
		return series.Series{}, "", err
	}

	provision, perr := e.resolver.Resolve(ctx, catalog.TaxProvision)
	if perr != nil && !outcome.IsUnavailable(perr) {
		return series.Series{}, "", perr
	}
	pretax, berr := e.resolver.Resolve(ctx, catalog.PretaxIncome)
	if berr != nil && !outcome.IsUnavailable(berr) {
		return series.Series{}, "", berr
	}
	if perr == nil && berr == nil {
		rate := series.Clip(effectiveRate(provision, pretax), 0, maxTaxRate)
		if filled := series.FillForwardBackward(rate, window); !filled.Empty() {
			return filled.Rename(MetricTaxRate), TaxFromStatement, nil
		}
	}

	e.logger.Warn().Float64("rate", DefaultTaxRate).Msg("no tax information resolved, using default tax rate")
	return series.Constant(MetricTaxRate, window, DefaultTaxRate), TaxFromDefault, nil
}

// effectiveRate divides provision by pretax income per period. Periods with
// zero pretax income are left empty for the fill to cover.
func effectiveRate(provision, pretax series.Series) series.Series {
	values := make(map[string]float64)
	for _, p := range provision.Present() {
		t, _ := provision.Get(p.Label)
		b, ok := pretax.Get(p.Label)
		if !ok || b == 0 {
			continue
		}
		values[p.Label] = t / b
	}
	return series.New(MetricTaxRate, provision.Periods(), values)
}

func (e *Engine) ebit(ctx context.Context) (series.Series, error) {
	s, err := e.resolver.Resolve(ctx, catalog.EBIT)
	if err == nil || !outcome.IsUnavailable(err) {
		return s, err
	}
	e.logger.Debug().Err(err).Msg("EBIT unavailable, falling back to operating income")
	return e.required(ctx, catalog.OperatingIncome)
}

func (e *Engine) required(ctx context.Context, metric string) (series.Series, error) {
	s, err := e.resolver.Resolve(ctx, metric)
	if err == nil || !outcome.IsUnavailable(err) {
		return s, err
	}
	e.logger.Warn().Str("metric", metric).Err(err).Msg("required fcff input unavailable")
	u := outcome.Wrap(outcome.OperandUnavailable, MetricFCFF, err)
	u.Detail = fmt.Sprintf("required input %q", metric)
	return series.Series{}, u
}

func (e *Engine) optional(ctx context.Context, metric string) (series.Series, bool, error) {
	s, err := e.resolver.Resolve(ctx, metric)
	switch {
	case err == nil && !s.Empty():
		return s, true, nil
	case err == nil, outcome.IsUnavailable(err):
		// a row with no present cell is as good as no row
		e.logger.Debug().Str("metric", metric).Msg("optional fcff input unavailable, treating as zero")
		return series.Series{}, false, nil
	}
	return series.Series{}, false, err
}
