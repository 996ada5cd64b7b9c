package analysis

import (
	"context"
	"time"

	"statement_metrics/pkg/core/fcff"
	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/ratios"
	"statement_metrics/pkg/core/report"
	"statement_metrics/pkg/core/statement"
	"statement_metrics/pkg/core/valuation"
)

// Source is one company's statements plus its market snapshot.
type Source interface {
	statement.Source
	Snapshot(ctx context.Context) (market.Snapshot, error)
}

// Opener returns the Source for a ticker.
type Opener func(ticker string) (Source, error)

// CompanyAnalysis is the full computed profile for one company. Sections
// that could not be computed carry their failure instead of a value.
type CompanyAnalysis struct {
	Ticker       string            `json:"ticker"`
	LastAnalyzed time.Time         `json:"last_analyzed"`
	Snapshot     market.Snapshot   `json:"market"`
	Ratios       *ratios.Report    `json:"ratios"`
	FCFF         []fcff.Row        `json:"fcff,omitempty"`
	TaxSource    string            `json:"tax_rate_source,omitempty"`
	FCFFError    *outcome.Failure  `json:"fcff_error,omitempty"`
	WACC         *valuation.Result `json:"wacc,omitempty"`
	WACCError    *outcome.Failure  `json:"wacc_error,omitempty"`

	components *fcff.Components
	fcffErr    error
	waccErr    error
}

// Components returns the FCFF pipeline result, or nil when unavailable.
func (a *CompanyAnalysis) Components() *fcff.Components { return a.components }

// ReportInput converts the analysis for rendering.
func (a *CompanyAnalysis) ReportInput() report.Input {
	return report.Input{
		Ticker:    a.Ticker,
		Generated: a.LastAnalyzed,
		Ratios:    a.Ratios,
		FCFF:      a.components,
		FCFFErr:   a.fcffErr,
		WACC:      a.WACC,
		WACCErr:   a.waccErr,
	}
}
