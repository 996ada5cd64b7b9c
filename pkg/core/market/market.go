// Package market carries the per-ticker market inputs (beta, market
// capitalization, shares outstanding, price) that statement data lacks.
package market

import (
	"context"
	"strings"

	"statement_metrics/pkg/core/outcome"
)

// Snapshot holds the external market fields for one ticker. A nil field
// means the provider did not report it.
type Snapshot struct {
	Beta              *float64 `json:"beta,omitempty"`
	MarketCap         *float64 `json:"market_cap,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
	Price             *float64 `json:"price,omitempty"`
}

// Float is a convenience for building snapshots.
func Float(v float64) *float64 { return &v }

// Field names used in ExternalDataUnavailable outcomes.
const (
	FieldBeta      = "beta"
	FieldMarketCap = "marketCap"
	FieldShares    = "sharesOutstanding"
	FieldPrice     = "price"
)

// Require returns the value of a snapshot field or an
// ExternalDataUnavailable outcome naming it.
func Require(v *float64, field string) (float64, error) {
	if v == nil {
		return 0, outcome.New(outcome.ExternalDataUnavailable, field, "market data provider reported no %s", field)
	}
	return *v, nil
}

// Provider fetches market snapshots.
type Provider interface {
	Snapshot(ctx context.Context, ticker string) (Snapshot, error)
}

// Static serves fixed snapshots keyed by upper-cased ticker. Unknown tickers
// get an empty snapshot.
type Static map[string]Snapshot

func (s Static) Snapshot(_ context.Context, ticker string) (Snapshot, error) {
	return s[strings.ToUpper(ticker)], nil
}
