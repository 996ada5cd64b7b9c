package provider

import (
	"context"

	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/statement"
)

// Quoter fetches a latest price. Client implements it.
type Quoter interface {
	Quote(ctx context.Context, ticker string) (*float64, error)
}

// SnapshotSource is a statement source that also carries market fields.
type SnapshotSource interface {
	statement.Source
	Snapshot(ctx context.Context) (market.Snapshot, error)
}

// PricedSource fills the snapshot price from a live quote when the
// underlying source has none.
type PricedSource struct {
	SnapshotSource
	quoter Quoter
	ticker string
}

// WithQuote wraps src so its snapshot carries a live price.
func WithQuote(src SnapshotSource, q Quoter, ticker string) *PricedSource {
	return &PricedSource{SnapshotSource: src, quoter: q, ticker: ticker}
}

func (p *PricedSource) Snapshot(ctx context.Context) (market.Snapshot, error) {
	snap, err := p.SnapshotSource.Snapshot(ctx)
	if err != nil || snap.Price != nil {
		return snap, err
	}
	price, err := p.quoter.Quote(ctx, p.ticker)
	if err != nil {
		return market.Snapshot{}, err
	}
	snap.Price = price
	return snap, nil
}
