package provider

import (
	"context"
	"sync"

	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/statement"
)

// Fetcher is the part of Client a Source needs.
type Fetcher interface {
	Fundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
}

// Source serves one ticker's statements, fetching the fundamentals document
// at most once. A failed fetch is retried on the next call.
type Source struct {
	fetcher Fetcher
	ticker  string

	mu   sync.Mutex
	data *Fundamentals
}

// Source returns a statement source for ticker.
func (c *Client) Source(ticker string) *Source {
	return NewSource(c, ticker)
}

// NewSource adapts any Fetcher to statement.Source.
func NewSource(f Fetcher, ticker string) *Source {
	return &Source{fetcher: f, ticker: ticker}
}

// Ticker returns the ticker this source serves.
func (s *Source) Ticker() string { return s.ticker }

// Fundamentals returns the fetched document.
func (s *Source) Fundamentals(ctx context.Context) (*Fundamentals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		return s.data, nil
	}
	f, err := s.fetcher.Fundamentals(ctx, s.ticker)
	if err != nil {
		return nil, err
	}
	s.data = f
	return f, nil
}

func (s *Source) Income(ctx context.Context) (*statement.Table, error) {
	f, err := s.Fundamentals(ctx)
	if err != nil {
		return nil, err
	}
	return f.Income, nil
}

func (s *Source) Balance(ctx context.Context) (*statement.Table, error) {
	f, err := s.Fundamentals(ctx)
	if err != nil {
		return nil, err
	}
	return f.Balance, nil
}

// Snapshot returns the market fields carried by the fundamentals document,
// without a price.
func (s *Source) Snapshot(ctx context.Context) (market.Snapshot, error) {
	f, err := s.Fundamentals(ctx)
	if err != nil {
		return market.Snapshot{}, err
	}
	return f.Snapshot, nil
}
