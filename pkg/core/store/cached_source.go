package store

import (
	"context"
	"fmt"
	"sync"

	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/provider"
	"statement_metrics/pkg/core/statement"
)

// CachedSource serves one ticker's statements from the cache, fetching
// through the provider and saving on a miss.
type CachedSource struct {
	cache   *StatementCache
	fetcher provider.Fetcher
	ticker  string

	mu    sync.Mutex
	entry *Entry
}

// NewCachedSource creates a cache-backed statement source.
func NewCachedSource(cache *StatementCache, fetcher provider.Fetcher, ticker string) *CachedSource {
	return &CachedSource{cache: cache, fetcher: fetcher, ticker: ticker}
}

// Entry returns the cached or freshly fetched entry.
func (s *CachedSource) Entry(ctx context.Context) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != nil {
		return s.entry, nil
	}

	entry, err := s.cache.Get(ctx, s.ticker)
	if err != nil {
		s.cache.logger.Warn().Err(err).Str("ticker", s.ticker).Msg("statement cache read failed, fetching")
	}
	if entry == nil {
		if entry, err = Refresh(ctx, s.cache, s.fetcher, s.ticker); err != nil {
			return nil, err
		}
	} else {
		s.cache.logger.Debug().Str("ticker", s.ticker).Msg("statement cache hit")
	}
	s.entry = entry
	return entry, nil
}

// Refresh fetches a ticker through the provider and stores it.
func Refresh(ctx context.Context, cache *StatementCache, fetcher provider.Fetcher, ticker string) (*Entry, error) {
	f, err := fetcher.Fundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}
	entry := &Entry{
		Ticker:   ticker,
		Income:   f.Income,
		Balance:  f.Balance,
		Snapshot: f.Snapshot,
	}
	if err := cache.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to cache %s: %w", ticker, err)
	}
	return entry, nil
}

func (s *CachedSource) Income(ctx context.Context) (*statement.Table, error) {
	e, err := s.Entry(ctx)
	if err != nil {
		return nil, err
	}
	if e.Income == nil {
		return statement.Empty(), nil
	}
	return e.Income, nil
}

func (s *CachedSource) Balance(ctx context.Context) (*statement.Table, error) {
	e, err := s.Entry(ctx)
	if err != nil {
		return nil, err
	}
	if e.Balance == nil {
		return statement.Empty(), nil
	}
	return e.Balance, nil
}

// Snapshot returns the cached market fields, without a price.
func (s *CachedSource) Snapshot(ctx context.Context) (market.Snapshot, error) {
	e, err := s.Entry(ctx)
	if err != nil {
		return market.Snapshot{}, err
	}
	return e.Snapshot, nil
}
