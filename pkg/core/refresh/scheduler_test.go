package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_metrics/pkg/core/provider"
	"statement_metrics/pkg/core/statement"
	"statement_metrics/pkg/core/store"
)

type stubFetcher struct {
	mu      sync.Mutex
	fetched []string
	fail    map[string]bool
}

func (f *stubFetcher) Fundamentals(_ context.Context, ticker string) (*provider.Fundamentals, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, ticker)
	f.mu.Unlock()
	if f.fail[ticker] {
		return nil, errors.New("upstream unavailable")
	}
	return &provider.Fundamentals{
		Ticker: ticker,
		Income: statement.FromSlices([]string{"2024-12-31"}, map[string][]float64{"Total Revenue": {100}}),
	}, nil
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	cache := store.NewStatementCache(nil, t.TempDir())
	fetcher := &stubFetcher{fail: map[string]bool{"BAD": true}}
	s := NewScheduler(cache, fetcher, zerolog.Nop())
	ctx := context.Background()

	ok := s.RunOnce(ctx, normalize([]string{" aapl", "bad", "", "msft "}))

	assert.Equal(t, 2, ok)
	assert.Equal(t, []string{"AAPL", "BAD", "MSFT"}, fetcher.fetched)
	assert.True(t, cache.Exists(ctx, "AAPL"))
	assert.True(t, cache.Exists(ctx, "MSFT"))
	assert.False(t, cache.Exists(ctx, "BAD"))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(store.NewStatementCache(nil, t.TempDir()), &stubFetcher{}, zerolog.Nop())
	assert.Error(t, s.Start("not a cron line", []string{"AAPL"}))
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(store.NewStatementCache(nil, t.TempDir()), &stubFetcher{}, zerolog.Nop())
	require.NoError(t, s.Start("", []string{"AAPL"}))
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
