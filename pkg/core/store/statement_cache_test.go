package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/provider"
	"statement_metrics/pkg/core/statement"
)

type fakeFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeFetcher) Fundamentals(_ context.Context, ticker string) (*provider.Fundamentals, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Fundamentals{
		Ticker: ticker,
		Income: statement.FromSlices([]string{"2024-12-31", "2023-12-31"}, map[string][]float64{
			"totalRevenue": {1000, 900},
		}),
		Balance:  statement.FromSlices([]string{"2024-12-31"}, map[string][]float64{"totalAssets": {1200}}),
		Snapshot: market.Snapshot{Beta: market.Float(1.1)},
	}, nil
}

func TestFileCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewStatementCache(nil, dir)
	ctx := context.Background()

	miss, err := c.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.False(t, c.Exists(ctx, "ACME"))

	entry := &Entry{
		Ticker:   "acme",
		Income:   statement.FromSlices([]string{"2024-12-31"}, map[string][]float64{"Net Income": {100}}),
		Snapshot: market.Snapshot{MarketCap: market.Float(5e9)},
	}
	require.NoError(t, c.Save(ctx, entry))
	assert.NotEmpty(t, entry.ID)
	assert.FileExists(t, filepath.Join(dir, "ACME.json"))
	assert.True(t, c.Exists(ctx, "Acme"))

	got, err := c.Get(ctx, "ACME")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.ID, got.ID)
	row, ok := got.Income.Row("Net Income")
	require.True(t, ok)
	assert.Equal(t, 100.0, row["2024-12-31"])
	assert.Nil(t, got.Balance)
	require.NotNil(t, got.Snapshot.MarketCap)
	assert.Equal(t, 5e9, *got.Snapshot.MarketCap)
}

func TestFileCacheMaxAge(t *testing.T) {
	c := NewStatementCache(nil, t.TempDir(), WithMaxAge(time.Hour))
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, &Entry{Ticker: "OLD", FetchedAt: time.Now().Add(-2 * time.Hour)}))
	got, err := c.Get(ctx, "OLD")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, c.Exists(ctx, "OLD"))
}

func TestFileCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewStatementCache(nil, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD.json"), []byte("{not json"), 0644))

	_, err := c.Get(context.Background(), "BAD")
	assert.Error(t, err)
}

func TestCachedSource(t *testing.T) {
	cache := NewStatementCache(nil, t.TempDir())
	fetcher := &fakeFetcher{}
	ctx := context.Background()

	src := NewCachedSource(cache, fetcher, "ACME")
	income, err := src.Income(ctx)
	require.NoError(t, err)
	assert.True(t, income.Has("totalRevenue"))
	_, err = src.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	// a second source hits the cache written by the first
	again := NewCachedSource(cache, fetcher, "acme")
	snap, err := again.Snapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Beta)
	assert.Equal(t, 1.1, *snap.Beta)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestCachedSourceFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("provider down")}
	src := NewCachedSource(NewStatementCache(nil, t.TempDir()), fetcher, "ACME")

	_, err := src.Income(context.Background())
	assert.ErrorIs(t, err, fetcher.err)
}
