package bootstrap

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_metrics/pkg/config"
	"statement_metrics/pkg/core/catalog"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Provider: config.ProviderConfig{BaseURL: "http://127.0.0.1:1", RatePerSec: 0},
		Cache:    config.CacheConfig{Dir: t.TempDir()},
	}
}

func TestNewUsesFileCacheAndDefaultCatalog(t *testing.T) {
	d, err := New(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer d.Close()

	assert.Same(t, catalog.Default(), d.Catalog)
	assert.NotNil(t, d.Cache)
	assert.NotNil(t, d.Engine)
}

func TestOpenRequiresToken(t *testing.T) {
	d, err := New(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	_, err = d.Open("AAPL.US")
	assert.ErrorIs(t, err, ErrNoAPIToken)

	d.Config.Provider.APIToken = "demo"
	src, err := d.Open(" aapl.us ")
	require.NoError(t, err)
	assert.NotNil(t, src)
}

func TestNewRejectsBadCatalogFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogFile = "catalog.txt"
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
