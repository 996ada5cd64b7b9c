// Package bootstrap builds the shared runtime graph used by the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"statement_metrics/pkg/config"
	"statement_metrics/pkg/core/analysis"
	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/provider"
	"statement_metrics/pkg/core/store"
)

// ErrNoAPIToken is returned when a ticker is requested without provider credentials.
var ErrNoAPIToken = errors.New("provider api token is not configured")

type Deps struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Catalog *catalog.Catalog
	Engine  *analysis.AnalysisEngine
	Client  *provider.Client
	Cache   *store.StatementCache

	db bool
}

// New loads the catalog, connects the cache (Postgres when configured,
// files otherwise) and creates the provider client.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Deps, error) {
	cat, err := catalog.FromFile(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if cycle := cat.Cycle(); len(cycle) > 0 {
		logger.Debug().Strs("cycle", cycle).Msg("catalog derivation graph has a cycle; broken at resolution time")
	}

	d := &Deps{Config: cfg, Logger: logger, Catalog: cat}

	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		d.db = true
		logger.Info().Msg("statement cache backed by postgres")
	} else {
		logger.Info().Str("dir", cfg.Cache.Dir).Msg("statement cache backed by files")
	}
	d.Cache = store.NewStatementCache(store.GetPool(), cfg.Cache.Dir,
		store.WithMaxAge(cfg.Cache.MaxAge),
		store.WithCacheLogger(logger.With().Str("component", "cache").Logger()))

	d.Client = provider.NewClient(cfg.Provider.APIToken,
		provider.WithBaseURL(cfg.Provider.BaseURL),
		provider.WithTimeout(cfg.Provider.Timeout),
		provider.WithRateLimit(cfg.Provider.RatePerSec),
		provider.WithLogger(logger.With().Str("component", "eodhd").Logger()))

	d.Engine = analysis.NewAnalysisEngine(cat, analysis.WithLogger(logger))
	return d, nil
}

// Open returns the cache-backed, live-priced source for a ticker.
func (d *Deps) Open(ticker string) (analysis.Source, error) {
	if d.Config.Provider.APIToken == "" {
		return nil, ErrNoAPIToken
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	cached := store.NewCachedSource(d.Cache, d.Client, ticker)
	return provider.WithQuote(cached, d.Client, ticker), nil
}

// Close releases the database pool, if any.
func (d *Deps) Close() {
	if d.db {
		store.Close()
	}
}
