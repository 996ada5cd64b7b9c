package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/statement"
)

// StatementCache stores fetched statements per ticker.
// DB is primary; without a pool it falls back to JSON files in a directory.
type StatementCache struct {
	pool    *pgxpool.Pool
	fileDir string
	maxAge  time.Duration
	logger  zerolog.Logger
}

// CacheOption configures a StatementCache.
type CacheOption func(*StatementCache)

// WithMaxAge treats entries older than d as misses. Zero keeps entries forever.
func WithMaxAge(d time.Duration) CacheOption {
	return func(c *StatementCache) { c.maxAge = d }
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l zerolog.Logger) CacheOption {
	return func(c *StatementCache) { c.logger = l }
}

// NewStatementCache creates a cache. If pool is nil and dir is empty, the
// file cache defaults to .cache/statements.
func NewStatementCache(pool *pgxpool.Pool, dir string, opts ...CacheOption) *StatementCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "statements")
	}
	c := &StatementCache{pool: pool, fileDir: dir, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if pool == nil {
		if err := os.MkdirAll(dir, 0755); err != nil {
			c.logger.Warn().Err(err).Str("dir", dir).Msg("cannot create statement cache dir")
		}
	}
	return c
}

// Entry is one cached ticker.
type Entry struct {
	ID        string           `json:"id"`
	Ticker    string           `json:"ticker"`
	Income    *statement.Table `json:"income"`
	Balance   *statement.Table `json:"balance"`
	Snapshot  market.Snapshot  `json:"snapshot"`
	FetchedAt time.Time        `json:"fetched_at"`
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Get returns the cached entry for ticker, or nil on a miss.
func (c *StatementCache) Get(ctx context.Context, ticker string) (*Entry, error) {
	ticker = normalizeTicker(ticker)
	var entry *Entry
	if c.pool != nil {
		var dataJSON []byte
		err := c.pool.QueryRow(ctx, `SELECT data FROM statement_snapshots WHERE ticker = $1`, ticker).Scan(&dataJSON)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query statement cache: %w", err)
		}
		entry = &Entry{}
		if err := json.Unmarshal(dataJSON, entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal db cached data: %w", err)
		}
	} else {
		var err error
		if entry, err = c.loadFromFile(c.tickerPath(ticker)); err != nil || entry == nil {
			return nil, err
		}
	}

	if c.maxAge > 0 && time.Since(entry.FetchedAt) > c.maxAge {
		c.logger.Debug().Str("ticker", ticker).Time("fetched_at", entry.FetchedAt).Msg("statement cache entry expired")
		return nil, nil
	}
	return entry, nil
}

// Save stores an entry, replacing any previous one for the ticker.
func (c *StatementCache) Save(ctx context.Context, entry *Entry) error {
	entry.Ticker = normalizeTicker(entry.Ticker)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now().UTC()
	}
	dataJSON, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if c.pool != nil {
		query := `
			INSERT INTO statement_snapshots (ticker, id, data, fetched_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (ticker)
			DO UPDATE SET
				id = EXCLUDED.id,
				data = EXCLUDED.data,
				fetched_at = EXCLUDED.fetched_at,
				updated_at = NOW()
		`
		if _, err := c.pool.Exec(ctx, query, entry.Ticker, entry.ID, dataJSON, entry.FetchedAt); err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(c.tickerPath(entry.Ticker), dataJSON, 0644); err != nil {
		return fmt.Errorf("failed to save to file cache: %w", err)
	}
	return nil
}

// Exists reports whether any entry, fresh or not, is cached for ticker.
func (c *StatementCache) Exists(ctx context.Context, ticker string) bool {
	ticker = normalizeTicker(ticker)
	if c.pool != nil {
		var exists int
		err := c.pool.QueryRow(ctx, `SELECT 1 FROM statement_snapshots WHERE ticker = $1`, ticker).Scan(&exists)
		return err == nil
	}
	_, err := os.Stat(c.tickerPath(ticker))
	return err == nil
}

func (c *StatementCache) tickerPath(ticker string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(ticker)
	return filepath.Join(c.fileDir, safe+".json")
}

func (c *StatementCache) loadFromFile(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file cache: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file cache %s: %w", filepath.Base(path), err)
	}
	return &entry, nil
}
