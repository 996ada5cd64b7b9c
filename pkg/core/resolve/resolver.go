// Package resolve turns standardized metric names into resolved series by
// trying vendor aliases in precedence order and, failing that, deriving the
// metric from other metrics.
package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"statement_metrics/pkg/core/catalog"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/series"
	"statement_metrics/pkg/core/statement"
)

// Resolver resolves one standardized metric.
type Resolver interface {
	Resolve(ctx context.Context, metric string) (series.Series, error)
}

type result struct {
	s   series.Series
	err error
}

// Session resolves metrics for one company against one statement source.
// Results, including failures, are memoized by metric name for the life of
// the session. A Session is safe for concurrent use.
type Session struct {
	ID      string
	ticker  string
	source  statement.Source
	catalog *catalog.Catalog
	logger  zerolog.Logger

	mu      sync.Mutex
	memo    map[string]result
	income  lazyTable
	balance lazyTable
}

// lazyTable fetches a statement table once. Callers for the same statement
// wait on its own lock; a failed fetch is retried by the next caller.
type lazyTable struct {
	mu    sync.Mutex
	table *statement.Table
}

func (l *lazyTable) get(ctx context.Context, fetch func(context.Context) (*statement.Table, error)) (*statement.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.table != nil {
		return l.table, nil
	}
	t, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	l.table = t
	return t, nil
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTicker labels log lines with the company being resolved.
func WithTicker(ticker string) Option {
	return func(s *Session) { s.ticker = ticker }
}

// NewSession creates a resolution session. A nil catalog means the default.
func NewSession(source statement.Source, cat *catalog.Catalog, opts ...Option) *Session {
	if cat == nil {
		cat = catalog.Default()
	}
	s := &Session{
		ID:      uuid.NewString(),
		source:  source,
		catalog: cat,
		logger:  zerolog.Nop(),
		memo:    make(map[string]result),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("session", s.ID).Str("ticker", s.ticker).Logger()
	return s
}

// Catalog returns the catalog the session resolves against.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Resolve returns the series for metric or an *outcome.Unavailable.
// Any other error comes from the statement source.
func (s *Session) Resolve(ctx context.Context, metric string) (series.Series, error) {
	return s.resolve(ctx, metric, map[string]bool{})
}

func (s *Session) resolve(ctx context.Context, metric string, inProgress map[string]bool) (series.Series, error) {
	if r, ok := s.cached(metric); ok {
		return r.s, r.err
	}

	def, ok := s.catalog.Lookup(metric)
	if !ok {
		err := outcome.New(outcome.UndefinedMetric, metric, "metric is not defined in the catalog")
		s.logger.Warn().Str("metric", metric).Msg("metric is not defined")
		return s.store(metric, series.Series{}, err)
	}

	if inProgress[metric] {
		return series.Series{}, outcome.New(outcome.DerivationCycle, metric, "metric is already being derived")
	}

	table, err := s.table(ctx, def.Statement)
	if err != nil {
		return series.Series{}, err
	}

	for _, alias := range def.Aliases {
		if row, ok := table.Row(alias); ok {
			return s.store(metric, series.FromRow(metric, table.Periods(), row), nil)
		}
	}

	if def.Derivation == nil {
		s.logger.Warn().Str("metric", metric).Msg("metric could not be found or derived")
		return s.store(metric, series.Series{}, outcome.New(outcome.NotFound, metric, "no alias present and no derivation defined"))
	}

	s.logger.Debug().Str("metric", metric).Msg("not found directly, attempting derivation")

	inProgress[metric] = true
	defer delete(inProgress, metric)

	operands := make([]series.Series, 0, len(def.Derivation.Operands))
	for _, name := range def.Derivation.Operands {
		op, err := s.resolve(ctx, name, inProgress)
		if err != nil {
			if !outcome.IsUnavailable(err) {
				return series.Series{}, err
			}
			s.logger.Warn().Str("metric", metric).Str("operand", name).Err(err).Msg("failed to derive metric")
			fail := outcome.Wrap(outcome.OperandUnavailable, metric, err)
			fail.Detail = fmt.Sprintf("operand %q", name)
			return s.store(metric, series.Series{}, fail)
		}
		operands = append(operands, op)
	}

	derived := series.Combine(metric, def.Derivation.Operator, operands...)
	s.logger.Debug().Str("metric", metric).Strs("operands", def.Derivation.Operands).Msg("metric derived")
	return s.store(metric, derived, nil)
}

func (s *Session) cached(metric string) (result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.memo[metric]
	return r, ok
}

func (s *Session) store(metric string, ser series.Series, err error) (series.Series, error) {
	s.mu.Lock()
	s.memo[metric] = result{s: ser, err: err}
	s.mu.Unlock()
	return ser, err
}

func (s *Session) table(ctx context.Context, st catalog.Statement) (*statement.Table, error) {
	switch st {
	case catalog.Income:
		t, err := s.income.get(ctx, s.source.Income)
		if err != nil {
			return nil, fmt.Errorf("failed to load income statement: %w", err)
		}
		return t, nil
	case catalog.Balance:
		t, err := s.balance.get(ctx, s.source.Balance)
		if err != nil {
			return nil, fmt.Errorf("failed to load balance sheet: %w", err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unknown statement %v", st)
}

// Resolution is one entry of a ResolveAll result.
type Resolution struct {
	Series series.Series
	Err    error
}

// ResolveAll resolves the metrics concurrently. Unavailable metrics are
// reported per entry; the returned error is set only when the statement
// source itself fails.
func (s *Session) ResolveAll(ctx context.Context, metrics ...string) (map[string]Resolution, error) {
	out := make(map[string]Resolution, len(metrics))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range metrics {
		m := m
		g.Go(func() error {
			ser, err := s.Resolve(gctx, m)
			if err != nil && !outcome.IsUnavailable(err) {
				return err
			}
			mu.Lock()
			out[m] = Resolution{Series: ser, Err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
