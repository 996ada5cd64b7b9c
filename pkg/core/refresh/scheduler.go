// Package refresh keeps the statement cache warm on a cron schedule.
package refresh

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"statement_metrics/pkg/core/provider"
	"statement_metrics/pkg/core/store"
)

// DefaultSchedule refreshes once a day at 06:00.
const DefaultSchedule = "0 6 * * *"

// Scheduler periodically re-fetches a fixed set of tickers into the cache.
type Scheduler struct {
	cache   *store.StatementCache
	fetcher provider.Fetcher
	cron    *cron.Cron
	logger  zerolog.Logger
	timeout time.Duration
}

// NewScheduler creates a refresh scheduler.
func NewScheduler(cache *store.StatementCache, fetcher provider.Fetcher, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cache:   cache,
		fetcher: fetcher,
		cron:    cron.New(),
		logger:  logger.With().Str("component", "refresh").Logger(),
		timeout: 10 * time.Minute,
	}
}

// Start registers the schedule and begins running it.
func (s *Scheduler) Start(schedule string, tickers []string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	tickers = normalize(tickers)

	_, err := s.cron.AddFunc(schedule, func() {
		s.RunOnce(context.Background(), tickers)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Strs("tickers", tickers).
		Msg("Statement refresh scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Statement refresh scheduler stopped")
}

// RunOnce refreshes every ticker and returns how many succeeded. Failures
// are logged and do not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context, tickers []string) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	ok := 0
	for _, ticker := range tickers {
		if _, err := store.Refresh(ctx, s.cache, s.fetcher, ticker); err != nil {
			s.logger.Error().Err(err).Str("ticker", ticker).Msg("Statement refresh failed")
			continue
		}
		ok++
	}

	s.logger.Info().
		Int("refreshed", ok).
		Int("failed", len(tickers)-ok).
		Dur("duration", time.Since(start)).
		Msg("Statement refresh completed")
	return ok
}

func normalize(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
