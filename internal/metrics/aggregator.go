// Package metrics recomputes rolling 24h token metrics from persisted trades.
// The result is a best-effort view: skipping a cycle or recomputing from
// scratch is always safe.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/observability"
	"launchpad-indexer/internal/storage"
)

const (
	// DefaultInterval is the period between aggregation cycles.
	DefaultInterval = 60 * time.Second
	// DefaultWindow is the rolling window length.
	DefaultWindow = 24 * time.Hour
)

// MetricsCache receives freshly computed metrics.
type MetricsCache interface {
	PutMetrics(ctx context.Context, m *domain.TokenMetrics) error
}

// EventSink receives metrics_update events.
type EventSink interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// Aggregator computes TokenMetrics for every token traded within the window.
type Aggregator struct {
	trades   storage.TradeStore
	onchain  storage.MetricsSnapshotStore
	metrics  storage.TokenMetricsStore
	history  storage.MetricsHistoryStore
	cache    MetricsCache
	sink     EventSink
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	logger   *logrus.Entry
}

// Options contains configuration for creating an Aggregator.
type Options struct {
	Trades  storage.TradeStore
	OnChain storage.MetricsSnapshotStore // optional
	Metrics storage.TokenMetricsStore
	History storage.MetricsHistoryStore // optional
	Cache   MetricsCache                // optional
	Sink    EventSink                   // optional

	Interval time.Duration
	Window   time.Duration
	Now      func() time.Time
	Logger   *logrus.Entry
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(opts Options) *Aggregator {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "aggregator")
	}

	return &Aggregator{
		trades:   opts.Trades,
		onchain:  opts.OnChain,
		metrics:  opts.Metrics,
		history:  opts.History,
		cache:    opts.Cache,
		sink:     opts.Sink,
		interval: interval,
		window:   window,
		now:      now,
		logger:   logger,
	}
}

// Run executes a cycle immediately and then on every interval until ctx is done.
// Cycle failures are logged; the next cycle recomputes from scratch.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if _, err := a.RunOnce(ctx); err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Warn("aggregation cycle incomplete")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce computes and stores metrics for every token with a trade in the window.
// A failure for one token does not stop the others; all failures are returned joined.
func (a *Aggregator) RunOnce(ctx context.Context) ([]*domain.TokenMetrics, error) {
	start := time.Now()
	now := a.now().UnixMilli()
	since := now - a.window.Milliseconds()

	tokens, err := a.trades.GetActiveTokens(ctx, since)
	if err != nil {
		observability.RecordAggregatorRun("error", time.Since(start).Seconds(), 0)
		return nil, fmt.Errorf("get active tokens: %w", err)
	}
	sort.Strings(tokens)

	var (
		results []*domain.TokenMetrics
		errs    []error
	)
	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		m, err := a.computeToken(ctx, token, since, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", token, err))
			continue
		}

		if err := a.metrics.Upsert(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("%s: upsert metrics: %w", token, err))
			continue
		}

		if a.cache != nil {
			if err := a.cache.PutMetrics(ctx, m); err != nil {
				a.logger.WithError(err).WithField("token", token).Warn("failed to cache metrics")
			}
		}

		results = append(results, m)
	}

	if a.history != nil && len(results) > 0 {
		if err := a.history.InsertBulk(ctx, results); err != nil {
			errs = append(errs, fmt.Errorf("insert metrics history: %w", err))
		}
	}

	if a.sink != nil {
		for _, m := range results {
			ev := &domain.MetricsUpdateEvent{Metrics: *m}
			if err := a.sink.Handle(ctx, ev); err != nil {
				a.logger.WithError(err).WithField("token", m.TokenAddress).Debug("failed to publish metrics update")
			}
		}
	}

	status := "success"
	if len(errs) > 0 {
		status = "partial"
	}
	observability.RecordAggregatorRun(status, time.Since(start).Seconds(), len(results))

	a.logger.WithFields(logrus.Fields{
		"tokens":   len(tokens),
		"computed": len(results),
		"failed":   len(errs),
		"duration": time.Since(start),
	}).Debug("aggregation cycle complete")

	return results, errors.Join(errs...)
}

func (a *Aggregator) computeToken(ctx context.Context, token string, since, now int64) (*domain.TokenMetrics, error) {
	trades, err := a.trades.GetByTimeRange(ctx, token, since, now)
	if err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}

	in := Input{Token: token, Now: now, Trades: trades}

	ago, err := a.trades.GetLatestAtOrBefore(ctx, token, since)
	switch {
	case err == nil:
		in.PriceAgo = ago
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("get price %s ago: %w", a.window, err)
	}

	if a.onchain != nil {
		snap, err := a.onchain.GetLatest(ctx, token)
		switch {
		case err == nil:
			in.Snapshot = snap
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("get latest snapshot: %w", err)
		}
	}

	return Compute(in), nil
}
