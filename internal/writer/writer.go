// Package writer persists decoded domain events with an explicit conflict
// policy per entity type.
//
// Conflict policies:
//   - Token: insert-if-absent; graduation is a separate update-only operation.
//   - Trade: insert-only, keyed by (token, tx hash, log index).
//   - DailySnapshot: recomputed from the trades of that UTC date and upserted.
//   - FeeCollection: insert-only, keyed by (tx hash, log index).
//   - LiquidityLock: insert-if-absent by lock id; release only flips the flag.
//   - MetricsSnapshot: insert-only, keyed by (token, block, log index).
package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/observability"
	"launchpad-indexer/internal/storage"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// TokenInvalidator evicts cached state of a token.
type TokenInvalidator interface {
	InvalidateToken(ctx context.Context, token string)
}

// Writer is the persistence sink of the ingestion pipeline.
type Writer struct {
	stores      *storage.Stores
	invalidator TokenInvalidator
	logger      *logrus.Entry
	now         func() time.Time
	days        dayLocks
}

// Option configures a Writer.
type Option func(*Writer)

// WithInvalidator sets the cache invalidated by graduations.
func WithInvalidator(inv TokenInvalidator) Option {
	return func(w *Writer) { w.invalidator = inv }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(w *Writer) { w.logger = logger }
}

// WithClock overrides the clock used for UpdatedAt fields.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// New creates a Writer over the given stores.
func New(stores *storage.Stores, opts ...Option) *Writer {
	w := &Writer{
		stores: stores,
		logger: logrus.WithField("component", "writer"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle persists one event.
// Duplicates and rejected data are logged and swallowed; only transient
// failures are returned, and the caller is expected to retry them.
func (w *Writer) Handle(ctx context.Context, ev domain.Event) error {
	if _, ok := ev.(*domain.MetricsUpdateEvent); ok {
		// Owned by the aggregator; nothing is written here.
		return nil
	}

	start := time.Now()
	err := w.dispatch(ctx, ev)
	outcome := Classify(err)
	observability.RecordWrite(string(ev.Type()), outcome.String(), time.Since(start).Seconds())

	pos := ev.Position()
	switch outcome {
	case OutcomeDuplicate:
		w.logger.WithFields(logrus.Fields{
			"event": ev.Type(),
			"block": pos.BlockNumber,
			"tx":    pos.TxHash,
		}).Debug("event already recorded")
	case OutcomeSkipped:
		w.logger.WithFields(logrus.Fields{
			"event":     ev.Type(),
			"token":     domain.TokenAddressOf(ev),
			"block":     pos.BlockNumber,
			"tx_hash":   pos.TxHash,
			"log_index": pos.LogIndex,
		}).WithError(err).Error("skipping event")
	case OutcomeTransient:
		return fmt.Errorf("write %s at block %d: %w", ev.Type(), pos.BlockNumber, err)
	}
	return nil
}

func (w *Writer) dispatch(ctx context.Context, ev domain.Event) error {
	switch e := ev.(type) {
	case *domain.TokenCreatedEvent:
		return w.CreateToken(ctx, &e.Token)
	case *domain.TradeEvent:
		return w.RecordTrade(ctx, &e.Trade)
	case *domain.TokenGraduatedEvent:
		return w.GraduateToken(ctx, e.Graduation())
	case *domain.FeesCollectedEvent:
		return w.RecordFees(ctx, &e.Fee)
	case *domain.LiquidityLockedEvent:
		return w.LockLiquidity(ctx, &e.Lock)
	case *domain.LiquidityReleasedEvent:
		return w.ReleaseLiquidity(ctx, e.Release)
	case *domain.MetricsSnapshotEvent:
		return w.RecordSnapshot(ctx, &e.Snapshot)
	default:
		return fmt.Errorf("%w: unsupported event %T", storage.ErrInvalidInput, ev)
	}
}

// CreateToken inserts a token if absent.
func (w *Writer) CreateToken(ctx context.Context, t *domain.Token) error {
	return w.stores.Tokens.Insert(ctx, t)
}

// GraduateToken applies a graduation and evicts the token from the cache.
// Repeated graduations are no-ops.
func (w *Writer) GraduateToken(ctx context.Context, g domain.Graduation) error {
	updated, err := w.stores.Tokens.Graduate(ctx, g)
	if err != nil {
		return err
	}
	if !updated {
		return storage.ErrDuplicateKey
	}
	if w.invalidator != nil {
		w.invalidator.InvalidateToken(ctx, g.TokenAddress)
	}
	return nil
}

// RecordTrade inserts a trade and refreshes the daily snapshot of its date.
// The snapshot is refreshed for duplicates too, so a retry after a partial
// failure converges.
func (w *Writer) RecordTrade(ctx context.Context, t *domain.Trade) error {
	insertErr := w.stores.Trades.Insert(ctx, t)
	if insertErr != nil && !errors.Is(insertErr, storage.ErrDuplicateKey) {
		return insertErr
	}
	if err := w.refreshDailySnapshot(ctx, t.TokenAddress, t.Timestamp); err != nil {
		return fmt.Errorf("refresh daily snapshot: %w", err)
	}
	return insertErr
}

// RecordFees inserts a fee collection.
func (w *Writer) RecordFees(ctx context.Context, f *domain.FeeCollection) error {
	return w.stores.Fees.Insert(ctx, f)
}

// LockLiquidity inserts a liquidity lock if absent.
func (w *Writer) LockLiquidity(ctx context.Context, l *domain.LiquidityLock) error {
	return w.stores.Locks.Insert(ctx, l)
}

// ReleaseLiquidity flips the released flag of a lock.
func (w *Writer) ReleaseLiquidity(ctx context.Context, r domain.LiquidityRelease) error {
	return w.stores.Locks.Release(ctx, r.LockID)
}

// RecordSnapshot inserts an on-chain metrics snapshot and refreshes the
// holder count of the daily snapshot of its date.
func (w *Writer) RecordSnapshot(ctx context.Context, s *domain.MetricsSnapshot) error {
	insertErr := w.stores.OnChain.Insert(ctx, s)
	if insertErr != nil && !errors.Is(insertErr, storage.ErrDuplicateKey) {
		return insertErr
	}
	if err := w.refreshDailySnapshot(ctx, s.TokenAddress, s.Timestamp); err != nil {
		return fmt.Errorf("refresh daily snapshot: %w", err)
	}
	return insertErr
}

// refreshDailySnapshot recomputes the (token, date) row containing ts from
// the persisted trades and metrics snapshots of that date. The result does not
// depend on the order the trades were ingested in. Refreshes of one
// (token, date) are serialized so a stale read never lands last.
func (w *Writer) refreshDailySnapshot(ctx context.Context, token string, ts int64) error {
	dayStart := ts - floorMod(ts, dayMillis)
	dayEnd := dayStart + dayMillis - 1

	unlock := w.days.lock(fmt.Sprintf("%s|%d", token, dayStart))
	defer unlock()

	trades, err := w.stores.Trades.GetByTimeRange(ctx, token, dayStart, dayEnd)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		return nil
	}

	snap := buildDailySnapshot(token, dayStart, trades)
	snap.UpdatedAt = w.now().UnixMilli()

	latest, err := w.stores.OnChain.GetLatestInRange(ctx, token, dayStart, dayEnd)
	switch {
	case err == nil:
		snap.HolderCount = int(latest.HolderCount)
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	return w.stores.Snapshots.Upsert(ctx, snap)
}

// buildDailySnapshot folds chronologically ordered trades into an OHLC row.
func buildDailySnapshot(token string, dayStart int64, trades []*domain.Trade) *domain.DailySnapshot {
	first, last := trades[0], trades[len(trades)-1]
	snap := &domain.DailySnapshot{
		TokenAddress: token,
		Date:         time.UnixMilli(dayStart).UTC().Format(domain.DateLayout),
		Open:         first.Price,
		High:         first.Price,
		Low:          first.Price,
		Close:        last.Price,
		Volume:       decimal.Zero,
		TradeCount:   len(trades),
		OpenTime:     first.Timestamp,
		CloseTime:    last.Timestamp,
	}
	for _, t := range trades {
		if t.Price.GreaterThan(snap.High) {
			snap.High = t.Price
		}
		if t.Price.LessThan(snap.Low) {
			snap.Low = t.Price
		}
		snap.Volume = snap.Volume.Add(t.AmountIn)
	}
	return snap
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// dayLocks hands out one mutex per key and forgets it once unused.
type dayLocks struct {
	mu    sync.Mutex
	locks map[string]*dayLock
}

type dayLock struct {
	mu   sync.Mutex
	refs int
}

func (d *dayLocks) lock(key string) func() {
	d.mu.Lock()
	if d.locks == nil {
		d.locks = make(map[string]*dayLock)
	}
	l, ok := d.locks[key]
	if !ok {
		l = &dayLock{}
		d.locks[key] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, key)
		}
		d.mu.Unlock()
	}
}
