package postgres

import (
	"context"
	"fmt"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// DailySnapshotStore implements storage.DailySnapshotStore using PostgreSQL.
type DailySnapshotStore struct {
	pool *Pool
}

// NewDailySnapshotStore creates a new DailySnapshotStore.
func NewDailySnapshotStore(pool *Pool) *DailySnapshotStore {
	return &DailySnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailySnapshotStore = (*DailySnapshotStore)(nil)

// Upsert writes a snapshot keyed by (token_address, date).
// Open is only replaced by a strictly earlier open.
func (s *DailySnapshotStore) Upsert(ctx context.Context, snap *domain.DailySnapshot) error {
	if snap == nil || snap.TokenAddress == "" || snap.Date == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO daily_snapshots (
			token_address, date, open, high, low, close, volume,
			trade_count, holder_count, open_time, close_time, updated_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (token_address, date) DO UPDATE
		SET open = CASE WHEN EXCLUDED.open_time < daily_snapshots.open_time
		                THEN EXCLUDED.open ELSE daily_snapshots.open END,
		    open_time = LEAST(EXCLUDED.open_time, daily_snapshots.open_time),
		    high = EXCLUDED.high,
		    low = EXCLUDED.low,
		    close = EXCLUDED.close,
		    volume = EXCLUDED.volume,
		    trade_count = EXCLUDED.trade_count,
		    holder_count = EXCLUDED.holder_count,
		    close_time = EXCLUDED.close_time,
		    updated_at = EXCLUDED.updated_at
	`,
		snap.TokenAddress,
		snap.Date,
		snap.Open,
		snap.High,
		snap.Low,
		snap.Close,
		snap.Volume,
		snap.TradeCount,
		snap.HolderCount,
		snap.OpenTime,
		snap.CloseTime,
		snap.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("upsert daily snapshot", err)
	}
	return nil
}

// Get retrieves the snapshot for a token and date.
func (s *DailySnapshotStore) Get(ctx context.Context, token, date string) (*domain.DailySnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT token_address, date::text, open, high, low, close, volume,
		       trade_count, holder_count, open_time, close_time, updated_at
		FROM daily_snapshots
		WHERE token_address = $1 AND date = $2::date
	`, token, date)

	var snap domain.DailySnapshot
	err := row.Scan(
		&snap.TokenAddress,
		&snap.Date,
		&snap.Open,
		&snap.High,
		&snap.Low,
		&snap.Close,
		&snap.Volume,
		&snap.TradeCount,
		&snap.HolderCount,
		&snap.OpenTime,
		&snap.CloseTime,
		&snap.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get daily snapshot: %w", err)
	}
	return &snap, nil
}
