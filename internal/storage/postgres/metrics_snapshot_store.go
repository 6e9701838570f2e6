package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// MetricsSnapshotStore implements storage.MetricsSnapshotStore using PostgreSQL.
// Used when ClickHouse is not configured.
type MetricsSnapshotStore struct {
	pool *Pool
}

// NewMetricsSnapshotStore creates a new MetricsSnapshotStore.
func NewMetricsSnapshotStore(pool *Pool) *MetricsSnapshotStore {
	return &MetricsSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetricsSnapshotStore = (*MetricsSnapshotStore)(nil)

// Insert adds a snapshot. Returns ErrDuplicateKey if (token_address, block_number, log_index) exists.
func (s *MetricsSnapshotStore) Insert(ctx context.Context, snap *domain.MetricsSnapshot) error {
	if snap == nil || snap.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO metrics_snapshots (
			token_address, price, volume_24h, holder_count, trade_count_24h,
			liquidity, market_cap, timestamp, block_number, tx_hash, log_index
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		snap.TokenAddress,
		snap.Price,
		snap.Volume24h,
		int64(snap.HolderCount),
		int64(snap.TradeCount24h),
		snap.Liquidity,
		snap.MarketCap,
		snap.Timestamp,
		snap.BlockNumber,
		snap.TxHash,
		snap.LogIndex,
	)
	if err != nil {
		return mapWriteError("insert metrics snapshot", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot of a token.
func (s *MetricsSnapshotStore) GetLatest(ctx context.Context, token string) (*domain.MetricsSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT token_address, price, volume_24h, holder_count, trade_count_24h,
		       liquidity, market_cap, timestamp, block_number, tx_hash, log_index
		FROM metrics_snapshots
		WHERE token_address = $1
		ORDER BY block_number DESC, log_index DESC
		LIMIT 1
	`, token)
	return scanLatestSnapshot(row)
}

// GetLatestInRange retrieves the most recent snapshot of a token within [from, to].
func (s *MetricsSnapshotStore) GetLatestInRange(ctx context.Context, token string, from, to int64) (*domain.MetricsSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT token_address, price, volume_24h, holder_count, trade_count_24h,
		       liquidity, market_cap, timestamp, block_number, tx_hash, log_index
		FROM metrics_snapshots
		WHERE token_address = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY block_number DESC, log_index DESC
		LIMIT 1
	`, token, from, to)
	return scanLatestSnapshot(row)
}

func scanLatestSnapshot(row pgx.Row) (*domain.MetricsSnapshot, error) {
	var snap domain.MetricsSnapshot
	var holders, trades int64
	err := row.Scan(
		&snap.TokenAddress,
		&snap.Price,
		&snap.Volume24h,
		&holders,
		&trades,
		&snap.Liquidity,
		&snap.MarketCap,
		&snap.Timestamp,
		&snap.BlockNumber,
		&snap.TxHash,
		&snap.LogIndex,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest metrics snapshot: %w", err)
	}
	snap.HolderCount = uint32(holders)
	snap.TradeCount24h = uint32(trades)
	return &snap, nil
}
