package clickhouse

import (
	"context"
	"fmt"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// MetricsSnapshotStore implements storage.MetricsSnapshotStore using ClickHouse.
type MetricsSnapshotStore struct {
	conn *Conn
}

// NewMetricsSnapshotStore creates a new MetricsSnapshotStore.
func NewMetricsSnapshotStore(conn *Conn) *MetricsSnapshotStore {
	return &MetricsSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricsSnapshotStore = (*MetricsSnapshotStore)(nil)

// Insert adds a snapshot. Returns ErrDuplicateKey if (token_address, block_number, log_index) exists.
// ReplacingMergeTree deduplicates eventually; the explicit check makes the insert idempotent now.
func (s *MetricsSnapshotStore) Insert(ctx context.Context, snap *domain.MetricsSnapshot) error {
	if snap == nil || snap.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, snap.TokenAddress, snap.BlockNumber, snap.LogIndex)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metrics_snapshots (
			token_address, price, volume_24h, holder_count, trade_count_24h,
			liquidity, market_cap, timestamp_ms, block_number, tx_hash, log_index
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		snap.TokenAddress, snap.Price, snap.Volume24h, snap.HolderCount, snap.TradeCount24h,
		snap.Liquidity, snap.MarketCap, snap.Timestamp, snap.BlockNumber, snap.TxHash, uint32(snap.LogIndex),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot of a token.
func (s *MetricsSnapshotStore) GetLatest(ctx context.Context, token string) (*domain.MetricsSnapshot, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT token_address, price, volume_24h, holder_count, trade_count_24h,
		       liquidity, market_cap, timestamp_ms, block_number, tx_hash, log_index
		FROM metrics_snapshots FINAL
		WHERE token_address = ?
		ORDER BY block_number DESC, log_index DESC
		LIMIT 1
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	defer rows.Close()

	snaps, err := scanMetricsSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[0], nil
}

// GetLatestInRange retrieves the most recent snapshot of a token within [from, to].
func (s *MetricsSnapshotStore) GetLatestInRange(ctx context.Context, token string, from, to int64) (*domain.MetricsSnapshot, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT token_address, price, volume_24h, holder_count, trade_count_24h,
		       liquidity, market_cap, timestamp_ms, block_number, tx_hash, log_index
		FROM metrics_snapshots FINAL
		WHERE token_address = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY block_number DESC, log_index DESC
		LIMIT 1
	`, token, from, to)
	if err != nil {
		return nil, fmt.Errorf("query snapshot in range: %w", err)
	}
	defer rows.Close()

	snaps, err := scanMetricsSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[0], nil
}

// exists checks if a snapshot with the given key exists.
func (s *MetricsSnapshotStore) exists(ctx context.Context, token string, block uint64, logIndex uint) (bool, error) {
	query := `
		SELECT count(*) FROM metrics_snapshots
		WHERE token_address = ? AND block_number = ? AND log_index = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, token, block, uint32(logIndex)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanMetricsSnapshots scans multiple rows.
func scanMetricsSnapshots(rows chRows) ([]*domain.MetricsSnapshot, error) {
	var snaps []*domain.MetricsSnapshot

	for rows.Next() {
		var snap domain.MetricsSnapshot
		var logIndex uint32
		err := rows.Scan(
			&snap.TokenAddress, &snap.Price, &snap.Volume24h, &snap.HolderCount, &snap.TradeCount24h,
			&snap.Liquidity, &snap.MarketCap, &snap.Timestamp, &snap.BlockNumber, &snap.TxHash, &logIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metrics snapshot: %w", err)
		}
		snap.LogIndex = uint(logIndex)
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return snaps, nil
}
