package clickhouse

import (
	"context"
	"fmt"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// MetricsHistoryStore implements storage.MetricsHistoryStore using ClickHouse.
type MetricsHistoryStore struct {
	conn *Conn
}

// NewMetricsHistoryStore creates a new MetricsHistoryStore.
func NewMetricsHistoryStore(conn *Conn) *MetricsHistoryStore {
	return &MetricsHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricsHistoryStore = (*MetricsHistoryStore)(nil)

// InsertBulk appends one history row per metrics value in a single batch.
func (s *MetricsHistoryStore) InsertBulk(ctx context.Context, metrics []*domain.TokenMetrics) error {
	if len(metrics) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_metrics_history (
			token_address, price, price_change_24h, volume_24h, liquidity, market_cap,
			holder_count, trade_count_24h, unique_traders_24h, buy_pressure, updated_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, m := range metrics {
		if m == nil || m.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			m.TokenAddress, m.Price, m.PriceChange24h, m.Volume24h, m.Liquidity, m.MarketCap,
			uint32(m.HolderCount), uint32(m.TradeCount24h), uint32(m.UniqueTraders24h), m.BuyPressure, m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves history for a token within [start, end] (inclusive).
func (s *MetricsHistoryStore) GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.TokenMetrics, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT token_address, price, price_change_24h, volume_24h, liquidity, market_cap,
		       holder_count, trade_count_24h, unique_traders_24h, buy_pressure, updated_at_ms
		FROM token_metrics_history
		WHERE token_address = ? AND updated_at_ms >= ? AND updated_at_ms <= ?
		ORDER BY updated_at_ms ASC
	`, token, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenMetrics
	for rows.Next() {
		var m domain.TokenMetrics
		var holders, trades, traders uint32
		err := rows.Scan(
			&m.TokenAddress, &m.Price, &m.PriceChange24h, &m.Volume24h, &m.Liquidity, &m.MarketCap,
			&holders, &trades, &traders, &m.BuyPressure, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metrics history: %w", err)
		}
		m.HolderCount = int(holders)
		m.TradeCount24h = int(trades)
		m.UniqueTraders24h = int(traders)
		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}
