package postgres

import (
	"context"
	"fmt"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// TokenMetricsStore implements storage.TokenMetricsStore using PostgreSQL.
type TokenMetricsStore struct {
	pool *Pool
}

// NewTokenMetricsStore creates a new TokenMetricsStore.
func NewTokenMetricsStore(pool *Pool) *TokenMetricsStore {
	return &TokenMetricsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenMetricsStore = (*TokenMetricsStore)(nil)

// Upsert replaces the derived metrics row of a token.
func (s *TokenMetricsStore) Upsert(ctx context.Context, m *domain.TokenMetrics) error {
	if m == nil || m.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_metrics (
			token_address, price, price_change_24h, volume_24h, liquidity, market_cap,
			holder_count, trade_count_24h, unique_traders_24h, buy_pressure, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (token_address) DO UPDATE
		SET price = EXCLUDED.price,
		    price_change_24h = EXCLUDED.price_change_24h,
		    volume_24h = EXCLUDED.volume_24h,
		    liquidity = EXCLUDED.liquidity,
		    market_cap = EXCLUDED.market_cap,
		    holder_count = EXCLUDED.holder_count,
		    trade_count_24h = EXCLUDED.trade_count_24h,
		    unique_traders_24h = EXCLUDED.unique_traders_24h,
		    buy_pressure = EXCLUDED.buy_pressure,
		    updated_at = EXCLUDED.updated_at
	`,
		m.TokenAddress,
		m.Price,
		m.PriceChange24h,
		m.Volume24h,
		m.Liquidity,
		m.MarketCap,
		m.HolderCount,
		m.TradeCount24h,
		m.UniqueTraders24h,
		m.BuyPressure,
		m.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("upsert token metrics", err)
	}
	return nil
}

// Get retrieves metrics for a token. Returns ErrNotFound if not exists.
func (s *TokenMetricsStore) Get(ctx context.Context, token string) (*domain.TokenMetrics, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT token_address, price, price_change_24h, volume_24h, liquidity, market_cap,
		       holder_count, trade_count_24h, unique_traders_24h, buy_pressure, updated_at
		FROM token_metrics
		WHERE token_address = $1
	`, token)

	var m domain.TokenMetrics
	err := row.Scan(
		&m.TokenAddress,
		&m.Price,
		&m.PriceChange24h,
		&m.Volume24h,
		&m.Liquidity,
		&m.MarketCap,
		&m.HolderCount,
		&m.TradeCount24h,
		&m.UniqueTraders24h,
		&m.BuyPressure,
		&m.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token metrics: %w", err)
	}
	return &m, nil
}
