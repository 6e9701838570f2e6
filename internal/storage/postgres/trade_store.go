package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `id, token_address, trader, side, amount_in, amount_out, price, market_cap,
		       timestamp, block_number, tx_hash, log_index, gas_used, created_at`

// Insert adds a new trade. Returns ErrDuplicateKey if (token_address, tx_hash, log_index) exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.TokenAddress == "" || t.TxHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (
			token_address, trader, side, amount_in, amount_out, price, market_cap,
			timestamp, block_number, tx_hash, log_index, gas_used
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TokenAddress,
		t.Trader,
		t.Side,
		t.AmountIn,
		t.AmountOut,
		t.Price,
		t.MarketCap,
		t.Timestamp,
		t.BlockNumber,
		t.TxHash,
		t.LogIndex,
		t.GasUsed,
	)
	if err != nil {
		return mapWriteError("insert trade", err)
	}
	return nil
}

// GetByToken retrieves all trades for a token in chronological order.
func (s *TradeStore) GetByToken(ctx context.Context, token string) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE token_address = $1
		ORDER BY timestamp ASC, block_number ASC, log_index ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("get trades by token: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByTimeRange retrieves trades for a token within [start, end] (inclusive).
func (s *TradeStore) GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE token_address = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, block_number ASC, log_index ASC
	`, token, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetLatestAtOrBefore retrieves the latest trade with timestamp <= ts.
func (s *TradeStore) GetLatestAtOrBefore(ctx context.Context, token string, ts int64) (*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE token_address = $1 AND timestamp <= $2
		ORDER BY timestamp DESC, block_number DESC, log_index DESC
		LIMIT 1
	`, token, ts)
	if err != nil {
		return nil, fmt.Errorf("get latest trade: %w", err)
	}
	defer rows.Close()

	trades, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, storage.ErrNotFound
	}
	return trades[0], nil
}

// GetActiveTokens returns the distinct tokens with a trade at or after since.
func (s *TradeStore) GetActiveTokens(ctx context.Context, since int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT token_address
		FROM trades
		WHERE timestamp >= $1
		ORDER BY token_address
	`, since)
	if err != nil {
		return nil, fmt.Errorf("get active tokens: %w", err)
	}
	defer rows.Close()

	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect active tokens: %w", err)
	}
	return tokens, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade

		err := rows.Scan(
			&t.ID,
			&t.TokenAddress,
			&t.Trader,
			&t.Side,
			&t.AmountIn,
			&t.AmountOut,
			&t.Price,
			&t.MarketCap,
			&t.Timestamp,
			&t.BlockNumber,
			&t.TxHash,
			&t.LogIndex,
			&t.GasUsed,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
