package storage

import (
	"context"

	"launchpad-indexer/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, t *domain.Token) error

	// Graduate sets the graduation fields of a token that has not graduated yet.
	// Returns ErrNotFound if the token does not exist. A token that already
	// graduated is left untouched and updated is false.
	Graduate(ctx context.Context, g domain.Graduation) (updated bool, err error)

	// GetByAddress retrieves a token by address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Token, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if (token_address, tx_hash, log_index) exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// GetByToken retrieves all trades for a token, ordered by (timestamp, block_number, log_index) ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.Trade, error)

	// GetByTimeRange retrieves trades for a token within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.Trade, error)

	// GetLatestAtOrBefore retrieves the latest trade with timestamp <= ts.
	// Returns ErrNotFound if there is none.
	GetLatestAtOrBefore(ctx context.Context, token string, ts int64) (*domain.Trade, error)

	// GetActiveTokens returns the distinct tokens with at least one trade at or after since.
	GetActiveTokens(ctx context.Context, since int64) ([]string, error)
}

// DailySnapshotStore provides access to daily_snapshots storage.
type DailySnapshotStore interface {
	// Upsert writes a snapshot keyed by (token_address, date). On conflict high, low,
	// close, volume, trade and holder counts are overwritten. Open is only replaced
	// when the incoming OpenTime is strictly earlier than the stored one.
	Upsert(ctx context.Context, s *domain.DailySnapshot) error

	// Get retrieves the snapshot for a token and date. Returns ErrNotFound if not exists.
	Get(ctx context.Context, token, date string) (*domain.DailySnapshot, error)
}

// FeeCollectionStore provides access to fee_collections storage.
type FeeCollectionStore interface {
	// Insert adds a fee collection. Returns ErrDuplicateKey if (tx_hash, log_index) exists.
	Insert(ctx context.Context, f *domain.FeeCollection) error

	// GetByToken retrieves all fee collections for a token, ordered by block ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.FeeCollection, error)
}

// LiquidityLockStore provides access to liquidity_locks storage.
type LiquidityLockStore interface {
	// Insert adds a lock. Returns ErrDuplicateKey if lock_id exists.
	Insert(ctx context.Context, l *domain.LiquidityLock) error

	// Release marks a lock as released. Releasing twice is a no-op.
	// Returns ErrNotFound if the lock does not exist.
	Release(ctx context.Context, lockID string) error

	// GetByID retrieves a lock. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, lockID string) (*domain.LiquidityLock, error)
}

// TokenMetricsStore provides access to token_metrics storage.
type TokenMetricsStore interface {
	// Upsert replaces the derived metrics row of a token.
	Upsert(ctx context.Context, m *domain.TokenMetrics) error

	// Get retrieves metrics for a token. Returns ErrNotFound if not exists.
	Get(ctx context.Context, token string) (*domain.TokenMetrics, error)
}

// MetricsSnapshotStore provides access to on-chain metrics snapshots.
type MetricsSnapshotStore interface {
	// Insert adds a snapshot. Returns ErrDuplicateKey if (token_address, block_number, log_index) exists.
	Insert(ctx context.Context, s *domain.MetricsSnapshot) error

	// GetLatest retrieves the most recent snapshot of a token. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, token string) (*domain.MetricsSnapshot, error)

	// GetLatestInRange retrieves the most recent snapshot of a token with
	// from <= timestamp <= to. Returns ErrNotFound if none.
	GetLatestInRange(ctx context.Context, token string, from, to int64) (*domain.MetricsSnapshot, error)
}

// MetricsHistoryStore provides access to aggregator output history.
type MetricsHistoryStore interface {
	// InsertBulk appends one row per metrics value.
	InsertBulk(ctx context.Context, metrics []*domain.TokenMetrics) error

	// GetByTimeRange retrieves history for a token within [start, end] (inclusive, ms), ordered by time ASC.
	GetByTimeRange(ctx context.Context, token string, start, end int64) ([]*domain.TokenMetrics, error)
}

// DefaultCheckpointKey is the checkpoint key of the ingestion pipeline.
const DefaultCheckpointKey = "last_processed_block"

// CheckpointStore persists the last fully processed block.
// Save overwrites unconditionally; callers keep the value non-decreasing.
type CheckpointStore interface {
	// Load returns the stored block. Returns ErrNotFound if nothing has been saved yet.
	Load(ctx context.Context) (uint64, error)

	// Save stores the block, overwriting any previous value.
	Save(ctx context.Context, block uint64) error
}

// Stores groups the entity stores used by the persistence writer.
type Stores struct {
	Tokens     TokenStore
	Trades     TradeStore
	Snapshots  DailySnapshotStore
	Fees       FeeCollectionStore
	Locks      LiquidityLockStore
	Metrics    TokenMetricsStore
	OnChain    MetricsSnapshotStore
	History    MetricsHistoryStore // optional
	Checkpoint CheckpointStore
}
