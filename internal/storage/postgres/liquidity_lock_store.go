package postgres

import (
	"context"
	"fmt"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// LiquidityLockStore implements storage.LiquidityLockStore using PostgreSQL.
type LiquidityLockStore struct {
	pool *Pool
}

// NewLiquidityLockStore creates a new LiquidityLockStore.
func NewLiquidityLockStore(pool *Pool) *LiquidityLockStore {
	return &LiquidityLockStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LiquidityLockStore = (*LiquidityLockStore)(nil)

// Insert adds a lock. Returns ErrDuplicateKey if lock_id exists.
func (s *LiquidityLockStore) Insert(ctx context.Context, l *domain.LiquidityLock) error {
	if l == nil || l.LockID == "" || l.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO liquidity_locks (
			lock_id, token_address, locker, amount, duration, unlock_time,
			created_at, block_number, tx_hash, released
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		l.LockID,
		l.TokenAddress,
		l.Locker,
		l.Amount,
		l.Duration,
		l.UnlockTime,
		l.CreatedAt,
		l.BlockNumber,
		l.TxHash,
		l.Released,
	)
	if err != nil {
		return mapWriteError("insert liquidity lock", err)
	}
	return nil
}

// Release marks a lock as released. Never un-releases.
func (s *LiquidityLockStore) Release(ctx context.Context, lockID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE liquidity_locks SET released = TRUE WHERE lock_id = $1
	`, lockID)
	if err != nil {
		return mapWriteError("release liquidity lock", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a lock. Returns ErrNotFound if not exists.
func (s *LiquidityLockStore) GetByID(ctx context.Context, lockID string) (*domain.LiquidityLock, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT lock_id, token_address, locker, amount, duration, unlock_time,
		       created_at, block_number, tx_hash, released
		FROM liquidity_locks
		WHERE lock_id = $1
	`, lockID)

	var l domain.LiquidityLock
	err := row.Scan(
		&l.LockID,
		&l.TokenAddress,
		&l.Locker,
		&l.Amount,
		&l.Duration,
		&l.UnlockTime,
		&l.CreatedAt,
		&l.BlockNumber,
		&l.TxHash,
		&l.Released,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get liquidity lock: %w", err)
	}
	return &l, nil
}
