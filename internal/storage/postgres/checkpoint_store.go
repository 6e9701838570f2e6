package postgres

import (
	"context"
	"fmt"
	"strconv"

	"launchpad-indexer/internal/storage"
)

// CheckpointStore is a PostgreSQL implementation of storage.CheckpointStore.
// One row per key in the checkpoints table; the value is the block number as text.
type CheckpointStore struct {
	pool *Pool
	key  string
}

// NewCheckpointStore creates a checkpoint store for the given key.
func NewCheckpointStore(pool *Pool, key string) *CheckpointStore {
	return &CheckpointStore{pool: pool, key: key}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// Load returns the stored block. Returns ErrNotFound if nothing has been saved yet.
func (s *CheckpointStore) Load(ctx context.Context) (uint64, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM checkpoints WHERE key = $1`, s.key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}

	block, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %q: %w", value, err)
	}
	return block, nil
}

// Save overwrites the stored block.
// Uses upsert to handle initial insert and subsequent updates.
func (s *CheckpointStore) Save(ctx context.Context, block uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO checkpoints (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`, s.key, strconv.FormatUint(block, 10))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
