// Package sqlite provides an embedded single-file checkpoint store
// for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"launchpad-indexer/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// CheckpointStore implements storage.CheckpointStore on a SQLite file.
type CheckpointStore struct {
	db  *sql.DB
	key string
}

// Open opens (creating if needed) the database at path and prepares the schema.
func Open(path, key string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA synchronous = FULL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure sqlite (%s): %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}

	return &CheckpointStore{db: db, key: key}, nil
}

// Load implements storage.CheckpointStore.
func (s *CheckpointStore) Load(ctx context.Context) (uint64, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM checkpoints WHERE key = ?", s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}

	block, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %q: %w", value, err)
	}
	return block, nil
}

// Save implements storage.CheckpointStore.
func (s *CheckpointStore) Save(ctx context.Context, block uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, strconv.FormatUint(block, 10), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

var _ storage.CheckpointStore = (*CheckpointStore)(nil)
