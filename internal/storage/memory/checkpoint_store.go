package memory

import (
	"context"
	"sync"

	"launchpad-indexer/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
type CheckpointStore struct {
	mu    sync.RWMutex
	block uint64
	set   bool
	saves int
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{}
}

// Load returns the stored block.
func (s *CheckpointStore) Load(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return 0, storage.ErrNotFound
	}
	return s.block, nil
}

// Save overwrites the stored block.
func (s *CheckpointStore) Save(_ context.Context, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.block = block
	s.set = true
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *CheckpointStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

var _ storage.CheckpointStore = (*CheckpointStore)(nil)
