package memory

import (
	"context"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// LiquidityLockStore is an in-memory implementation of storage.LiquidityLockStore.
type LiquidityLockStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LiquidityLock // keyed by lock id
}

// NewLiquidityLockStore creates a new in-memory liquidity lock store.
func NewLiquidityLockStore() *LiquidityLockStore {
	return &LiquidityLockStore{
		data: make(map[string]*domain.LiquidityLock),
	}
}

// Insert adds a lock. Returns ErrDuplicateKey if exists.
func (s *LiquidityLockStore) Insert(_ context.Context, l *domain.LiquidityLock) error {
	if l == nil || l.LockID == "" || l.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.LockID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *l
	s.data[l.LockID] = &copy
	return nil
}

// Release marks a lock as released.
func (s *LiquidityLockStore) Release(_ context.Context, lockID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.data[lockID]
	if !ok {
		return storage.ErrNotFound
	}
	l.Released = true
	return nil
}

// GetByID retrieves a lock.
func (s *LiquidityLockStore) GetByID(_ context.Context, lockID string) (*domain.LiquidityLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.data[lockID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *l
	return &copy, nil
}

var _ storage.LiquidityLockStore = (*LiquidityLockStore)(nil)
