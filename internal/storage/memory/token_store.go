package memory

import (
	"context"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by address
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Insert adds a new token. Returns ErrDuplicateKey if exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.Address]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.Address] = &copy
	return nil
}

// Graduate sets graduation fields once.
func (s *TokenStore) Graduate(_ context.Context, g domain.Graduation) (bool, error) {
	if g.TokenAddress == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[g.TokenAddress]
	if !ok {
		return false, storage.ErrNotFound
	}
	if t.Graduated {
		return false, nil
	}

	pool := g.PoolAddress
	block := g.BlockNumber
	at := g.Timestamp
	t.Graduated = true
	t.PoolAddress = &pool
	t.GraduatedBlock = &block
	t.GraduatedAt = &at
	return true, nil
}

// GetByAddress retrieves a token by address.
func (s *TokenStore) GetByAddress(_ context.Context, address string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *t
	return &copy, nil
}

// Count returns the number of stored tokens.
func (s *TokenStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ storage.TokenStore = (*TokenStore)(nil)
