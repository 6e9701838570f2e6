package memory

import (
	"context"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// TokenMetricsStore is an in-memory implementation of storage.TokenMetricsStore.
type TokenMetricsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenMetrics
}

// NewTokenMetricsStore creates a new in-memory token metrics store.
func NewTokenMetricsStore() *TokenMetricsStore {
	return &TokenMetricsStore{
		data: make(map[string]*domain.TokenMetrics),
	}
}

// Upsert replaces the metrics row of a token.
func (s *TokenMetricsStore) Upsert(_ context.Context, m *domain.TokenMetrics) error {
	if m == nil || m.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *m
	s.data[m.TokenAddress] = &copy
	return nil
}

// Get retrieves metrics for a token.
func (s *TokenMetricsStore) Get(_ context.Context, token string) (*domain.TokenMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *m
	return &copy, nil
}

var _ storage.TokenMetricsStore = (*TokenMetricsStore)(nil)
