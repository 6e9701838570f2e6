package memory

import (
	"context"
	"fmt"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// MetricsSnapshotStore is an in-memory implementation of storage.MetricsSnapshotStore.
type MetricsSnapshotStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.MetricsSnapshot // keyed by token|block|log_index
	latest map[string]*domain.MetricsSnapshot // keyed by token
}

// NewMetricsSnapshotStore creates a new in-memory metrics snapshot store.
func NewMetricsSnapshotStore() *MetricsSnapshotStore {
	return &MetricsSnapshotStore{
		data:   make(map[string]*domain.MetricsSnapshot),
		latest: make(map[string]*domain.MetricsSnapshot),
	}
}

// Insert adds a snapshot. Returns ErrDuplicateKey if exists.
func (s *MetricsSnapshotStore) Insert(_ context.Context, snap *domain.MetricsSnapshot) error {
	if snap == nil || snap.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	key := fmt.Sprintf("%s|%d|%d", snap.TokenAddress, snap.BlockNumber, snap.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *snap
	s.data[key] = &copy

	cur, ok := s.latest[snap.TokenAddress]
	if !ok || cur.BlockNumber < snap.BlockNumber ||
		(cur.BlockNumber == snap.BlockNumber && cur.LogIndex < snap.LogIndex) {
		s.latest[snap.TokenAddress] = &copy
	}
	return nil
}

// GetLatest retrieves the most recent snapshot of a token.
func (s *MetricsSnapshotStore) GetLatest(_ context.Context, token string) (*domain.MetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.latest[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *snap
	return &copy, nil
}

// GetLatestInRange retrieves the most recent snapshot of a token within [from, to].
func (s *MetricsSnapshotStore) GetLatestInRange(_ context.Context, token string, from, to int64) (*domain.MetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.MetricsSnapshot
	for _, snap := range s.data {
		if snap.TokenAddress != token || snap.Timestamp < from || snap.Timestamp > to {
			continue
		}
		if best == nil || best.BlockNumber < snap.BlockNumber ||
			(best.BlockNumber == snap.BlockNumber && best.LogIndex < snap.LogIndex) {
			best = snap
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}
	copy := *best
	return &copy, nil
}

var _ storage.MetricsSnapshotStore = (*MetricsSnapshotStore)(nil)
