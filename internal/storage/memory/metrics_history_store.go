package memory

import (
	"context"
	"sort"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// MetricsHistoryStore is an in-memory implementation of storage.MetricsHistoryStore.
type MetricsHistoryStore struct {
	mu   sync.RWMutex
	data []*domain.TokenMetrics
}

// NewMetricsHistoryStore creates a new in-memory metrics history store.
func NewMetricsHistoryStore() *MetricsHistoryStore {
	return &MetricsHistoryStore{}
}

// InsertBulk appends history rows.
func (s *MetricsHistoryStore) InsertBulk(_ context.Context, metrics []*domain.TokenMetrics) error {
	for _, m := range metrics {
		if m == nil || m.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range metrics {
		copy := *m
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByTimeRange retrieves history for a token within [start, end] (inclusive).
func (s *MetricsHistoryStore) GetByTimeRange(_ context.Context, token string, start, end int64) ([]*domain.TokenMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenMetrics
	for _, m := range s.data {
		if m.TokenAddress == token && m.UpdatedAt >= start && m.UpdatedAt <= end {
			copy := *m
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt < result[j].UpdatedAt
	})
	return result, nil
}

var _ storage.MetricsHistoryStore = (*MetricsHistoryStore)(nil)
