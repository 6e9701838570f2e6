package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// FeeCollectionStore is an in-memory implementation of storage.FeeCollectionStore.
type FeeCollectionStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.FeeCollection // keyed by tx_hash|log_index
	nextID int64
}

// NewFeeCollectionStore creates a new in-memory fee collection store.
func NewFeeCollectionStore() *FeeCollectionStore {
	return &FeeCollectionStore{
		data: make(map[string]*domain.FeeCollection),
	}
}

// Insert adds a fee collection. Returns ErrDuplicateKey if exists.
func (s *FeeCollectionStore) Insert(_ context.Context, f *domain.FeeCollection) error {
	if f == nil || f.TokenAddress == "" || f.TxHash == "" {
		return storage.ErrInvalidInput
	}

	key := fmt.Sprintf("%s|%d", f.TxHash, f.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	copy := *f
	copy.ID = s.nextID
	s.data[key] = &copy
	return nil
}

// GetByToken retrieves all fee collections for a token, ordered by block ASC.
func (s *FeeCollectionStore) GetByToken(_ context.Context, token string) ([]*domain.FeeCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeeCollection
	for _, f := range s.data {
		if f.TokenAddress == token {
			copy := *f
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].LogIndex < result[j].LogIndex
	})

	return result, nil
}

var _ storage.FeeCollectionStore = (*FeeCollectionStore)(nil)
