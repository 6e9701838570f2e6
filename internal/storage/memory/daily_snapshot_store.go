package memory

import (
	"context"
	"sync"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// DailySnapshotStore is an in-memory implementation of storage.DailySnapshotStore.
type DailySnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailySnapshot // keyed by token|date
}

// NewDailySnapshotStore creates a new in-memory daily snapshot store.
func NewDailySnapshotStore() *DailySnapshotStore {
	return &DailySnapshotStore{
		data: make(map[string]*domain.DailySnapshot),
	}
}

func snapshotKey(token, date string) string {
	return token + "|" + date
}

// Upsert writes a snapshot, keeping the earliest open.
func (s *DailySnapshotStore) Upsert(_ context.Context, snap *domain.DailySnapshot) error {
	if snap == nil || snap.TokenAddress == "" || snap.Date == "" {
		return storage.ErrInvalidInput
	}

	key := snapshotKey(snap.TokenAddress, snap.Date)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := *snap
	if existing, ok := s.data[key]; ok && existing.OpenTime <= snap.OpenTime {
		next.Open = existing.Open
		next.OpenTime = existing.OpenTime
	}
	s.data[key] = &next
	return nil
}

// Get retrieves the snapshot for a token and date.
func (s *DailySnapshotStore) Get(_ context.Context, token, date string) (*domain.DailySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[snapshotKey(token, date)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *snap
	return &copy, nil
}

var _ storage.DailySnapshotStore = (*DailySnapshotStore)(nil)
