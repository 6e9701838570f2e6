package memory

import (
	"context"
	"errors"
	"testing"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

func TestMetricsSnapshotStore_GetLatestInRange(t *testing.T) {
	store := NewMetricsSnapshotStore()
	ctx := context.Background()

	for _, s := range []domain.MetricsSnapshot{
		{TokenAddress: "0x01", BlockNumber: 10, HolderCount: 5, Timestamp: 1000},
		{TokenAddress: "0x01", BlockNumber: 20, HolderCount: 42, Timestamp: 2000},
		{TokenAddress: "0x01", BlockNumber: 30, HolderCount: 77, Timestamp: 5000},
		{TokenAddress: "0x02", BlockNumber: 25, HolderCount: 9, Timestamp: 2500},
	} {
		s := s
		if err := store.Insert(ctx, &s); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := store.GetLatestInRange(ctx, "0x01", 0, 4999)
	if err != nil {
		t.Fatalf("GetLatestInRange: %v", err)
	}
	if got.BlockNumber != 20 || got.HolderCount != 42 {
		t.Errorf("expected block 20 with 42 holders, got block %d with %d", got.BlockNumber, got.HolderCount)
	}

	latest, err := store.GetLatest(ctx, "0x01")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest.BlockNumber != 30 {
		t.Errorf("expected latest block 30, got %d", latest.BlockNumber)
	}

	if _, err := store.GetLatestInRange(ctx, "0x01", 3000, 4000); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
