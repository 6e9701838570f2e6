package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"launchpad-indexer/internal/domain"
)

func TestDailySnapshotStore_OpenNeverReplacedByLater(t *testing.T) {
	store := NewDailySnapshotStore()
	ctx := context.Background()

	first := &domain.DailySnapshot{
		TokenAddress: "0x01",
		Date:         "2024-01-01",
		Open:         decimal.NewFromInt(2),
		Close:        decimal.NewFromInt(2),
		OpenTime:     2000,
	}
	store.Upsert(ctx, first)

	// Later open must not replace.
	later := *first
	later.Open = decimal.NewFromInt(3)
	later.OpenTime = 3000
	later.Close = decimal.NewFromInt(3)
	store.Upsert(ctx, &later)

	got, _ := store.Get(ctx, "0x01", "2024-01-01")
	if !got.Open.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Open changed to %s", got.Open)
	}
	if !got.Close.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Close not refreshed: %s", got.Close)
	}

	// Earlier open replaces.
	earlier := later
	earlier.Open = decimal.NewFromInt(1)
	earlier.OpenTime = 1000
	store.Upsert(ctx, &earlier)

	got, _ = store.Get(ctx, "0x01", "2024-01-01")
	if !got.Open.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected open 1, got %s", got.Open)
	}
}
