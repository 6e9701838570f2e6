package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.Trade{
		TokenAddress: "0x01",
		Trader:       "0x02",
		Side:         domain.TradeSideBuy,
		AmountIn:     decimal.NewFromInt(10),
		Price:        decimal.NewFromInt(1),
		Timestamp:    1000,
		BlockNumber:  100,
		TxHash:       "0xaa",
		LogIndex:     0,
	}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByToken(ctx, "0x01")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(result))
	}
	if !result[0].AmountIn.Equal(decimal.NewFromInt(10)) {
		t.Errorf("AmountIn mismatch: got %s", result[0].AmountIn)
	}
	if result[0].ID == 0 {
		t.Error("expected assigned ID")
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.Trade{TokenAddress: "0x01", TxHash: "0xaa", LogIndex: 1, Timestamp: 1000}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, trade); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same tx, different log index is a different trade.
	other := *trade
	other.LogIndex = 2
	if err := store.Insert(ctx, &other); err != nil {
		t.Errorf("Insert with different log index failed: %v", err)
	}
	if store.Count() != 2 {
		t.Errorf("Expected 2 trades, got %d", store.Count())
	}
}

func TestTradeStore_LatestAtOrBeforeAndActive(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	for i, ts := range []int64{1000, 2000, 3000} {
		store.Insert(ctx, &domain.Trade{
			TokenAddress: "0x01",
			TxHash:       "0xaa",
			LogIndex:     uint(i),
			Timestamp:    ts,
			Price:        decimal.NewFromInt(int64(i + 1)),
		})
	}
	store.Insert(ctx, &domain.Trade{TokenAddress: "0x02", TxHash: "0xbb", Timestamp: 500})

	latest, err := store.GetLatestAtOrBefore(ctx, "0x01", 2500)
	if err != nil {
		t.Fatalf("GetLatestAtOrBefore failed: %v", err)
	}
	if latest.Timestamp != 2000 {
		t.Errorf("Expected timestamp 2000, got %d", latest.Timestamp)
	}

	if _, err := store.GetLatestAtOrBefore(ctx, "0x01", 999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	active, _ := store.GetActiveTokens(ctx, 1000)
	if len(active) != 1 || active[0] != "0x01" {
		t.Errorf("Expected [0x01], got %v", active)
	}

	ranged, _ := store.GetByTimeRange(ctx, "0x01", 1000, 2000)
	if len(ranged) != 2 {
		t.Errorf("Expected 2 trades in range, got %d", len(ranged))
	}
}
