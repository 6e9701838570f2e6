package clickhouse

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

func TestMetricsSnapshotStore_InsertAndLatest(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetricsSnapshotStore(conn)
	ctx := context.Background()

	first := &domain.MetricsSnapshot{
		TokenAddress:  "0x01",
		Price:         decimal.RequireFromString("1.5"),
		Volume24h:     decimal.RequireFromString("25"),
		HolderCount:   10,
		TradeCount24h: 3,
		Liquidity:     decimal.RequireFromString("7"),
		MarketCap:     decimal.RequireFromString("1000"),
		Timestamp:     1700000000000,
		BlockNumber:   100,
		TxHash:        "0xaa",
		LogIndex:      1,
	}
	require.NoError(t, store.Insert(ctx, first))

	second := *first
	second.BlockNumber = 110
	second.HolderCount = 12
	require.NoError(t, store.Insert(ctx, &second))

	err := store.Insert(ctx, first)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	latest, err := store.GetLatest(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, uint64(110), latest.BlockNumber)
	assert.Equal(t, uint32(12), latest.HolderCount)
	assert.True(t, latest.Price.Equal(first.Price))

	_, err = store.GetLatest(ctx, "0x02")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	later := *first
	later.BlockNumber = 120
	later.HolderCount = 30
	later.Timestamp = first.Timestamp + 86400000
	require.NoError(t, store.Insert(ctx, &later))

	sameDay, err := store.GetLatestInRange(ctx, "0x01", first.Timestamp, first.Timestamp+1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(110), sameDay.BlockNumber)
	assert.Equal(t, uint32(12), sameDay.HolderCount)

	_, err = store.GetLatestInRange(ctx, "0x01", 0, first.Timestamp-1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMetricsHistoryStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMetricsHistoryStore(conn)
	ctx := context.Background()

	rows := []*domain.TokenMetrics{
		{TokenAddress: "0x01", Price: decimal.NewFromInt(1), Volume24h: decimal.NewFromInt(14), TradeCount24h: 2, BuyPressure: decimal.NewFromInt(50), UpdatedAt: 1000},
		{TokenAddress: "0x01", Price: decimal.NewFromInt(2), Volume24h: decimal.NewFromInt(20), TradeCount24h: 3, BuyPressure: decimal.NewFromInt(60), UpdatedAt: 2000},
	}
	require.NoError(t, store.InsertBulk(ctx, rows))

	got, err := store.GetByTimeRange(ctx, "0x01", 0, 1500)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].TradeCount24h)
	assert.True(t, got[0].Volume24h.Equal(decimal.NewFromInt(14)))
}
