package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

func testTrade(logIndex uint, ts int64, side string, amountIn, price string) *domain.Trade {
	return &domain.Trade{
		TokenAddress: "0x01",
		Trader:       "0x02",
		Side:         side,
		AmountIn:     decimal.RequireFromString(amountIn),
		AmountOut:    decimal.RequireFromString("1"),
		Price:        decimal.RequireFromString(price),
		MarketCap:    decimal.RequireFromString("1000.5"),
		Timestamp:    ts,
		BlockNumber:  100 + uint64(logIndex),
		TxHash:       "0xaa",
		LogIndex:     logIndex,
	}
}

func TestTradeStore_InsertIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := testTrade(0, 1700000000000, domain.TradeSideBuy, "10", "1.0")
	trade.GasUsed = ptr(uint64(21000))
	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	trades, err := store.GetByToken(ctx, "0x01")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].AmountIn.Equal(decimal.NewFromInt(10)))
	assert.True(t, trades[0].MarketCap.Equal(decimal.RequireFromString("1000.5")))
	assert.Equal(t, ptr(uint64(21000)), trades[0].GasUsed)
	assert.NotZero(t, trades[0].ID)
	assert.NotZero(t, trades[0].CreatedAt)
}

func TestTradeStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	require.NoError(t, store.Insert(ctx, testTrade(0, 1000, domain.TradeSideBuy, "10", "1.0")))
	require.NoError(t, store.Insert(ctx, testTrade(1, 2000, domain.TradeSideSell, "4", "1.2")))
	require.NoError(t, store.Insert(ctx, testTrade(2, 3000, domain.TradeSideBuy, "1", "1.3")))

	ranged, err := store.GetByTimeRange(ctx, "0x01", 1500, 3000)
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	latest, err := store.GetLatestAtOrBefore(ctx, "0x01", 2500)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), latest.Timestamp)

	_, err = store.GetLatestAtOrBefore(ctx, "0x01", 500)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	active, err := store.GetActiveTokens(ctx, 2500)
	require.NoError(t, err)
	assert.Equal(t, []string{"0x01"}, active)
}

func TestTradeStore_InvalidData(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := testTrade(0, 1000, "hold", "1", "1")
	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
