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

func TestFeeCollectionStore_UniquePerLog(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeeCollectionStore(pool)

	fee := &domain.FeeCollection{
		TokenAddress: "0x01",
		PlatformFee:  decimal.RequireFromString("0.01"),
		CreatorFee:   decimal.RequireFromString("0.02"),
		TotalVolume:  decimal.RequireFromString("5"),
		BlockNumber:  300,
		TxHash:       "0xfee",
		LogIndex:     4,
		Timestamp:    1700000000000,
	}
	require.NoError(t, store.Insert(ctx, fee))
	assert.ErrorIs(t, store.Insert(ctx, fee), storage.ErrDuplicateKey)

	fees, err := store.GetByToken(ctx, "0x01")
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.True(t, fees[0].CreatorFee.Equal(decimal.RequireFromString("0.02")))
}

func TestLiquidityLockStore_LockAndRelease(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewLiquidityLockStore(pool)

	lock := &domain.LiquidityLock{
		LockID:       "77",
		TokenAddress: "0x01",
		Locker:       "0x02",
		Amount:       decimal.NewFromInt(1),
		Duration:     86400,
		UnlockTime:   1700086400000,
		CreatedAt:    1700000000000,
		BlockNumber:  400,
		TxHash:       "0xlock",
	}
	require.NoError(t, store.Insert(ctx, lock))
	assert.ErrorIs(t, store.Insert(ctx, lock), storage.ErrDuplicateKey)

	require.NoError(t, store.Release(ctx, "77"))
	require.NoError(t, store.Release(ctx, "77"))

	got, err := store.GetByID(ctx, "77")
	require.NoError(t, err)
	assert.True(t, got.Released)

	assert.ErrorIs(t, store.Release(ctx, "78"), storage.ErrNotFound)
}

func TestCheckpointStore_LoadSave(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCheckpointStore(pool, storage.DefaultCheckpointKey)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Save(ctx, 1000))
	require.NoError(t, store.Save(ctx, 1000))

	block, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), block)

	// The store itself does not enforce monotonicity.
	require.NoError(t, store.Save(ctx, 900))
	block, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), block)

	other := NewCheckpointStore(pool, "other")
	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenMetricsStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenMetricsStore(pool)

	m := &domain.TokenMetrics{
		TokenAddress:  "0x01",
		Price:         decimal.RequireFromString("1.2"),
		Volume24h:     decimal.NewFromInt(14),
		TradeCount24h: 2,
		BuyPressure:   decimal.NewFromInt(50),
		UpdatedAt:     1000,
	}
	require.NoError(t, store.Upsert(ctx, m))

	m.TradeCount24h = 3
	require.NoError(t, store.Upsert(ctx, m))

	got, err := store.Get(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, 3, got.TradeCount24h)
	assert.True(t, got.Volume24h.Equal(decimal.NewFromInt(14)))
}
