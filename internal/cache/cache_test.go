package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
	"launchpad-indexer/internal/storage/memory"
)

type mapShared struct {
	mu     sync.Mutex
	values map[string][]byte
	gets   int
	err    error
}

func newMapShared() *mapShared { return &mapShared{values: make(map[string][]byte)} }

func (m *mapShared) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.values[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *mapShared) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mapShared) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *mapShared) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// countingTokens wraps a token store and counts reads.
type countingTokens struct {
	storage.TokenStore
	reads int
}

func (c *countingTokens) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	c.reads++
	return c.TokenStore.GetByAddress(ctx, address)
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

type fixture struct {
	cache   *Cache
	local   *Local
	shared  *mapShared
	tokens  *countingTokens
	metrics *memory.TokenMetricsStore
	clock   *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newClock()
	local := NewLocal()
	local.now = clock.Now
	shared := newMapShared()
	tokens := &countingTokens{TokenStore: memory.NewTokenStore()}
	metrics := memory.NewTokenMetricsStore()

	c := New(Options{
		Local:   local,
		Shared:  shared,
		Tokens:  tokens,
		Metrics: metrics,
		Logger:  quietLogger(),
	})
	c.now = clock.Now

	return &fixture{cache: c, local: local, shared: shared, tokens: tokens, metrics: metrics, clock: clock}
}

func TestCache_TokenReadThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tokens.Insert(ctx, &domain.Token{Address: "0x01", Symbol: "FOO"}))

	tok, err := f.cache.Token(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, "FOO", tok.Symbol)
	assert.Equal(t, 1, f.tokens.reads)
	assert.True(t, f.shared.has(TokenKey("0x01")))

	tok, err = f.cache.Token(ctx, "0X01")
	require.NoError(t, err)
	assert.Equal(t, "FOO", tok.Symbol)
	assert.Equal(t, 1, f.tokens.reads, "second lookup served from cache")
}

func TestCache_TokenTTLExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tokens.Insert(ctx, &domain.Token{Address: "0x01"}))

	_, err := f.cache.Token(ctx, "0x01")
	require.NoError(t, err)

	f.clock.Advance(DefaultTokenTTL + time.Second)
	_, err = f.cache.Token(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, 2, f.tokens.reads, "both tiers expired")
}

func TestCache_SharedHitPromotesToLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.cache.Set(ctx, "k", []byte(`"v"`), time.Minute))
	f.local.Clear()

	v, ok := f.cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, `"v"`, string(v))

	_, remaining, ok := f.local.Get("k")
	require.True(t, ok)
	assert.Equal(t, time.Minute, remaining)

	gets := f.shared.gets
	_, ok = f.cache.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, gets, f.shared.gets, "local hit skips shared tier")
}

func TestCache_InvalidateToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tokens.Insert(ctx, &domain.Token{Address: "0x01"}))

	_, err := f.cache.Token(ctx, "0x01")
	require.NoError(t, err)
	require.NoError(t, f.cache.PutMetrics(ctx, &domain.TokenMetrics{TokenAddress: "0x01"}))

	f.cache.InvalidateToken(ctx, "0x01")

	assert.False(t, f.shared.has(TokenKey("0x01")))
	assert.False(t, f.shared.has(MetricsKey("0x01")))
	_, _, ok := f.local.Get(TokenKey("0x01"))
	assert.False(t, ok)

	_, err = f.cache.Token(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, 2, f.tokens.reads)
}

func TestCache_MetricsAndPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := &domain.TokenMetrics{TokenAddress: "0x01", Price: decimal.RequireFromString("1.2"), UpdatedAt: 7}
	require.NoError(t, f.metrics.Upsert(ctx, m))

	_, ok := f.cache.CachedPrice(ctx, "0x01")
	assert.False(t, ok, "cache-only lookup never reaches storage")

	p, err := f.cache.Price(ctx, "0x01")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("1.2")))
	assert.Equal(t, int64(7), p.UpdatedAt)

	cp, ok := f.cache.CachedPrice(ctx, "0x01")
	require.True(t, ok)
	assert.True(t, cp.Price.Equal(p.Price))
}

func TestCache_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.cache.Token(context.Background(), "0xdead")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.cache.Metrics(context.Background(), "0xdead")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCache_SharedFailureFallsBackToStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tokens.Insert(ctx, &domain.Token{Address: "0x01"}))
	f.shared.err = errors.New("nats: timeout")

	tok, err := f.cache.Token(ctx, "0x01")
	require.NoError(t, err)
	assert.Equal(t, "0x01", tok.Address)

	_, _, ok := f.local.Get(TokenKey("0x01"))
	assert.True(t, ok, "local tier populated despite shared failure")
}

func TestCache_WithoutShared(t *testing.T) {
	c := New(Options{Metrics: memory.NewTokenMetricsStore(), Logger: quietLogger()})
	ctx := context.Background()
	require.NoError(t, c.PutMetrics(ctx, &domain.TokenMetrics{TokenAddress: "0x02"}))
	m, ok := c.CachedMetrics(ctx, "0x02")
	require.True(t, ok)
	assert.Equal(t, "0x02", m.TokenAddress)
	require.NoError(t, c.Delete(ctx, MetricsKey("0x02")))
	_, ok = c.CachedMetrics(ctx, "0x02")
	assert.False(t, ok)
}
