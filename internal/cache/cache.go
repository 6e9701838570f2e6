// Package cache is the read-through cache in front of token and metrics
// storage. Lookups go local tier, then the shared tier, then storage, and
// populate both tiers on the way back.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/observability"
	"launchpad-indexer/internal/storage"
)

// Default TTLs.
const (
	DefaultTokenTTL   = 60 * time.Second
	DefaultMetricsTTL = 5 * time.Minute
)

const (
	tierLocal  = "local"
	tierShared = "shared"
)

// Price is the cached price view of a token.
type Price struct {
	Price     decimal.Decimal `json:"price"`
	UpdatedAt int64           `json:"updatedAt"` // ms
}

// Options configures a Cache.
type Options struct {
	Local      *Local
	Shared     Shared // optional
	Tokens     storage.TokenStore
	Metrics    storage.TokenMetricsStore
	TokenTTL   time.Duration
	MetricsTTL time.Duration
	Logger     *logrus.Entry
}

// Cache combines the local and shared tiers with storage loaders.
type Cache struct {
	local      *Local
	shared     Shared
	tokens     storage.TokenStore
	metrics    storage.TokenMetricsStore
	tokenTTL   time.Duration
	metricsTTL time.Duration
	now        func() time.Time
	logger     *logrus.Entry
}

// sharedEntry is the value layout in the shared tier.
type sharedEntry struct {
	ExpiresAt int64           `json:"exp"` // ms
	Value     json.RawMessage `json:"v"`
}

// New creates a cache.
func New(opts Options) *Cache {
	if opts.Local == nil {
		opts.Local = NewLocal()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.MetricsTTL <= 0 {
		opts.MetricsTTL = DefaultMetricsTTL
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Cache{
		local:      opts.Local,
		shared:     opts.Shared,
		tokens:     opts.Tokens,
		metrics:    opts.Metrics,
		tokenTTL:   opts.TokenTTL,
		metricsTTL: opts.MetricsTTL,
		now:        time.Now,
		logger:     opts.Logger.WithField("component", "cache"),
	}
}

// TokenKey is the cache key of a token's detail.
func TokenKey(address string) string { return "token." + strings.ToLower(address) }

// MetricsKey is the cache key of a token's metrics.
func MetricsKey(token string) string { return "metrics." + strings.ToLower(token) }

// Get looks key up in the local tier, then the shared tier.
// A shared hit is copied into the local tier for its remaining TTL.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, _, ok := c.local.Get(key); ok {
		observability.RecordCacheLookup(tierLocal, true)
		return v, true
	}
	observability.RecordCacheLookup(tierLocal, false)

	if c.shared == nil {
		return nil, false
	}
	raw, err := c.shared.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.WithError(err).WithField("key", key).Warn("shared cache get failed")
		}
		observability.RecordCacheLookup(tierShared, false)
		return nil, false
	}
	var e sharedEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("corrupt shared cache entry")
		observability.RecordCacheLookup(tierShared, false)
		return nil, false
	}
	remaining := time.UnixMilli(e.ExpiresAt).Sub(c.now())
	if remaining <= 0 {
		observability.RecordCacheLookup(tierShared, false)
		return nil, false
	}
	observability.RecordCacheLookup(tierShared, true)
	c.local.Set(key, e.Value, remaining)
	return e.Value, true
}

// Set stores a JSON value in both tiers. The local tier is always
// written; a shared tier failure is returned.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.local.Set(key, value, ttl)
	if c.shared == nil {
		return nil
	}
	raw, err := json.Marshal(sharedEntry{
		ExpiresAt: c.now().Add(ttl).UnixMilli(),
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}
	return c.shared.Put(ctx, key, raw)
}

// Delete evicts key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.local.Delete(key)
	if c.shared == nil {
		return nil
	}
	return c.shared.Delete(ctx, key)
}

// Token returns token detail, loading it from storage on a miss.
func (c *Cache) Token(ctx context.Context, address string) (*domain.Token, error) {
	key := TokenKey(address)
	if raw, ok := c.Get(ctx, key); ok {
		var t domain.Token
		if err := json.Unmarshal(raw, &t); err == nil {
			return &t, nil
		}
	}
	if c.tokens == nil {
		return nil, storage.ErrNotFound
	}
	t, err := c.tokens.GetByAddress(ctx, strings.ToLower(address))
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, t, c.tokenTTL)
	return t, nil
}

// Metrics returns token metrics, loading them from storage on a miss.
func (c *Cache) Metrics(ctx context.Context, token string) (*domain.TokenMetrics, error) {
	if m, ok := c.CachedMetrics(ctx, token); ok {
		return m, nil
	}
	if c.metrics == nil {
		return nil, storage.ErrNotFound
	}
	m, err := c.metrics.Get(ctx, strings.ToLower(token))
	if err != nil {
		return nil, err
	}
	c.store(ctx, MetricsKey(token), m, c.metricsTTL)
	return m, nil
}

// Price returns the current price of a token through Metrics.
func (c *Cache) Price(ctx context.Context, token string) (*Price, error) {
	m, err := c.Metrics(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Price{Price: m.Price, UpdatedAt: m.UpdatedAt}, nil
}

// CachedMetrics returns metrics from the cache tiers only.
func (c *Cache) CachedMetrics(ctx context.Context, token string) (*domain.TokenMetrics, bool) {
	raw, ok := c.Get(ctx, MetricsKey(token))
	if !ok {
		return nil, false
	}
	var m domain.TokenMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return &m, true
}

// CachedPrice returns the price from the cache tiers only.
func (c *Cache) CachedPrice(ctx context.Context, token string) (*Price, bool) {
	m, ok := c.CachedMetrics(ctx, token)
	if !ok {
		return nil, false
	}
	return &Price{Price: m.Price, UpdatedAt: m.UpdatedAt}, true
}

// PutMetrics refreshes the metrics entry of a token.
func (c *Cache) PutMetrics(ctx context.Context, m *domain.TokenMetrics) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metrics %s: %w", m.TokenAddress, err)
	}
	return c.Set(ctx, MetricsKey(m.TokenAddress), raw, c.metricsTTL)
}

// InvalidateToken evicts every entry derived from a token.
func (c *Cache) InvalidateToken(ctx context.Context, token string) {
	for _, key := range []string{TokenKey(token), MetricsKey(token)} {
		if err := c.Delete(ctx, key); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("cache eviction failed")
		}
	}
}

// Close clears the local tier.
func (c *Cache) Close() {
	c.local.Clear()
}

func (c *Cache) store(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cache marshal failed")
		return
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("shared cache put failed")
	}
}
