package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ErrMiss is returned by a Shared tier when the key is absent.
var ErrMiss = errors.New("cache miss")

// Shared is the cross-process cache tier.
type Shared interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// DefaultBucket is the JetStream KV bucket name.
const DefaultBucket = "launchpad_cache"

// NATSKV is a Shared tier backed by a JetStream key-value bucket.
// The bucket TTL bounds how long any entry survives; per-entry expiry
// is carried in the stored envelope.
type NATSKV struct {
	kv jetstream.KeyValue
}

// NewNATSKV creates or updates bucket with the given TTL.
func NewNATSKV(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*NATSKV, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "launchpad indexer token and metrics cache",
		TTL:         ttl,
		History:     1,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv bucket %s: %w", bucket, err)
	}
	return &NATSKV{kv: kv}, nil
}

// NewNATSKVFromBucket wraps an existing bucket handle.
func NewNATSKVFromBucket(kv jetstream.KeyValue) *NATSKV {
	return &NATSKV{kv: kv}
}

func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), nil
}

func (n *NATSKV) Put(ctx context.Context, key string, value []byte) error {
	if _, err := n.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

func (n *NATSKV) Delete(ctx context.Context, key string) error {
	if err := n.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}
