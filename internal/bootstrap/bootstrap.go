// Package bootstrap opens the backends selected by configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/bus"
	"launchpad-indexer/internal/cache"
	"launchpad-indexer/internal/chain"
	"launchpad-indexer/internal/config"
	"launchpad-indexer/internal/storage"
	chstore "launchpad-indexer/internal/storage/clickhouse"
	"launchpad-indexer/internal/storage/memory"
	"launchpad-indexer/internal/storage/migrations"
	pgstore "launchpad-indexer/internal/storage/postgres"
	"launchpad-indexer/internal/storage/sqlite"
)

// Resources holds opened backends. Close releases them in reverse order.
type Resources struct {
	Stores *storage.Stores

	NATS      *nats.Conn
	JetStream jetstream.JetStream

	closers []func()
}

func (r *Resources) onClose(f func()) {
	r.closers = append(r.closers, f)
}

// Close releases every backend.
func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// OpenStores opens entity, history and checkpoint storage.
func OpenStores(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*Resources, error) {
	res := &Resources{}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		res.Stores = memory.NewStores()
		log.Warn("using in-memory storage, data is lost on exit")
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		res.onClose(pool.Close)
		if cfg.Storage.RunMigrations {
			applied, err := migrations.RunPostgresMigrations(ctx, pool, log)
			if err != nil {
				res.Close()
				return nil, fmt.Errorf("postgres migrations: %w", err)
			}
			log.WithField("files", applied).Info("postgres migrations applied")
		}
		res.Stores = pgstore.NewStores(pool)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Storage.ClickHouseDSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Storage.RunMigrations {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN, log)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		}
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		res.onClose(func() { conn.Close() })
		res.Stores.History = chstore.NewMetricsHistoryStore(conn)
		if cfg.Storage.SnapshotsInClickHouse {
			res.Stores.OnChain = chstore.NewMetricsSnapshotStore(conn)
		}
	}

	switch cfg.Storage.CheckpointDriver {
	case config.DriverSQLite:
		cp, err := sqlite.Open(cfg.Storage.SQLitePath, storage.DefaultCheckpointKey)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("open sqlite checkpoint: %w", err)
		}
		res.onClose(func() { cp.Close() })
		res.Stores.Checkpoint = cp
	case config.DriverMemory:
		if cfg.Storage.Driver != config.DriverMemory {
			res.Stores.Checkpoint = memory.NewCheckpointStore()
		}
	case config.DriverPostgres:
		if cfg.Storage.Driver != config.DriverPostgres {
			res.Close()
			return nil, fmt.Errorf("postgres checkpoint requires the postgres storage driver")
		}
	}

	return res, nil
}

// VerifyCheckpoint fails when the checkpoint store cannot be read.
// A store with nothing saved yet is healthy.
func VerifyCheckpoint(ctx context.Context, cp storage.CheckpointStore) (uint64, bool, error) {
	block, err := cp.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("checkpoint store unavailable: %w", err)
	}
	return block, true, nil
}

// NewRPC builds the contract binding and the rate-limited JSON-RPC client.
func NewRPC(cfg config.ChainConfig) (*chain.Contract, *chain.HTTPClient, error) {
	contract, err := chain.NewContract(cfg.Contract)
	if err != nil {
		return nil, nil, err
	}
	opts := []chain.ClientOption{chain.WithTimeout(cfg.RequestTimeout)}
	if cfg.RequestsPerSecond > 0 {
		opts = append(opts, chain.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst))
	}
	return contract, chain.NewHTTPClient(cfg.RPCURL, opts...), nil
}

// ConnectNATS connects when the shared cache tier or event publishing is enabled.
func (r *Resources) ConnectNATS(cfg *config.Config, log *logrus.Entry) error {
	if !cfg.Cache.NATSKV && !cfg.NATS.PublishEvents {
		return nil
	}
	nc, js, err := bus.Connect(cfg.NATS.URL, log)
	if err != nil {
		return err
	}
	r.onClose(func() { nc.Drain() })
	r.NATS = nc
	r.JetStream = js
	return nil
}

// SharedCache returns the JetStream KV tier, or nil when disabled.
// The bucket TTL is the longest configured entry TTL.
func (r *Resources) SharedCache(ctx context.Context, cfg *config.Config) (cache.Shared, error) {
	if !cfg.Cache.NATSKV || r.JetStream == nil {
		return nil, nil
	}
	ttl := max(cfg.Cache.TokenTTL, cfg.Cache.MetricsTTL)
	kv, err := cache.NewNATSKV(ctx, r.JetStream, cfg.Cache.Bucket, ttl)
	if err != nil {
		return nil, err
	}
	return kv, nil
}

// Publisher returns the outbound event publisher, or nil when disabled.
func (r *Resources) Publisher(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*bus.Publisher, error) {
	if !cfg.NATS.PublishEvents || r.JetStream == nil {
		return nil, nil
	}
	if err := bus.EnsureStream(ctx, r.JetStream, cfg.NATS.SubjectPrefix, cfg.NATS.StreamMaxAge); err != nil {
		return nil, err
	}
	p := bus.NewPublisher(r.JetStream, cfg.NATS.SubjectPrefix, log)
	p.SetTimeout(cfg.NATS.PublishTimeout)
	return p, nil
}

// NATSHealth reports the connection state for the health endpoint.
func (r *Resources) NATSHealth() error {
	if r.NATS == nil {
		return nil
	}
	if status := r.NATS.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats %s", status)
	}
	return nil
}

// pingTimeout bounds startup checks.
const pingTimeout = 10 * time.Second

// CheckRPC reads the chain head once to fail fast on a bad endpoint.
func CheckRPC(ctx context.Context, rpc chain.RPCClient) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	head, err := rpc.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("check rpc: %w", err)
	}
	return head, nil
}
