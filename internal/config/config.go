// Package config loads the indexer configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"launchpad-indexer/internal/logger"
)

// Config is the root configuration.
type Config struct {
	Chain       ChainConfig      `yaml:"chain"`
	Storage     StorageConfig    `yaml:"storage"`
	Cache       CacheConfig      `yaml:"cache"`
	NATS        NATSConfig       `yaml:"nats"`
	Hub         HubConfig        `yaml:"hub"`
	Aggregator  AggregatorConfig `yaml:"aggregator"`
	MetricsAddr string           `yaml:"metrics_addr"`
	Logging     logger.Config    `yaml:"logging"`
}

// ChainConfig describes the upstream node and contract.
type ChainConfig struct {
	RPCURL            string        `yaml:"rpc_url"`
	WSURL             string        `yaml:"ws_url"`
	Contract          string        `yaml:"contract"`
	StartBlock        uint64        `yaml:"start_block"`
	BatchSize         uint64        `yaml:"batch_size"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	GapFillInterval   time.Duration `yaml:"gap_fill_interval"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
)

// StorageConfig selects entity and checkpoint storage.
type StorageConfig struct {
	Driver                string `yaml:"driver"`
	PostgresDSN           string `yaml:"postgres_dsn"`
	ClickHouseDSN         string `yaml:"clickhouse_dsn"`
	CheckpointDriver      string `yaml:"checkpoint_driver"`
	SQLitePath            string `yaml:"sqlite_path"`
	RunMigrations         bool   `yaml:"run_migrations"`
	SnapshotsInClickHouse bool   `yaml:"snapshots_in_clickhouse"`
}

// CacheConfig sets cache TTLs and the shared tier.
type CacheConfig struct {
	TokenTTL   time.Duration `yaml:"token_ttl"`
	MetricsTTL time.Duration `yaml:"metrics_ttl"`
	NATSKV     bool          `yaml:"nats_kv"`
	Bucket     string        `yaml:"bucket"`
}

// NATSConfig configures the NATS connection and outbound events.
type NATSConfig struct {
	URL            string        `yaml:"url"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	PublishEvents  bool          `yaml:"publish_events"`
	StreamMaxAge   time.Duration `yaml:"stream_max_age"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// HubConfig configures the WebSocket broadcast hub.
type HubConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	Path           string        `yaml:"path"`
	SendBuffer     int           `yaml:"send_buffer"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// AggregatorConfig configures the metrics aggregator.
type AggregatorConfig struct {
	Interval time.Duration `yaml:"interval"`
	Window   time.Duration `yaml:"window"`
}

// Load reads path, expands ${VAR} references and validates the result.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, expands environment references and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate fills defaults and rejects impossible values.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if !common.IsHexAddress(c.Chain.Contract) {
		return fmt.Errorf("chain.contract '%s' is not a hex address", c.Chain.Contract)
	}
	if c.Chain.MaxBackoff < c.Chain.RetryBackoff {
		return fmt.Errorf("chain.max_backoff must be >= chain.retry_backoff")
	}
	if c.Chain.RequestsPerSecond < 0 {
		return fmt.Errorf("chain.requests_per_second must not be negative")
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver '%s' is not supported", c.Storage.Driver)
	}

	switch c.Storage.CheckpointDriver {
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres checkpoint driver")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite checkpoint driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.checkpoint_driver '%s' is not supported", c.Storage.CheckpointDriver)
	}
	if c.Storage.SnapshotsInClickHouse && c.Storage.ClickHouseDSN == "" {
		return fmt.Errorf("storage.clickhouse_dsn is required when snapshots_in_clickhouse is set")
	}

	if (c.Cache.NATSKV || c.NATS.PublishEvents) && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when cache.nats_kv or nats.publish_events is enabled")
	}
	if !strings.HasPrefix(c.Hub.Path, "/") {
		return fmt.Errorf("hub.path must start with '/'")
	}
	if c.Aggregator.Window < c.Aggregator.Interval {
		return fmt.Errorf("aggregator.window must be >= aggregator.interval")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Chain.BatchSize == 0 {
		c.Chain.BatchSize = 2000
	}
	if c.Chain.RetryBackoff <= 0 {
		c.Chain.RetryBackoff = 2 * time.Second
	}
	if c.Chain.MaxBackoff <= 0 {
		c.Chain.MaxBackoff = time.Minute
	}
	if c.Chain.RequestTimeout <= 0 {
		c.Chain.RequestTimeout = 30 * time.Second
	}
	if c.Chain.Burst <= 0 {
		c.Chain.Burst = 1
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverPostgres
	}
	if c.Storage.CheckpointDriver == "" {
		c.Storage.CheckpointDriver = c.Storage.Driver
	}
	if c.Cache.TokenTTL <= 0 {
		c.Cache.TokenTTL = 60 * time.Second
	}
	if c.Cache.MetricsTTL <= 0 {
		c.Cache.MetricsTTL = 5 * time.Minute
	}
	if c.Cache.Bucket == "" {
		c.Cache.Bucket = "launchpad_cache"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "launchpad.events"
	}
	if c.NATS.PublishTimeout <= 0 {
		c.NATS.PublishTimeout = 2 * time.Second
	}
	if c.NATS.StreamMaxAge <= 0 {
		c.NATS.StreamMaxAge = 72 * time.Hour
	}
	if c.Hub.ListenAddr == "" {
		c.Hub.ListenAddr = ":8080"
	}
	if c.Hub.Path == "" {
		c.Hub.Path = "/ws"
	}
	if c.Hub.SendBuffer <= 0 {
		c.Hub.SendBuffer = 256
	}
	if c.Hub.WriteTimeout <= 0 {
		c.Hub.WriteTimeout = 10 * time.Second
	}
	if c.Hub.PingInterval <= 0 {
		c.Hub.PingInterval = 30 * time.Second
	}
	if c.Aggregator.Interval <= 0 {
		c.Aggregator.Interval = 60 * time.Second
	}
	if c.Aggregator.Window <= 0 {
		c.Aggregator.Window = 24 * time.Hour
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
}
