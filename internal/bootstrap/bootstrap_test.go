package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/config"
	"launchpad-indexer/internal/storage"
	"launchpad-indexer/internal/storage/sqlite"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func memoryConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory, CheckpointDriver: config.DriverMemory},
	}
}

func TestOpenStores_Memory(t *testing.T) {
	res, err := OpenStores(context.Background(), memoryConfig(), quietLogger())
	require.NoError(t, err)
	defer res.Close()

	require.NotNil(t, res.Stores)
	assert.NotNil(t, res.Stores.History)
	assert.NotNil(t, res.Stores.Checkpoint)
	assert.NoError(t, res.NATSHealth())
}

func TestOpenStores_SQLiteCheckpoint(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.CheckpointDriver = config.DriverSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "checkpoint.db")
	ctx := context.Background()

	res, err := OpenStores(ctx, cfg, quietLogger())
	require.NoError(t, err)
	_, ok := res.Stores.Checkpoint.(*sqlite.CheckpointStore)
	require.True(t, ok)

	_, found, err := VerifyCheckpoint(ctx, res.Stores.Checkpoint)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, res.Stores.Checkpoint.Save(ctx, 77))
	res.Close()

	res, err = OpenStores(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer res.Close()
	block, found, err := VerifyCheckpoint(ctx, res.Stores.Checkpoint)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(77), block)
}

type brokenCheckpoint struct{}

func (brokenCheckpoint) Load(context.Context) (uint64, error) { return 0, errors.New("connection refused") }
func (brokenCheckpoint) Save(context.Context, uint64) error   { return nil }

func TestVerifyCheckpoint_Unavailable(t *testing.T) {
	_, _, err := VerifyCheckpoint(context.Background(), brokenCheckpoint{})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrNotFound))
}

func TestNewRPC(t *testing.T) {
	_, _, err := NewRPC(config.ChainConfig{RPCURL: "http://localhost:8545", Contract: "nope"})
	assert.Error(t, err)

	contract, rpc, err := NewRPC(config.ChainConfig{
		RPCURL:            "http://localhost:8545",
		Contract:          "0x00000000000000000000000000000000000000c0",
		RequestsPerSecond: 10,
		Burst:             5,
	})
	require.NoError(t, err)
	assert.NotNil(t, rpc)
	assert.Equal(t, "0x00000000000000000000000000000000000000c0", contract.Address().Hex())
}

func TestConnectNATS_Disabled(t *testing.T) {
	res := &Resources{}
	require.NoError(t, res.ConnectNATS(memoryConfig(), quietLogger()))
	assert.Nil(t, res.NATS)

	shared, err := res.SharedCache(context.Background(), memoryConfig())
	require.NoError(t, err)
	assert.Nil(t, shared)

	pub, err := res.Publisher(context.Background(), memoryConfig(), quietLogger())
	require.NoError(t, err)
	assert.Nil(t, pub)
}
