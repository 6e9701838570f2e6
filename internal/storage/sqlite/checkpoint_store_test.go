package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/storage"
)

func TestCheckpointStore_LoadSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoint.db")

	store, err := Open(path, storage.DefaultCheckpointKey)
	require.NoError(t, err)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Save(ctx, 42))
	require.NoError(t, store.Save(ctx, 43))

	block, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(43), block)
	require.NoError(t, store.Close())

	// Survives reopen.
	reopened, err := Open(path, storage.DefaultCheckpointKey)
	require.NoError(t, err)
	defer reopened.Close()

	block, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(43), block)
}

func TestCheckpointStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoint.db")

	a, err := Open(path, "a")
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Save(ctx, 7))

	b, err := Open(path, "b")
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
