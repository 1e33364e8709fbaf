package chatstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvolkov/accmarket-bot/internal/model"
)

func TestFileStoreAppendFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.log")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "first\nwith newline"))
	require.NoError(t, store.Append(ctx, "second"))
	require.NoError(t, store.Append(ctx, "third"))

	bodies, err := store.FetchRecent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second"}, bodies)

	all, err := store.FetchRecent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first\nwith newline"}, all)
}

func TestFileStoreFetchEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.log")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	bodies, err := store.FetchRecent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, bodies)
}

func TestFileStoreCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.log")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.Append(ctx, "body")
	require.Error(t, err)

	var perr *model.PersistenceError
	assert.ErrorAs(t, err, &perr)
}
