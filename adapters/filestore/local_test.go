package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "datastory/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutGet(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "abc.csv", []byte("a,b\n1,2\n")))
	data, err := store.Get(ctx, "abc.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")

	require.NoError(t, store.Put(ctx, "abc.csv", []byte("replaced")))
	data, err = store.Get(ctx, "abc.csv")
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))
}

func TestLocalStoreMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope.json")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../secret", "/etc/passwd", "."} {
		err := store.Put(context.Background(), key, []byte("x"))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), key)
	}
}

func TestLocalStoreCancelled(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "a.csv", nil), context.Canceled)
}
