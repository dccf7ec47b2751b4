package coord_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kachraalert/kachra-auth/coord"
)

func testBlobStore(t *testing.T, store coord.BlobStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "reports/r1/photo.jpg", []byte("jpeg-bytes"), "image/jpeg"))

	data, err := store.Get(ctx, "reports/r1/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	_, err = store.Get(ctx, "reports/r1/missing.jpg")
	require.Error(t, err)
	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, errors.CategoryNotFound, richErr.Category)

	require.NoError(t, store.Delete(ctx, "reports/r1/photo.jpg"))
	_, err = store.Get(ctx, "reports/r1/photo.jpg")
	assert.Error(t, err)

	// Deleting a missing blob is not an error.
	require.NoError(t, store.Delete(ctx, "reports/r1/photo.jpg"))
}

func TestMemoryBlobStore(t *testing.T) {
	testBlobStore(t, coord.NewMemoryBlobStore())
}

func TestMemoryBlobStoreCopiesData(t *testing.T) {
	ctx := context.Background()
	store := coord.NewMemoryBlobStore()

	src := []byte("original")
	require.NoError(t, store.Put(ctx, "k", src, "text/plain"))
	src[0] = 'X'

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)
}

func TestFSBlobStore(t *testing.T) {
	store, err := coord.NewFSBlobStore(t.TempDir())
	require.NoError(t, err)
	testBlobStore(t, store)
}

func TestFSBlobStoreSanitizesKeys(t *testing.T) {
	ctx := context.Background()
	store, err := coord.NewFSBlobStore(t.TempDir())
	require.NoError(t, err)

	// Traversal attempts stay inside the root.
	require.NoError(t, store.Put(ctx, "../../etc/escape", []byte("x"), ""))
	data, err := store.Get(ctx, "/etc/escape")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestFSBlobStoreRequiresRoot(t *testing.T) {
	_, err := coord.NewFSBlobStore("")
	assert.Error(t, err)
}
