package blob

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutListDelete(t *testing.T) {
	store := NewMemoryStore("assets", "http://cdn.local")
	ctx := context.Background()

	asset, err := store.Put(ctx, "products/uno.jpg", bytes.NewReader([]byte("jpeg")), 4, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "uno.jpg", asset.Name)
	assert.Equal(t, int64(4), asset.SizeBytes)
	assert.Equal(t, "http://cdn.local/assets/products/uno.jpg", asset.Locator)

	store.Seed("other/mega.jpg", []byte("x"))

	listed, err := store.List(ctx, "products")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, asset, listed[0])

	removed, err := store.Delete(ctx, asset.Locator)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, asset.Locator)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryStore_DeleteRejectsOtherBucket(t *testing.T) {
	ctx := context.Background()
	assets := NewMemoryStore("assets", "http://cdn.local")
	legacy := NewMemoryStore("legacy", "http://cdn.local")
	legacy.Seed("products/uno.jpg", []byte("x"))

	listed, err := legacy.List(ctx, "products")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	removed, err := assets.Delete(ctx, listed[0].Locator)
	assert.False(t, removed)
	assert.True(t, ErrForeignLocator.Has(err))

	still, err := legacy.List(ctx, "products")
	require.NoError(t, err)
	assert.Len(t, still, 1)
}

func TestMemoryStore_SizeMismatch(t *testing.T) {
	store := NewMemoryStore("assets", "http://cdn.local")

	_, err := store.Put(context.Background(), "products/a.jpg", bytes.NewReader([]byte("abc")), 10, "image/jpeg")
	assert.Error(t, err)
}

func TestLocators(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		loc := publicURL("http://cdn.local/", "assets", "products/uno.jpg")
		assert.Equal(t, "http://cdn.local/assets/products/uno.jpg", loc)
		key, err := objectPath("http://cdn.local", "assets", loc)
		require.NoError(t, err)
		assert.Equal(t, "products/uno.jpg", key)
	})

	t.Run("bare path", func(t *testing.T) {
		key, err := objectPath("http://cdn.local", "assets", "/products/uno.jpg")
		require.NoError(t, err)
		assert.Equal(t, "products/uno.jpg", key)
	})

	t.Run("other bucket", func(t *testing.T) {
		_, err := objectPath("http://cdn.local", "assets", "http://cdn.local/legacy/products/uno.jpg")
		assert.True(t, ErrForeignLocator.Has(err))
	})

	t.Run("list prefix", func(t *testing.T) {
		assert.Equal(t, "products/", listPrefix("/products/"))
		assert.Equal(t, "", listPrefix(""))
	})

	t.Run("upload path", func(t *testing.T) {
		assert.Equal(t, "products/1-uno.jpg", UploadPath("/products/", "1-uno.jpg"))
	})
}
