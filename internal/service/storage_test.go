package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoKey(t *testing.T) {
	userID := uuid.New()
	key := PhotoKey(userID, "Field Photo.JPG")

	assert.True(t, strings.HasPrefix(key, "soil-photos/"+userID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, PhotoKey(userID, "Field Photo.JPG"))
}

func TestLocalPhotoStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalPhotoStore(dir, "/uploads/")
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	ctx := context.Background()
	url, err := store.Put(ctx, "soil-photos/u/a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/soil-photos/u/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "soil-photos", "u", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	require.NoError(t, store.Delete(ctx, "soil-photos/u/a.png"))
	_, err = os.Stat(filepath.Join(dir, "soil-photos", "u", "a.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, "soil-photos/u/missing.png"))
}

func TestLocalPhotoStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.png", []byte("x"), "image/png")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, store.Delete(context.Background(), "../../etc/passwd"), ErrInvalidInput)
}
