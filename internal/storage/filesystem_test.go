package storage

import (
	"context"
	"testing"

	"github.com/storymill/storymill/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMedia(t *testing.T) *FilesystemStorage {
	t.Helper()
	store, err := NewFilesystemStorage(t.TempDir(), common.GetLogger())
	require.NoError(t, err)
	return store
}

func TestFilesystemStorage_SaveReadDelete(t *testing.T) {
	store := newTestMedia(t)
	ctx := context.Background()

	url, err := store.Save(ctx, "p1", "characters", "c1.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/media/p1/characters/c1.png", url)

	exists, err := store.Exists(ctx, "p1", "characters", "c1.png")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Read(ctx, "p1", "characters", "c1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	require.NoError(t, store.Delete(ctx, "p1", "characters", "c1.png"))
	exists, err = store.Exists(ctx, "p1", "characters", "c1.png")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting an absent asset is not an error.
	require.NoError(t, store.Delete(ctx, "p1", "characters", "c1.png"))
}

func TestFilesystemStorage_RejectsTraversalSegments(t *testing.T) {
	store := newTestMedia(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "..", "characters", "c1.png", []byte("x"))
	assert.Error(t, err)

	_, err = store.Save(ctx, "p1", "characters", "../escape.png", []byte("x"))
	assert.Error(t, err)

	_, err = store.Save(ctx, "p1", "", "c1.png", []byte("x"))
	assert.Error(t, err)
}

func TestFilesystemStorage_SaveOverwrites(t *testing.T) {
	store := newTestMedia(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "p1", "edits", "c1.png", []byte("v1"))
	require.NoError(t, err)
	_, err = store.Save(ctx, "p1", "edits", "c1.png", []byte("v2"))
	require.NoError(t, err)

	data, err := store.Read(ctx, "p1", "edits", "c1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}
