package filestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	path, err := store.Save("sess-1", "identity_proof.jpg", []byte("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("sess-1", "identity_proof.jpg"), path)
	assert.False(t, store.Remote())

	content, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), content)
}

func TestLocalStoreSaveOverwrites(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	first, err := store.Save("sess-1", "identity_proof.jpg", []byte("old"))
	require.NoError(t, err)
	second, err := store.Save("sess-1", "identity_proof.jpg", []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	content, err := store.Load(second)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), content)
}

func TestLocalStoreLoadMissing(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	_, err := store.Load(filepath.Join("sess-1", "nope.jpg"))
	assert.Error(t, err)
}
