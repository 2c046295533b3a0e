package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/quill/internal/adapters/settings"
)

func TestFileStore_PutAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	store, err := settings.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Put("index", []byte(`[{"hash":"ab","owners":["a.md"]}]`)))

	blob, ok, err := store.Get("index")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"hash":"ab","owners":["a.md"]}]`, string(blob))
}

func TestFileStore_MissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	store, err := settings.NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := store.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	store1, err := settings.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store1.Put("index", []byte(`["x"]`)))

	store2, err := settings.NewFileStore(path)
	require.NoError(t, err)

	blob, ok, err := store2.Get("index")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["x"]`, string(blob))
}

func TestFileStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	store, err := settings.NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Put("index", []byte(`1`)))
	require.NoError(t, store.Delete("index"))
	require.NoError(t, store.Delete("index"), "deleting an absent key must not fail")

	_, ok, err := store.Get("index")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_PutLeavesOnlyStoreFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	store, err := settings.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put("index", []byte(`1`)))
	require.NoError(t, store.Put("index", []byte(`2`)))

	// The temp-file dance must not leave intermediates behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := settings.NewFileStore(path)
	require.Error(t, err)
}
