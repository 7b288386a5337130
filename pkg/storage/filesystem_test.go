package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Read("doc.json")
	require.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, store.Save("doc.json", []byte(`{"a":1}`)))
	require.NoError(t, store.Save("doc.json", []byte(`{"a":2}`)))

	data, err := store.Read("doc.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, store.Delete("doc.json"))
	require.NoError(t, store.Delete("doc.json"))
	_, err = store.Read("doc.json")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLocalStorageKeepsNamesInsideBaseDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	path := store.Path("../escape/key")
	assert.Equal(t, dir, filepath.Dir(path))
}
