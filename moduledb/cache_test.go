package moduledb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoveryCache_StoreAndLookup(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "editors/vim.module", "message = vim\n")

	cachePath := filepath.Join(t.TempDir(), "discovery.db")
	cache, err := OpenDiscoveryCache(cachePath)
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Lookup(root)
	require.False(t, ok, "empty cache should miss")

	names := map[ModuleName]string{
		"editors.vim": filepath.Join(root, "editors", "vim.module"),
	}
	require.NoError(t, cache.Store(root, names))

	got, ok := cache.Lookup(root)
	require.True(t, ok)
	require.Equal(t, names, got)
}

func TestDiscoveryCache_InvalidatesOnRootChange(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "editors/vim.module", "message = vim\n")

	cachePath := filepath.Join(t.TempDir(), "discovery.db")
	cache, err := OpenDiscoveryCache(cachePath)
	require.NoError(t, err)
	defer cache.Close()

	names := map[ModuleName]string{
		"editors.vim": filepath.Join(root, "editors", "vim.module"),
	}
	require.NoError(t, cache.Store(root, names))

	// Adding a new top-level entry changes root's own listing CRC.
	require.NoError(t, os.Mkdir(filepath.Join(root, "lang"), 0o755))

	_, ok := cache.Lookup(root)
	require.False(t, ok, "cache should invalidate once root's listing changes")
}

func TestDatabase_PopulateUsesDiskCache(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "editors/vim.module", "message = vim\n")

	cachePath := filepath.Join(t.TempDir(), "discovery.db")
	cache, err := OpenDiscoveryCache(cachePath)
	require.NoError(t, err)
	defer cache.Close()

	db := NewDatabase([]string{root}, nil).WithDiskCache(cache)
	require.NoError(t, db.Populate(nil))

	_, ok := cache.Lookup(root)
	require.True(t, ok, "Populate should have primed the disk cache")

	db2 := NewDatabase([]string{root}, nil).WithDiskCache(cache)
	require.NoError(t, db2.Populate(nil))
	path, ok := db2.FindModule("editors.vim")
	require.True(t, ok)
	require.Equal(t, filepath.Join(root, "editors", "vim.module"), path)
}
