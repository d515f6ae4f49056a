package iocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/simchange/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetGlobals restores the global manager so each test initializes from scratch.
func resetGlobals(t *testing.T) {
	t.Helper()
	Manager = &CacheStoreManager{}
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	t.Cleanup(func() {
		CloseCaching()
		Manager = &CacheStoreManager{}
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
	})
}

func TestInitCaching(t *testing.T) {
	t.Run("both stores", func(t *testing.T) {
		resetGlobals(t)
		dir := t.TempDir()

		err := InitCaching(schema.SQLiteBackend, filepath.Join(dir, "cache.db"), schema.SQLiteBackend, filepath.Join(dir, "runs.db"))
		require.NoError(t, err)
		assert.NotNil(t, Manager.GetResultStore())
		assert.NotNil(t, Manager.GetRunStore())
	})

	t.Run("disabled stores stay nil", func(t *testing.T) {
		resetGlobals(t)

		require.NoError(t, InitCaching("", "", "", ""))
		assert.Nil(t, Manager.GetResultStore())
		assert.Nil(t, Manager.GetRunStore())
	})

	t.Run("idempotent", func(t *testing.T) {
		resetGlobals(t)
		dbPath := filepath.Join(t.TempDir(), "cache.db")

		assert.NoError(t, InitCaching(schema.SQLiteBackend, dbPath, "", ""))
		assert.NoError(t, InitCaching(schema.SQLiteBackend, dbPath, "", ""))
		CloseCaching()
		CloseCaching()
	})

	t.Run("connection failure", func(t *testing.T) {
		resetGlobals(t)

		err := InitCaching(schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"), schema.MySQLBackend, "invalid://connection")
		assert.Error(t, err)
		assert.Nil(t, Manager.GetResultStore())
	})
}

func TestManagerConcurrency(t *testing.T) {
	resetGlobals(t)
	require.NoError(t, InitCaching(schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"), "", ""))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			store := Manager.GetResultStore()
			assert.NoError(t, store.Set("shared", []byte("value"), 1, int64(1000+id)))
		}(i)
	}
	wg.Wait()

	_, _, ts, err := Manager.GetResultStore().Get("shared")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, int64(1000))
}

func TestClearCacheAndRuns(t *testing.T) {
	dir := t.TempDir()

	t.Run("sqlite removes file", func(t *testing.T) {
		dbPath := filepath.Join(dir, "cache.db")
		require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o600))
		require.NoError(t, ClearCache(schema.SQLiteBackend, dbPath, ""))
		_, err := os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("sqlite missing file is fine", func(t *testing.T) {
		assert.NoError(t, ClearRuns(schema.SQLiteBackend, filepath.Join(dir, "nope.db"), ""))
	})

	t.Run("sqlite needs a path", func(t *testing.T) {
		assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("none backend", func(t *testing.T) {
		assert.NoError(t, ClearRuns(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported backend", func(t *testing.T) {
		assert.ErrorContains(t, ClearCache(schema.DatabaseBackend("oracle"), "", ""), "unsupported cache backend")
	})
}
