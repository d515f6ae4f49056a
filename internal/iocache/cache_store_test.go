package iocache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/huangsam/simchange/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		wantErr bool
	}{
		{"simple", "simchange_result_cache", false},
		{"leading underscore", "_cache", false},
		{"digits", "cache2", false},
		{"empty", "", true},
		{"leading digit", "2cache", true},
		{"space", "result cache", true},
		{"injection", "cache; DROP TABLE runs", true},
		{"quote", `cache"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.table)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.SQLiteBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.PostgreSQLBackend))
	assert.Equal(t, "`runs`", quoteTableName("runs", schema.MySQLBackend))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholder(schema.SQLiteBackend, 3))
	assert.Equal(t, "?", placeholder(schema.MySQLBackend, 1))
	assert.Equal(t, "$3", placeholder(schema.PostgreSQLBackend, 3))
	assert.Equal(t, "?, ?, ?", placeholderList(schema.MySQLBackend, 3))
	assert.Equal(t, "$1, $2", placeholderList(schema.PostgreSQLBackend, 2))
}

func TestGetCreateTableQuery(t *testing.T) {
	mysqlQuery := getCreateTableQuery("results", schema.MySQLBackend)
	assert.Contains(t, mysqlQuery, "`results`")
	assert.Contains(t, mysqlQuery, "LONGBLOB")

	pgQuery := getCreateTableQuery("results", schema.PostgreSQLBackend)
	assert.Contains(t, pgQuery, `"results"`)
	assert.Contains(t, pgQuery, "BYTEA")

	sqliteQuery := getCreateTableQuery("results", schema.SQLiteBackend)
	assert.Contains(t, sqliteQuery, "BLOB")
	assert.Contains(t, sqliteQuery, "IF NOT EXISTS")
}

func TestGetUpsertQuery(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
	}{
		{schema.SQLiteBackend, "INSERT OR REPLACE"},
		{schema.MySQLBackend, "ON DUPLICATE KEY UPDATE"},
		{schema.PostgreSQLBackend, "ON CONFLICT (cache_key)"},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			cs := &CacheStoreImpl{tableName: "results", backend: tt.backend}
			assert.Contains(t, cs.getUpsertQuery(), tt.want)
		})
	}
}

func TestSQLiteCacheOperations(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		store, err := NewCacheStore("results", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		require.NoError(t, store.Set("key", []byte("payload"), 1, 1234567890))

		value, version, ts, err := store.Get("key")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(value))
		assert.Equal(t, 1, version)
		assert.Equal(t, int64(1234567890), ts)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		store, err := NewCacheStore("results", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		require.NoError(t, store.Set("key", []byte("old"), 1, 1000))
		require.NoError(t, store.Set("key", []byte("new"), 2, 2000))

		value, version, ts, err := store.Get("key")
		require.NoError(t, err)
		assert.Equal(t, "new", string(value))
		assert.Equal(t, 2, version)
		assert.Equal(t, int64(2000), ts)
	})

	t.Run("missing key", func(t *testing.T) {
		store, err := NewCacheStore("results", schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		_, _, _, err = store.Get("missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestCacheStoreGetStatus(t *testing.T) {
	store, err := NewCacheStore("results", schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "sqlite", status.Backend)
	assert.Zero(t, status.TotalEntries)

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix()
	require.NoError(t, store.Set("a", []byte("x"), 1, older))
	require.NoError(t, store.Set("b", []byte("y"), 1, newer))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, older, status.OldestEntryTime.Unix())
	assert.Equal(t, newer, status.LastEntryTime.Unix())
	assert.Positive(t, status.TableSizeBytes)
}

func TestNoneCacheStore(t *testing.T) {
	store, err := NewCacheStore("results", schema.NoneBackend, "")
	require.NoError(t, err)

	assert.NoError(t, store.Set("key", []byte("value"), 1, 1))
	_, _, _, err = store.Get("key")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "none", status.Backend)
	assert.NoError(t, store.Close())
}

func TestNewCacheStoreErrors(t *testing.T) {
	_, err := NewCacheStore("bad name", schema.SQLiteBackend, ":memory:")
	assert.Error(t, err)

	_, err = NewCacheStore("results", schema.DatabaseBackend("oracle"), "")
	assert.ErrorContains(t, err, "unsupported backend")
}
