//go:build database

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// exerciseBackend runs the full store lifecycle against one backend through the CLI.
func exerciseBackend(t *testing.T, backend, connStr string) {
	t.Setenv("SIMCHANGE_CACHE_BACKEND", backend)
	t.Setenv("SIMCHANGE_CACHE_DB_CONNECT", connStr)
	t.Setenv("SIMCHANGE_RUNS_BACKEND", backend)
	t.Setenv("SIMCHANGE_RUNS_DB_CONNECT", connStr)

	dir := t.TempDir()
	data := writeDataset(t, dir)

	_, err := runCommand(t, dir, "cache", "clear")
	require.NoError(t, err)
	_, err = runCommand(t, dir, "runs", "clear")
	require.NoError(t, err)

	out, err := runCommand(t, dir, "runs", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "to version 2")

	_, err = runCommand(t, dir, "detect", data, "--lam", "16")
	require.NoError(t, err)
	_, err = runCommand(t, dir, "sweep", data, "--lams", "8,16", "--target-times", "2")
	require.NoError(t, err)

	out, err = runCommand(t, dir, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, backend)

	out, err = runCommand(t, dir, "runs", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "simchange_changes")

	export := filepath.Join(dir, "history")
	_, err = runCommand(t, dir, "runs", "export", "--output-file", export)
	require.NoError(t, err)
	assert.FileExists(t, export+".runs.parquet")

	out, err = runCommand(t, dir, "runs", "migrate", "--target-version", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "from version 2 to version 1")
}

// TestSimchangeWithMySQL tests the simchange CLI with a MySQL backend.
func TestSimchangeWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "simchange",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/simchange?parseTime=true&multiStatements=true", host, port.Port())
	exerciseBackend(t, "mysql", connStr)
}

// TestSimchangeWithPostgres tests the simchange CLI with a PostgreSQL backend.
func TestSimchangeWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	exerciseBackend(t, "postgresql", connStr)
}
