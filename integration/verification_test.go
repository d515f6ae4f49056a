//go:build basic

// Package integration contains end-to-end tests for the simchange binary.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detectionOutput struct {
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
	NumSeries  int    `json:"num_series"`
	NumFrames  int    `json:"num_frames"`
	Changes    []struct {
		Time   int      `json:"time"`
		Series []int    `json:"series"`
		Labels []string `json:"labels"`
	} `json:"changes"`
}

func (d detectionOutput) seriesAt(time int) []int {
	for _, c := range d.Changes {
		if c.Time == time {
			return c.Series
		}
	}
	return nil
}

func detectJSON(t *testing.T, dir string, args ...string) detectionOutput {
	t.Helper()
	args = append([]string{"detect"}, args...)
	args = append(args, "--output", "json", "--cache-backend", "none", "--color", "no")
	stdout, err := runCommand(t, dir, args...)
	require.NoError(t, err)

	var out detectionOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)
	return out
}

// TestDetectFindsSharedShifts checks that the shared shifts of the generated
// dataset come out at the right times on the right series.
func TestDetectFindsSharedShifts(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir)

	for _, groups := range []string{"", "0-2;3-5"} {
		t.Run("groups="+groups, func(t *testing.T) {
			args := []string{data, "--lam", "16"}
			if groups != "" {
				args = append(args, "--groups", groups)
			}
			out := detectJSON(t, dir, args...)
			assert.Equal(t, 6, out.NumSeries)
			assert.Equal(t, 60, out.NumFrames)
			assert.NotEqual(t, "max_iters", out.Status)
			assert.Subset(t, out.seriesAt(20), []int{0, 1, 2})
			assert.Subset(t, out.seriesAt(40), []int{3, 4, 5})
		})
	}
}

// TestParquetMatchesCSV converts the dataset and checks both inputs give the same changes.
func TestParquetMatchesCSV(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir)
	converted := filepath.Join(dir, "dataset.parquet")

	stdout, err := runCommand(t, dir, "convert", data, "--output-file", converted)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote 6 series")

	fromCSV := detectJSON(t, dir, data, "--lam", "16")
	fromParquet := detectJSON(t, dir, converted, "--lam", "16")
	assert.Equal(t, fromCSV.Changes, fromParquet.Changes)
	assert.Equal(t, fromCSV.Status, fromParquet.Status)
}

// TestWorkersDoNotChangeResults runs the same detection with different worker counts.
func TestWorkersDoNotChangeResults(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir)

	one := detectJSON(t, dir, data, "--lam", "16", "--workers", "1")
	for _, workers := range []string{"2", "3", "6"} {
		many := detectJSON(t, dir, data, "--lam", "16", "--workers", workers)
		assert.Equal(t, one.Changes, many.Changes, "workers=%s", workers)
		assert.Equal(t, one.Iterations, many.Iterations, "workers=%s", workers)
	}
}

// TestSweepAndRunTracking sweeps with SQLite caching and run tracking, then exports the runs.
func TestSweepAndRunTracking(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir)
	cacheDB := filepath.Join(dir, "cache.db")
	runsDB := filepath.Join(dir, "runs.db")
	stores := []string{
		"--cache-backend", "sqlite", "--cache-db-connect", cacheDB,
		"--runs-backend", "sqlite", "--runs-db-connect", runsDB,
	}

	args := append([]string{"sweep", data, "--lams", "4,16,400", "--target-times", "2", "--output", "csv", "--color", "no"}, stores...)
	stdout, err := runCommand(t, dir, args...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "lam,status,iterations,change_times,total_changes,selected", lines[0])
	selected := 0
	for _, line := range lines[1:] {
		if strings.HasSuffix(line, ",true") {
			selected++
		}
	}
	assert.Equal(t, 1, selected, stdout)

	// A second sweep is served from the cache and gives the same output
	again, err := runCommand(t, dir, args...)
	require.NoError(t, err)
	assert.Equal(t, stdout, again)

	status, err := runCommand(t, dir, "cache", "status", "--cache-backend", "sqlite", "--cache-db-connect", cacheDB)
	require.NoError(t, err)
	assert.Contains(t, status, "3")

	status, err = runCommand(t, dir, "runs", "status", "--runs-backend", "sqlite", "--runs-db-connect", runsDB)
	require.NoError(t, err)
	assert.Contains(t, status, "6")

	export := filepath.Join(dir, "history")
	_, err = runCommand(t, dir, "runs", "export", "--runs-backend", "sqlite", "--runs-db-connect", runsDB, "--output-file", export)
	require.NoError(t, err)
	assert.FileExists(t, export+".runs.parquet")
	assert.FileExists(t, export+".changes.parquet")

	_, err = runCommand(t, dir, "runs", "clear", "--runs-backend", "sqlite", "--runs-db-connect", runsDB)
	require.NoError(t, err)
	assert.NoFileExists(t, runsDB)
}
