package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func sampleResult() *schema.DetectionResult {
	return &schema.DetectionResult{
		Changes: schema.ChangeSet{
			20: schema.NewSeriesSet(0, 1, 2),
			40: schema.NewSeriesSet(3),
		},
		Status:     schema.StatusConverged,
		Iterations: 2,
		Disabled:   1,
		Raised:     3,
		NumSeries:  6,
		NumFrames:  60,
		Params:     schema.DetectionParams{Lam: 16, Alpha: 0.7, Beta: 1, LamMin: 8, MaxIters: 100},
		Elapsed:    250 * time.Millisecond,
	}
}

func sampleSweep() *schema.SweepResult {
	return &schema.SweepResult{
		Entries: []schema.SweepEntry{
			{Lam: 8, Result: sampleResult()},
			{Lam: 64, Result: &schema.DetectionResult{Changes: schema.ChangeSet{}, Status: schema.StatusEmpty, Iterations: 1}},
		},
		Selected: 0,
	}
}

func testConfig() *contract.Config {
	return &contract.Config{Output: schema.TextOut, Precision: 2, Width: 120, Workers: 4, CacheBackend: schema.SQLiteBackend}
}

func TestGetMaxTableLabelWidth(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{width: 20, want: 15},
		{width: 80, want: 50},
		{width: 500, want: 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getMaxTableLabelWidth(&contract.Config{Width: tt.width}))
	}
}

func TestWriteDetectionTable(t *testing.T) {
	result := sampleResult()
	labels := []string{"a", "b", "c", "d", "e", "f"}

	var buf bytes.Buffer
	require.NoError(t, writeDetectionTable(&buf, result, result.Changes.Label(labels), testConfig(), time.Second))

	out := buf.String()
	assert.Contains(t, out, "a, b, c")
	assert.Contains(t, out, "Status: converged after 2 iterations (2 change times, 4 changes)")
	assert.Contains(t, out, "Series: 6 x 60 frames, 1 disabled, 3 penalties raised to lam-min")
	assert.Contains(t, out, "with 4 workers. Cache backend: sqlite")
	assert.Less(t, strings.Index(out, "a, b, c"), strings.Index(out, "Status:"))
}

func TestWriteDetectionTableTruncatesLabels(t *testing.T) {
	result := &schema.DetectionResult{Changes: schema.ChangeSet{5: schema.NewSeriesSet(0, 1)}, Status: schema.StatusMaxIters}
	labels := []string{strings.Repeat("x", 40), strings.Repeat("y", 40)}
	cfg := testConfig()
	cfg.Width = 40

	var buf bytes.Buffer
	require.NoError(t, writeDetectionTable(&buf, result, result.Changes.Label(labels), cfg, 0))
	assert.NotContains(t, buf.String(), strings.Repeat("y", 40))
	assert.Contains(t, buf.String(), "...")
}

func TestWriteCSVDetection(t *testing.T) {
	result := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, writeCSVDetection(&buf, result.Changes.Label(nil)))
	assert.Equal(t, "time,series,label\n20,0,0\n20,1,1\n20,2,2\n40,3,3\n", buf.String())
}

func TestWriteJSONDetection(t *testing.T) {
	result := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, writeJSONDetection(&buf, result, result.Changes.Label([]string{"a", "b", "c", "d"})))

	var decoded struct {
		Status     string `json:"status"`
		Iterations int    `json:"iterations"`
		ElapsedMs  int64  `json:"elapsed_ms"`
		Changes    []struct {
			Time   int      `json:"time"`
			Series []int    `json:"series"`
			Labels []string `json:"labels"`
		} `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "converged", decoded.Status)
	assert.Equal(t, 2, decoded.Iterations)
	assert.Equal(t, int64(250), decoded.ElapsedMs)
	require.Len(t, decoded.Changes, 2)
	assert.Equal(t, 20, decoded.Changes[0].Time)
	assert.Equal(t, []string{"a", "b", "c"}, decoded.Changes[0].Labels)
	assert.Equal(t, []int{3}, decoded.Changes[1].Series)
}

func TestWriteDetectionResultToFiles(t *testing.T) {
	dir := t.TempDir()
	for _, mode := range []schema.OutputMode{schema.TextOut, schema.CSVOut, schema.JSONOut, schema.ParquetOut} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := testConfig()
			cfg.Output = mode
			cfg.OutputFile = filepath.Join(dir, "detect."+string(mode))

			require.NoError(t, NewOutWriter().WriteDetection(sampleResult(), nil, cfg, time.Second))

			info, err := os.Stat(cfg.OutputFile)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}
}

func TestWriteSweep(t *testing.T) {
	t.Run("table shows selection", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSweepTable(&buf, sampleSweep(), nil, testConfig(), createFormatter(1), time.Second))

		out := buf.String()
		assert.Contains(t, out, "64.0")
		assert.Contains(t, out, "empty")
		assert.Contains(t, out, "Selected lam 8.0:")
		assert.Contains(t, out, "Sweep of 2 values completed")
	})

	t.Run("table without selection", func(t *testing.T) {
		sweep := sampleSweep()
		sweep.Selected = -1

		var buf bytes.Buffer
		require.NoError(t, writeSweepTable(&buf, sweep, nil, testConfig(), createFormatter(1), time.Second))
		assert.NotContains(t, buf.String(), "Selected lam")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeCSVSweep(&buf, sampleSweep(), createFormatter(2)))
		assert.Equal(t, "lam,status,iterations,change_times,total_changes,selected\n"+
			"8.00,converged,2,2,4,true\n"+
			"64.00,empty,1,0,0,false\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeJSONSweep(&buf, sampleSweep(), nil))

		var decoded []struct {
			Lam      float64 `json:"lam"`
			Selected bool    `json:"selected"`
			Result   struct {
				Status string `json:"status"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 2)
		assert.True(t, decoded[0].Selected)
		assert.Equal(t, "empty", decoded[1].Result.Status)
	})

	t.Run("parquet file", func(t *testing.T) {
		cfg := testConfig()
		cfg.Output = schema.ParquetOut
		cfg.OutputFile = filepath.Join(t.TempDir(), "sweep.parquet")
		require.NoError(t, NewOutWriter().WriteSweep(sampleSweep(), nil, cfg, time.Second))
		_, err := os.Stat(cfg.OutputFile)
		assert.NoError(t, err)
	})
}
