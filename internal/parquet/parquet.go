// Package parquet reads series matrices from and writes detection results to
// Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/huangsam/simchange/schema"
	"github.com/parquet-go/parquet-go"
)

// SeriesRow is one input series. Files hold one row per series.
type SeriesRow struct {
	// Index is the series position in the matrix
	Index int32 `parquet:"index,snappy"`

	// Label names the series (e.g. "CA12-CA40"), may be empty
	Label string `parquet:"label,snappy"`

	// Values holds one value per frame
	Values []float64 `parquet:"values,snappy"`
}

// ChangeRow is one (time, series) pair of a detection result.
type ChangeRow struct {
	// Time is the frame index of the change
	Time int32 `parquet:"time,snappy"`

	// Series is the index of the series that changed
	Series int32 `parquet:"series,snappy"`

	// Label is the series label, or its index when unlabeled
	Label string `parquet:"label,snappy"`
}

// SweepRow summarizes one lambda of a sweep.
type SweepRow struct {
	Lam          float64 `parquet:"lam,snappy"`
	Status       string  `parquet:"status,snappy"`
	Iterations   int32   `parquet:"iterations,snappy"`
	ChangeTimes  int32   `parquet:"change_times,snappy"`
	TotalChanges int32   `parquet:"total_changes,snappy"`
	Selected     bool    `parquet:"selected"`
}

// Run represents a single detection run with metadata.
// This struct maps to the simchange_runs database table.
type Run struct {
	RunID         int64      `parquet:"run_id,snappy"`
	RunUUID       string     `parquet:"run_uuid,snappy"`
	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int32     `parquet:"run_duration_ms,optional,snappy"`
	NumSeries     int32      `parquet:"num_series,snappy"`
	NumFrames     int32      `parquet:"num_frames,snappy"`
	Lam           float64    `parquet:"lam,snappy"`
	Alpha         float64    `parquet:"alpha,snappy"`
	Beta          float64    `parquet:"beta,snappy"`
	LamMin        float64    `parquet:"lam_min,snappy"`
	Iterations    *int32     `parquet:"iterations,optional,snappy"`
	Status        *string    `parquet:"status,optional,snappy"`
	ChangeTimes   *int32     `parquet:"change_times,optional,snappy"`
	TotalChanges  *int32     `parquet:"total_changes,optional,snappy"`
	ConfigParams  *string    `parquet:"config_params,optional,snappy"`
}

// RunChange maps to the simchange_changes database table.
type RunChange struct {
	RunID       int64  `parquet:"run_id,snappy"`
	ChangeTime  int32  `parquet:"change_time,snappy"`
	SeriesIndex int32  `parquet:"series_index,snappy"`
	SeriesLabel string `parquet:"series_label,snappy"`
}

// writeRows writes rows to a new Parquet file at outputPath.
func writeRows[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteSeriesParquet writes a series matrix, one row per series.
func WriteSeriesParquet(data []SeriesRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteChangesParquet writes the change rows of a result.
func WriteChangesParquet(data []ChangeRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteSweepParquet writes one summary row per sweep entry.
func WriteSweepParquet(data []SweepRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteRunsParquet writes exported run records.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteRunChangesParquet writes exported change records.
func WriteRunChangesParquet(data []RunChange, outputPath string) error {
	return writeRows(data, outputPath)
}

// ChangeRows flattens a labeled result into Parquet rows.
func ChangeRows(changes []schema.LabeledChange) []ChangeRow {
	var rows []ChangeRow
	for _, c := range changes {
		for k, i := range c.Series {
			rows = append(rows, ChangeRow{Time: int32(c.Time), Series: int32(i), Label: c.Labels[k]})
		}
	}
	return rows
}

// SweepRows summarizes a sweep into Parquet rows.
func SweepRows(sweep *schema.SweepResult) []SweepRow {
	rows := make([]SweepRow, len(sweep.Entries))
	for i, e := range sweep.Entries {
		rows[i] = SweepRow{
			Lam:          e.Lam,
			Status:       string(e.Result.Status),
			Iterations:   int32(e.Result.Iterations),
			ChangeTimes:  int32(len(e.Result.Changes)),
			TotalChanges: int32(e.Result.Changes.NumChanges()),
			Selected:     i == sweep.Selected,
		}
	}
	return rows
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, r := range records {
		result[i] = Run{
			RunID:         r.RunID,
			RunUUID:       r.RunUUID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.RunDurationMs,
			NumSeries:     r.NumSeries,
			NumFrames:     r.NumFrames,
			Lam:           r.Lam,
			Alpha:         r.Alpha,
			Beta:          r.Beta,
			LamMin:        r.LamMin,
			Iterations:    r.Iterations,
			Status:        r.Status,
			ChangeTimes:   r.ChangeTimes,
			TotalChanges:  r.TotalChanges,
			ConfigParams:  r.ConfigParams,
		}
	}
	return result
}

// ConvertChangeRecords converts schema.ChangeRecord to RunChange for Parquet export.
func ConvertChangeRecords(records []schema.ChangeRecord) []RunChange {
	result := make([]RunChange, len(records))
	for i, r := range records {
		result[i] = RunChange{
			RunID:       r.RunID,
			ChangeTime:  r.ChangeTime,
			SeriesIndex: r.SeriesIndex,
			SeriesLabel: r.SeriesLabel,
		}
	}
	return result
}

// SeriesFile serves series from a Parquet file one row at a time.
// Rows must be stored in index order.
type SeriesFile struct {
	mu        sync.Mutex
	file      *os.File
	reader    *parquet.GenericReader[SeriesRow]
	numSeries int
	numFrames int
	labels    []string
}

// OpenSeries opens a series file and reads its shape and labels.
func OpenSeries(path string) (*SeriesFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	sf := &SeriesFile{file: file, reader: parquet.NewGenericReader[SeriesRow](file)}
	sf.numSeries = int(sf.reader.NumRows())
	sf.labels = make([]string, sf.numSeries)
	for i := range sf.numSeries {
		row, err := sf.readRow(i)
		if err != nil {
			_ = sf.Close()
			return nil, err
		}
		if int(row.Index) != i {
			_ = sf.Close()
			return nil, fmt.Errorf("row %d holds series %d, rows must be in index order", i, row.Index)
		}
		if i == 0 {
			sf.numFrames = len(row.Values)
		} else if len(row.Values) != sf.numFrames {
			_ = sf.Close()
			return nil, fmt.Errorf("series %d has %d frames, want %d", i, len(row.Values), sf.numFrames)
		}
		sf.labels[i] = row.Label
	}
	return sf, nil
}

func (sf *SeriesFile) readRow(i int) (SeriesRow, error) {
	if err := sf.reader.SeekToRow(int64(i)); err != nil {
		return SeriesRow{}, fmt.Errorf("failed to seek to series %d: %w", i, err)
	}
	rows := make([]SeriesRow, 1)
	n, err := sf.reader.Read(rows)
	if n == 1 {
		return rows[0], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return SeriesRow{}, fmt.Errorf("failed to read series %d: %w", i, err)
}

// Shape returns the number of series and frames.
func (sf *SeriesFile) Shape() (int, int) {
	return sf.numSeries, sf.numFrames
}

// Series reads series i from disk.
func (sf *SeriesFile) Series(i int) ([]float64, error) {
	if i < 0 || i >= sf.numSeries {
		return nil, fmt.Errorf("series %d out of range [0, %d)", i, sf.numSeries)
	}
	sf.mu.Lock()
	defer sf.mu.Unlock()
	row, err := sf.readRow(i)
	if err != nil {
		return nil, err
	}
	return row.Values, nil
}

// Labels returns the series labels; unlabeled series have empty entries.
func (sf *SeriesFile) Labels() []string {
	return sf.labels
}

// Close releases the reader and the file.
func (sf *SeriesFile) Close() error {
	return errors.Join(sf.reader.Close(), sf.file.Close())
}
