package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/parquet"
	"github.com/huangsam/simchange/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteDetectionResult outputs a detection result, dispatching based on the output format configured.
func WriteDetectionResult(result *schema.DetectionResult, labels []string, cfg *contract.Config, duration time.Duration) error {
	changes := result.Changes.Label(labels)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONDetection(w, result, changes)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVDetection(w, changes)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WriteChangesParquet(parquet.ChangeRows(changes), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		logWrote("Wrote Parquet", cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDetectionTable(w, result, changes, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// jsonDetection replaces the raw change map with labeled, time-ordered changes.
type jsonDetection struct {
	*schema.DetectionResult
	Changes   []schema.LabeledChange `json:"changes"`
	ElapsedMs int64                  `json:"elapsed_ms"`
}

func writeJSONDetection(w io.Writer, result *schema.DetectionResult, changes []schema.LabeledChange) error {
	return writeJSON(w, jsonDetection{
		DetectionResult: result,
		Changes:         changes,
		ElapsedMs:       result.Elapsed.Milliseconds(),
	})
}

// writeCSVDetection writes one row per (time, series) pair.
func writeCSVDetection(w io.Writer, changes []schema.LabeledChange) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"time", "series", "label"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range changes {
		for k, i := range c.Series {
			if err := csvWriter.Write([]string{strconv.Itoa(c.Time), strconv.Itoa(i), c.Labels[k]}); err != nil {
				return err
			}
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// writeDetectionTable generates and writes the human-readable table.
func writeDetectionTable(w io.Writer, result *schema.DetectionResult, changes []schema.LabeledChange, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Time", "Count", "Series"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignRight, tw.AlignRight, tw.AlignLeft}
	})

	width := getMaxTableLabelWidth(cfg)
	var data [][]string
	for _, c := range changes {
		data = append(data, []string{
			strconv.Itoa(c.Time),
			strconv.Itoa(len(c.Series)),
			contract.TruncateLabel(joinLabels(c), width),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Status: %s after %d iterations (%d change times, %d changes)\n",
		contract.GetColorStatus(result.Status), result.Iterations, len(result.Changes), result.Changes.NumChanges()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Series: %d x %d frames, %d disabled, %d penalties raised to lam-min\n",
		result.NumSeries, result.NumFrames, result.Disabled, result.Raised); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Detection completed in %v with %d workers. Cache backend: %s\n",
		duration, cfg.Workers, displayBackend(cfg.CacheBackend))
	return err
}

// displayBackend names a backend for the footer, showing "none" when unset.
func displayBackend(backend schema.DatabaseBackend) string {
	if backend == "" {
		return string(schema.NoneBackend)
	}
	return string(backend)
}
