package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/parquet"
	"github.com/huangsam/simchange/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var selectedColor = color.New(color.FgMagenta, color.Bold)

// WriteSweepResult outputs a lambda sweep, dispatching based on the output format configured.
func WriteSweepResult(sweep *schema.SweepResult, labels []string, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONSweep(w, sweep, labels)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVSweep(w, sweep, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WriteSweepParquet(parquet.SweepRows(sweep), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		logWrote("Wrote Parquet", cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSweepTable(w, sweep, labels, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

type jsonSweepEntry struct {
	Lam      float64       `json:"lam"`
	Selected bool          `json:"selected"`
	Result   jsonDetection `json:"result"`
}

func writeJSONSweep(w io.Writer, sweep *schema.SweepResult, labels []string) error {
	entries := make([]jsonSweepEntry, len(sweep.Entries))
	for i, e := range sweep.Entries {
		entries[i] = jsonSweepEntry{
			Lam:      e.Lam,
			Selected: i == sweep.Selected,
			Result: jsonDetection{
				DetectionResult: e.Result,
				Changes:         e.Result.Changes.Label(labels),
				ElapsedMs:       e.Result.Elapsed.Milliseconds(),
			},
		}
	}
	return writeJSON(w, entries)
}

func writeCSVSweep(w io.Writer, sweep *schema.SweepResult, fmtFloat func(float64) string) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"lam", "status", "iterations", "change_times", "total_changes", "selected"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, e := range sweep.Entries {
		row := []string{
			fmtFloat(e.Lam),
			string(e.Result.Status),
			strconv.Itoa(e.Result.Iterations),
			strconv.Itoa(len(e.Result.Changes)),
			strconv.Itoa(e.Result.Changes.NumChanges()),
			strconv.FormatBool(i == sweep.Selected),
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// writeSweepTable prints one row per lambda, then the selected entry in full.
func writeSweepTable(w io.Writer, sweep *schema.SweepResult, labels []string, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"", "Lam", "Status", "Iters", "Times", "Changes"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, e := range sweep.Entries {
		mark := ""
		if i == sweep.Selected {
			mark = selectedColor.Sprint("*")
		}
		data = append(data, []string{
			mark,
			fmtFloat(e.Lam),
			contract.GetColorStatus(e.Result.Status),
			strconv.Itoa(e.Result.Iterations),
			strconv.Itoa(len(e.Result.Changes)),
			strconv.Itoa(e.Result.Changes.NumChanges()),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if sweep.Selected >= 0 && sweep.Selected < len(sweep.Entries) {
		selected := sweep.Entries[sweep.Selected]
		if _, err := fmt.Fprintf(w, "\nSelected lam %s:\n", fmtFloat(selected.Lam)); err != nil {
			return err
		}
		if err := writeDetectionTable(w, selected.Result, selected.Result.Changes.Label(labels), cfg, selected.Result.Elapsed); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Sweep of %d values completed in %v with %d workers. Cache backend: %s\n",
		len(sweep.Entries), duration, cfg.Workers, displayBackend(cfg.CacheBackend))
	return err
}
