package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/parquet"
)

// ExportRuns writes all tracked runs and their changes to two Parquet files
// named after outputFile, and returns their paths.
func ExportRuns(w io.Writer, store contract.RunStore, outputFile string) (string, string, error) {
	if outputFile == "" {
		return "", "", errors.New("--output-file is required for export command")
	}
	if store == nil {
		return "", "", errors.New("run tracking is not enabled")
	}

	status, err := store.GetStatus()
	if err != nil {
		return "", "", fmt.Errorf("failed to get runs status: %w", err)
	}
	if status.TotalRuns == 0 {
		return "", "", errors.New("no run data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total change records: %d\n", status.TotalChanges)

	runs, err := store.GetAllRuns()
	if err != nil {
		return "", "", fmt.Errorf("failed to retrieve runs: %w", err)
	}
	changes, err := store.GetAllChanges()
	if err != nil {
		return "", "", fmt.Errorf("failed to retrieve changes: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	runRows := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteRunsParquet(runRows, runsFile); err != nil {
		return "", "", fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runRows), runsFile)

	changesFile := outputFile + ".changes.parquet"
	changeRows := parquet.ConvertChangeRecords(changes)
	if err := parquet.WriteRunChangesParquet(changeRows, changesFile); err != nil {
		return "", "", fmt.Errorf("failed to write changes: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d change records to: %s\n", len(changeRows), changesFile)

	return runsFile, changesFile, nil
}
