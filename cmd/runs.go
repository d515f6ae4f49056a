package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/iocache"
	"github.com/huangsam/simchange/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads minimal configuration needed for run store operations.
func runsSetup() error {
	backend, connStr, err := storeSetup("runs-backend", "runs-db-connect")
	if err != nil {
		return err
	}

	// No result caching for runs commands
	if err := iocache.InitCaching("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}

	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetup does NOT open the store or create tables,
// so migrations can run on a fresh database.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeSetup("runs-backend", "runs-db-connect")
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend {
		connStr = sqliteFile(connStr, contract.GetRunsDBFilePath())
	}

	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	return nil
}

// runsCmd focused on run tracking data management.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage tracked detection runs and exports",
	Long: `Manage the history of detection runs.

When --runs-backend is set, every detection stores:
- Run metadata (timestamps, shape, penalty parameters, status, duration)
- One row per detected (time, series) change

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show run tracking statistics
  export  - Export runs and changes to Parquet
  clear   - Remove all tracking data
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  simchange runs status --runs-backend sqlite

  # Export for analysis in pandas/DuckDB
  simchange runs export --runs-backend sqlite --output-file history`,
}

// runsClearCmd clears the run data.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all tracked runs and changes",
	Long: `Delete all stored runs and their changes.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  simchange runs export --runs-backend sqlite --output-file backup
  simchange runs clear --runs-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseCaching()
		path := sqliteFile(cfg.RunsDBConnect, contract.GetRunsDBFilePath())
		if err := iocache.ClearRuns(cfg.RunsBackend, path, cfg.RunsDBConnect); err != nil {
			contract.LogFatal("Failed to clear run data", err)
		}
		fmt.Println("Run data cleared successfully.")
	},
}

// runsStatusCmd shows run store status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run tracking statistics and connection details",
	Long: `Show detailed information about run tracking.

Displays:
- Backend type and connection status
- Total number of runs and recorded changes
- Last and oldest run timestamps
- Database table sizes

Examples:
  simchange runs status --runs-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetRunStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get runs status", err)
		}
		iocache.PrintRunsStatus(os.Stdout, status)
	},
}

// runsExportCmd exports run data to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tracked runs and changes to Parquet",
	Long: `Export all stored runs and changes to two Parquet files:
<output-file>.runs.parquet and <output-file>.changes.parquet.

Requires: --output-file parameter

Examples:
  simchange runs export --runs-backend sqlite --output-file history
  duckdb -c "SELECT * FROM read_parquet('history.runs.parquet') LIMIT 10"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		runsFile, changesFile, err := iocache.ExportRuns(os.Stdout, iocache.Manager.GetRunStore(), cfg.OutputFile)
		if err != nil {
			contract.LogFatal("Failed to export run data", err)
		}
		fmt.Printf("Exported runs to %s and changes to %s\n", runsFile, changesFile)
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run tracking store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  simchange runs migrate --runs-backend sqlite

  # Migrate to specific version
  simchange runs migrate --runs-backend sqlite --target-version 1

  # Rollback everything
  simchange runs migrate --runs-backend sqlite --target-version 0`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		result, err := iocache.MigrateRuns(cfg.RunsBackend, cfg.RunsDBConnect, viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println(result)
	},
}
