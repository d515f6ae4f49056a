// Package cmd defines the command-line interface for simchange.
package cmd

import (
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().Float64("lam", schema.DefaultLam, "Penalty scale for a change; larger values report fewer changes")
	rootCmd.PersistentFlags().Float64("alpha", schema.DefaultAlpha, "Cross-group discount exponent in (0, 1]")
	rootCmd.PersistentFlags().Float64("beta", schema.DefaultBeta, "Within-group discount exponent in (0, 1]")
	rootCmd.PersistentFlags().Float64("lam-min", schema.DefaultLamMin, "Floor for the initial per-series penalties (0 disables it)")
	rootCmd.PersistentFlags().String("groups", "", "Series groups, e.g. '0-4;5,7;8-9' (default: one group of every series)")
	rootCmd.PersistentFlags().String("seeds", "", "Comma-separated per-series seeds (default: the series index)")
	rootCmd.PersistentFlags().Int("max-iters", schema.DefaultMaxIters, "Maximum number of outer iterations")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log per-iteration progress to stderr")
	rootCmd.PersistentFlags().String("layout", string(schema.SeriesPerRow), "CSV layout: series (one series per row) or frames (one frame per row)")
	rootCmd.PersistentFlags().String("labels", "", "Comma-separated series labels to keep in the output")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Result cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("runs-backend", "", "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("runs-db-connect", "", "Database connection string for run tracking (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of sweepCmd to Viper
	sweepCmd.Flags().String("lams", "", "Comma-separated penalty scales to sweep, e.g. 4,8,16,32")
	sweepCmd.Flags().Int("target-times", 0, "Select the lam whose number of change times is closest to this")
	sweepCmd.Flags().Int("target-changes", 0, "Select the lam whose total number of changes is closest to this")
	if err := viper.BindPFlags(sweepCmd.Flags()); err != nil {
		contract.LogFatal("Error binding sweep flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
