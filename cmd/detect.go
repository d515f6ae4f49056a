package cmd

import (
	"github.com/huangsam/simchange/core"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/spf13/cobra"
)

// detectCmd runs one detection at a single penalty scale.
var detectCmd = &cobra.Command{
	Use:   "detect <data-file>",
	Short: "Detect simultaneous changepoints in a set of series.",
	Long: `Detect changepoints that are shared across series.

The input is a CSV or Parquet matrix. In CSV files each row is one series by
default (--layout series); use --layout frames when each row is one time frame.
A leading non-numeric field (or header row for frames) names the series.

Every series gets a penalty for each change. A change that other series share
costs less, discounted by --beta within a group and --alpha across groups, so
shifts that happen together are found even when each one is small.

Examples:
  # Detect with the default penalty scale
  simchange detect sensors.csv

  # Fewer, stronger changes
  simchange detect sensors.csv --lam 64

  # Two groups of series that tend to move together
  simchange detect sensors.csv --groups '0-9;10-19' --alpha 0.5

  # Track the run and write JSON
  simchange detect sensors.csv --runs-backend sqlite --output json --output-file changes.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteDetect(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run detection", err)
		}
	},
}
