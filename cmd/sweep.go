package cmd

import (
	"github.com/huangsam/simchange/core"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/spf13/cobra"
)

// sweepCmd runs one detection per penalty scale and optionally selects one.
var sweepCmd = &cobra.Command{
	Use:   "sweep <data-file>",
	Short: "Run detections over several penalty scales.",
	Long: `Run one detection per value of --lams and report each of them.

Use --target-times or --target-changes to pick the scale whose result is
closest to an expected number of change times or (time, series) changes.
Ties go to the scale listed first.

Examples:
  # Compare a range of scales
  simchange sweep sensors.csv --lams 4,8,16,32,64

  # Pick the scale that yields about 3 change times
  simchange sweep sensors.csv --lams 4,8,16,32,64 --target-times 3`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSweep(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run sweep", err)
		}
	},
}
