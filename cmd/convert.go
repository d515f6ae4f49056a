package cmd

import (
	"fmt"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/dataset"
	"github.com/huangsam/simchange/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// convertCmd rewrites a CSV matrix as a Parquet series file.
var convertCmd = &cobra.Command{
	Use:   "convert <csv-file>",
	Short: "Convert a CSV matrix to a Parquet series file.",
	Long: `Convert a CSV matrix into the Parquet layout that detect and sweep read lazily.

Each series becomes one Parquet row, so detections on the converted file read
series on demand instead of parsing the whole matrix up front.

Examples:
  simchange convert sensors.csv --output-file sensors.parquet
  simchange convert frames.csv --layout frames --output-file sensors.parquet`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfigFile()
	},
	Run: func(_ *cobra.Command, args []string) {
		outputFile := viper.GetString("output-file")
		if outputFile == "" {
			contract.LogFatal("Cannot convert", fmt.Errorf("--output-file is required for convert command"))
		}
		layout, ok := contract.ValidDataLayout(schema.DataLayout(viper.GetString("layout")))
		if !ok {
			contract.LogFatal("Cannot convert", fmt.Errorf("invalid layout '%s'. must be series, frames", layout))
		}

		n, err := dataset.ConvertToParquet(args[0], outputFile, layout)
		if err != nil {
			contract.LogFatal("Cannot convert", err)
		}
		fmt.Printf("Wrote %d series to %s\n", n, outputFile)
	},
}
