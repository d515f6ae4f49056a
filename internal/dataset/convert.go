package dataset

import (
	"fmt"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/parquet"
	"github.com/huangsam/simchange/schema"
)

// ConvertToParquet rewrites a data file as a Parquet series file.
func ConvertToParquet(inputPath, outputPath string, layout schema.DataLayout) (int, error) {
	src, err := Open(inputPath, layout)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()
	return WriteParquet(src, outputPath)
}

// WriteParquet writes every series of src to outputPath and returns the row count.
func WriteParquet(src contract.LabeledSource, outputPath string) (int, error) {
	numSeries, _ := src.Shape()
	labels := src.Labels()
	rows := make([]parquet.SeriesRow, numSeries)
	for i := range rows {
		values, err := src.Series(i)
		if err != nil {
			return 0, fmt.Errorf("failed to read series %d: %w", i, err)
		}
		rows[i] = parquet.SeriesRow{Index: int32(i), Label: labels[i], Values: values}
	}
	if err := parquet.WriteSeriesParquet(rows, outputPath); err != nil {
		return 0, err
	}
	return numSeries, nil
}
