// Package dataset loads series matrices from CSV and Parquet files.
package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/parquet"
	"github.com/huangsam/simchange/schema"
)

// Source is a labeled series source that holds resources until closed.
type Source interface {
	contract.LabeledSource
	Close() error
}

var (
	_ Source = &Matrix{}             // Compile-time check
	_ Source = &parquet.SeriesFile{} // Compile-time check
)

// Matrix is an in-memory series source.
type Matrix struct {
	rows   [][]float64
	labels []string
}

// NewMatrix validates rows and wraps them. rows[i] is series i.
// labels may be nil or hold one entry per series.
func NewMatrix(rows [][]float64, labels []string) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no series")
	}
	frames := len(rows[0])
	for i, row := range rows {
		if len(row) != frames {
			return nil, fmt.Errorf("series %d has %d frames, want %d", i, len(row), frames)
		}
	}
	if labels != nil && len(labels) != len(rows) {
		return nil, fmt.Errorf("got %d labels for %d series", len(labels), len(rows))
	}
	if labels == nil {
		labels = make([]string, len(rows))
	}
	return &Matrix{rows: rows, labels: labels}, nil
}

// Shape returns the number of series and frames.
func (m *Matrix) Shape() (int, int) {
	return len(m.rows), len(m.rows[0])
}

// Series returns series i.
func (m *Matrix) Series(i int) ([]float64, error) {
	if i < 0 || i >= len(m.rows) {
		return nil, fmt.Errorf("series %d out of range [0, %d)", i, len(m.rows))
	}
	return m.rows[i], nil
}

// Labels returns the series labels; unlabeled series have empty entries.
func (m *Matrix) Labels() []string {
	return m.labels
}

// Close is a no-op.
func (m *Matrix) Close() error {
	return nil
}

// Open loads path by extension: ".parquet" is read lazily, anything else is
// parsed as CSV in the given layout.
func Open(path string, layout schema.DataLayout) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		sf, err := parquet.OpenSeries(path)
		if err != nil {
			return nil, err
		}
		return sf, nil
	}
	m, err := ReadCSVFile(path, layout)
	if err != nil {
		return nil, err
	}
	return m, nil
}
