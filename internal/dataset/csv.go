package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/huangsam/simchange/schema"
)

// ReadCSVFile parses a CSV matrix file.
func ReadCSVFile(path string, layout schema.DataLayout) (*Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadCSV(file, layout)
}

// ReadCSV parses a numeric matrix. Lines starting with '#' are skipped.
//
// With the series layout each row is one series and a non-numeric first field
// is taken as that series' label. With the frames layout each row is one frame
// and a fully non-numeric first row is taken as a header of labels.
func ReadCSV(r io.Reader, layout schema.DataLayout) (*Matrix, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no rows")
	}

	switch layout {
	case schema.FramesPerRow:
		return framesMatrix(records)
	default:
		return seriesMatrix(records)
	}
}

func seriesMatrix(records [][]string) (*Matrix, error) {
	rows := make([][]float64, len(records))
	labels := make([]string, len(records))
	for i, rec := range records {
		if len(rec) > 0 && !isNumber(rec[0]) {
			labels[i] = strings.TrimSpace(rec[0])
			rec = rec[1:]
		}
		row, err := parseRow(rec, i+1)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return NewMatrix(rows, labels)
}

func framesMatrix(records [][]string) (*Matrix, error) {
	var labels []string
	if !isNumber(records[0][0]) {
		for _, name := range records[0] {
			labels = append(labels, strings.TrimSpace(name))
		}
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has a header but no frames")
	}

	numSeries := len(records[0])
	rows := make([][]float64, numSeries)
	for i := range rows {
		rows[i] = make([]float64, len(records))
	}
	for t, rec := range records {
		frame, err := parseRow(rec, t+1)
		if err != nil {
			return nil, err
		}
		if len(frame) != numSeries {
			return nil, fmt.Errorf("frame %d has %d values, want %d", t, len(frame), numSeries)
		}
		for i, v := range frame {
			rows[i][t] = v
		}
	}
	return NewMatrix(rows, labels)
}

func parseRow(fields []string, line int) ([]float64, error) {
	row := make([]float64, len(fields))
	for k, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d, field %d: %w", line, k+1, err)
		}
		row[k] = v
	}
	return row, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
