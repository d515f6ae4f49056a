package dataset

import (
	"fmt"
	"math"

	"github.com/huangsam/simchange/internal/contract"
	"gonum.org/v1/gonum/stat"
)

// SeriesStats summarizes one series.
type SeriesStats struct {
	Index  int     `json:"index"`
	Label  string  `json:"label"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Constant reports whether the series never moves.
func (s SeriesStats) Constant() bool {
	return s.Max == s.Min
}

// Summary describes a whole source before detection.
type Summary struct {
	NumSeries int           `json:"num_series"`
	NumFrames int           `json:"num_frames"`
	Constant  int           `json:"constant_series"`
	Series    []SeriesStats `json:"series"`
}

// Describe computes per-series statistics. It fails on non-finite values,
// which the detector rejects anyway.
func Describe(src contract.SeriesSource) (Summary, error) {
	numSeries, numFrames := src.Shape()
	sum := Summary{NumSeries: numSeries, NumFrames: numFrames, Series: make([]SeriesStats, numSeries)}

	var labels []string
	if ls, ok := src.(contract.LabeledSource); ok {
		labels = ls.Labels()
	}
	for i := range numSeries {
		values, err := src.Series(i)
		if err != nil {
			return Summary{}, err
		}
		st := SeriesStats{Index: i, Min: math.Inf(1), Max: math.Inf(-1)}
		if i < len(labels) {
			st.Label = labels[i]
		}
		for t, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Summary{}, fmt.Errorf("series %d has a non-finite value at frame %d", i, t)
			}
			st.Min = math.Min(st.Min, v)
			st.Max = math.Max(st.Max, v)
		}
		st.Mean, st.StdDev = stat.MeanStdDev(values, nil)
		if st.Constant() {
			st.StdDev = 0
			sum.Constant++
		}
		sum.Series[i] = st
	}
	return sum, nil
}
