package detect

import (
	"math"
	"testing"

	"github.com/huangsam/simchange/internal/dataset"
	"github.com/stretchr/testify/require"
)

// goldenNoise is a deterministic unit-variance sequence with no near-equal neighbors.
func goldenNoise(n int, phase float64) []float64 {
	const phi = 0.6180339887498949
	out := make([]float64, n)
	for k := range out {
		_, frac := math.Modf(phase + float64(k)*phi)
		out[k] = math.Sqrt(3) * 2 * (frac - 0.5)
	}
	return out
}

func stepSeries(n, at int, shift, phase float64) []float64 {
	out := goldenNoise(n, phase)
	for k := at; k < n; k++ {
		out[k] += shift
	}
	return out
}

func matrix(t *testing.T, rows ...[]float64) *dataset.Matrix {
	t.Helper()
	m, err := dataset.NewMatrix(rows, nil)
	require.NoError(t, err)
	return m
}

// bigGroups overlap on series 6.
var bigGroups = [][]int{{0, 1, 2, 6}, {3, 4, 5}, {6, 7, 8}}

// bigDataset has 9 series of 60 frames: 0-2 step up at 20, 3-5 step down at
// 40, 6 has a bump on [20, 40), 7 is constant and 8 is noise.
func bigDataset(t *testing.T) *dataset.Matrix {
	rows := make([][]float64, 9)
	for i := range rows {
		s := goldenNoise(60, 0.07*float64(i)+0.05)
		switch {
		case i < 3:
			for k := 20; k < 60; k++ {
				s[k] += 6
			}
		case i < 6:
			for k := 40; k < 60; k++ {
				s[k] -= 5
			}
		case i == 6:
			for k := 20; k < 40; k++ {
				s[k] += 4
			}
		case i == 7:
			for k := range s {
				s[k] = 2.5
			}
		}
		rows[i] = s
	}
	return matrix(t, rows...)
}
