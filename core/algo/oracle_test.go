package algo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
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

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// segmentLL is the reference likelihood of series[a:b], zero when empty.
func segmentLL(series []float64, a, b int) float64 {
	if a == b {
		return 0
	}
	var s segmentStat
	for _, x := range series[a:b] {
		s.add(x)
	}
	return s.ll()
}

func TestSegmentStatMedianAndDeviation(t *testing.T) {
	var s segmentStat
	for _, x := range []float64{3, 1, 4, 1, 5, 9, 2, 6} {
		s.add(x)
	}
	// sorted: 1 1 2 3 4 5 6 9, median 3.5
	assert.InDelta(t, 3.5, s.med, 1e-12)
	assert.InDelta(t, 2.5+2.5+1.5+0.5+0.5+1.5+2.5+5.5, s.totalVar, 1e-12)
	assert.InDelta(t, -8*(1+math.Log(2*17.0/8)), s.ll(), 1e-12)
}

func TestSegmentStatDegenerate(t *testing.T) {
	var single segmentStat
	single.add(1)
	assert.True(t, math.IsInf(single.ll(), -1))

	var flat segmentStat
	for range 5 {
		flat.add(2)
	}
	assert.True(t, math.IsInf(flat.ll(), -1))
}

func TestLaplaceOracleFindChanges(t *testing.T) {
	oracle := LaplaceOracle{}

	tests := []struct {
		name    string
		series  []float64
		penalty float64
		want    []int
	}{
		{"mean shift", stepSeries(20, 10, 5, 0.1), 10, []int{10}},
		{"shift survives small penalty", stepSeries(20, 10, 5, 0.1), 1, []int{10}},
		{"penalty above gain", stepSeries(20, 10, 5, 0.1), 25, nil},
		{"noise only", goldenNoise(20, 0.6), 2, nil},
		{"constant", constant(30, 4), 0, nil},
		{"two frames", []float64{1, 2}, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oracle.FindChanges(tt.series, constant(len(tt.series)-1, tt.penalty))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLaplaceOracleFindsTwoShifts(t *testing.T) {
	series := goldenNoise(60, 0.3)
	for k := 20; k < 40; k++ {
		series[k] += 6
	}
	got, err := LaplaceOracle{}.FindChanges(series, constant(59, 10))
	require.NoError(t, err)
	assert.Equal(t, []int{20, 40}, got)
}

func TestLaplaceOracleRejectsBadInput(t *testing.T) {
	oracle := LaplaceOracle{}

	_, err := oracle.FindChanges(goldenNoise(10, 0), constant(10, 1))
	assert.ErrorIs(t, err, ErrOracleInput)

	_, err = oracle.FindChanges([]float64{1}, nil)
	assert.ErrorIs(t, err, ErrOracleInput)

	bad := goldenNoise(10, 0)
	bad[4] = math.NaN()
	_, err = oracle.FindChanges(bad, constant(9, 1))
	assert.ErrorIs(t, err, ErrOracleInput)

	_, err = oracle.LLDifference(bad, 0, 10, 5, 5)
	assert.ErrorIs(t, err, ErrOracleInput)

	_, err = oracle.LLDifference(bad, 0, 10, 5, 11)
	assert.ErrorIs(t, err, ErrOracleInput)
}

func TestLaplaceOracleLLDifference(t *testing.T) {
	series := stepSeries(30, 14, 3, 0.2)

	tests := []struct {
		name                   string
		prev, next, start, end int
	}{
		{"inside wider segment", 2, 28, 6, 20},
		{"right edge is next change", 0, 20, 8, 20},
		{"left edge is prev change", 5, 25, 5, 18},
		{"whole series", 0, 30, 0, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LaplaceOracle{}.LLDifference(series, tt.prev, tt.next, tt.start, tt.end)
			require.NoError(t, err)
			require.Len(t, got, tt.end-tt.start+1)

			whole := segmentLL(series, tt.prev, tt.next)
			for k, g := range got {
				s := tt.start + k
				want := segmentLL(series, tt.prev, s) + segmentLL(series, s, tt.next) - whole
				if math.IsInf(want, -1) {
					assert.True(t, math.IsInf(g, -1), "s=%d", s)
					continue
				}
				assert.InDelta(t, want, g, 1e-9, "s=%d", s)
			}
		})
	}
}

func TestLaplaceOracleLLDifferencePeaksAtShift(t *testing.T) {
	series := stepSeries(20, 10, 5, 0.1)
	got, err := LaplaceOracle{}.LLDifference(series, 0, 20, 0, 20)
	require.NoError(t, err)

	best := 0
	for k := range got {
		if got[k] > got[best] {
			best = k
		}
	}
	assert.Equal(t, 10, best)
	assert.InDelta(t, 0.0, got[0], 1e-12)
	assert.InDelta(t, 0.0, got[20], 1e-12)
}

func TestLaplaceOracleLLDifferenceDegenerateSegment(t *testing.T) {
	got, err := LaplaceOracle{}.LLDifference(constant(12, 1), 0, 12, 2, 8)
	require.NoError(t, err)
	assert.Len(t, got, 7)
	for _, g := range got {
		assert.True(t, math.IsInf(g, -1))
	}
}
