package algo

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrOracleInput is returned for series, penalties or windows the oracle cannot handle.
var ErrOracleInput = errors.New("invalid oracle input")

// Oracle finds optimal breakpoints in a single series.
type Oracle interface {
	// FindChanges returns ascending interior breakpoints maximizing the total
	// segment log-likelihood minus penalties[t-1] for each breakpoint t.
	// len(penalties) must be len(series)-1.
	FindChanges(series, penalties []float64) ([]int, error)

	// LLDifference returns, for every s in [start, end], the log-likelihood
	// gain of splitting the segment [prevChange, nextChange) at s.
	LLDifference(series []float64, prevChange, nextChange, start, end int) ([]float64, error)
}

// LaplaceOracle is a pruned dynamic program over segment starts using the
// Laplace likelihood around each segment's median. Runtime is close to linear
// in the series length when changes are sparse.
type LaplaceOracle struct{}

var _ Oracle = LaplaceOracle{} // Compile-time check

// candidate is a possible start of the last segment.
type candidate struct {
	segmentStat
	start  int
	cost   float64
	pruneT int
}

func newCandidate(start int) *candidate {
	return &candidate{start: start, pruneT: -1}
}

// FindChanges implements Oracle.
func (LaplaceOracle) FindChanges(series, penalties []float64) ([]int, error) {
	T := len(series)
	if T < minSep || len(penalties) != T-1 {
		return nil, fmt.Errorf("%w: %d frames with %d penalties", ErrOracleInput, T, len(penalties))
	}
	if err := checkFinite(series); err != nil {
		return nil, err
	}

	vals := make([]float64, T)
	prev := make([]int, T)
	checks := []*candidate{newCandidate(0)}
	for t := range minSep - 1 {
		checks[0].add(series[t])
	}

	for t := minSep - 1; t < T; t++ {
		maxVal, maxInd := -math.MaxFloat64, -1
		kept := checks[:0]
		for _, c := range checks {
			if c.pruneT == t {
				continue
			}
			c.add(series[t])
			val := c.ll()
			if c.start > 0 {
				val += vals[c.start-1] - penalties[c.start-1]
			}
			c.cost = val
			if val > maxVal {
				maxVal, maxInd = val, c.start
			}
			kept = append(kept, c)
		}
		checks = kept
		vals[t], prev[t] = maxVal, maxInd

		// A start that already trails the best path by more than one penalty
		// cannot win later; it drops out minSep frames from now.
		if t < T-1 {
			for _, c := range checks {
				if c.pruneT == -1 && c.cost < vals[t]-penalties[t] {
					c.pruneT = t + minSep
				}
			}
		}

		if s := t - minSep + 2; s >= minSep {
			c := newCandidate(s)
			for k := s; k <= t; k++ {
				c.add(series[k])
			}
			checks = append(checks, c)
		}
	}

	var changes []int
	for ind := prev[T-1]; ind > 1; ind = prev[ind-1] {
		changes = append(changes, ind)
	}
	slices.Reverse(changes)
	return changes, nil
}

// LLDifference implements Oracle. Entry k is ll(prev, s) + ll(s, next) - ll(prev, next)
// for s = start+k, an empty segment counting as zero. When [prevChange, nextChange)
// has no finite likelihood the forward partial likelihoods are returned as is.
func (LaplaceOracle) LLDifference(series []float64, prevChange, nextChange, start, end int) ([]float64, error) {
	T := len(series)
	if start < 0 || start >= end || T < end || prevChange < 0 || nextChange > T {
		return nil, fmt.Errorf("%w: window [%d,%d] in segment [%d,%d) of %d frames",
			ErrOracleInput, start, end, prevChange, nextChange, T)
	}

	diff := make([]float64, end-start+1)
	var fwd segmentStat
	for t := prevChange; t < nextChange; t++ {
		fwd.add(series[t])
		if t >= start-1 && t < end {
			diff[t-start+1] = fwd.ll()
		}
	}
	if prevChange == start {
		diff[0] = 0
	}
	whole := fwd.ll()
	if math.IsInf(whole, -1) {
		return diff, nil
	}
	if nextChange == end {
		diff[end-start] -= whole
	}

	var bwd segmentStat
	for t := nextChange - 1; t >= start; t-- {
		bwd.add(series[t])
		if t <= end {
			diff[t-start] += bwd.ll() - whole
		}
	}
	return diff, nil
}

func checkFinite(series []float64) error {
	for t, x := range series {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite value at frame %d", ErrOracleInput, t)
		}
	}
	return nil
}
