package detect

import (
	"context"
	"slices"

	"github.com/huangsam/simchange/schema"
)

// seriesCurve is one series' likelihood gain over a refinement window.
type seriesCurve struct {
	Series int       `msgpack:"series"`
	Values []float64 `msgpack:"values"`
}

// refinementActive turns shift-and-merge on once the number of change times
// stops falling while still well below the frame count, and keeps it on.
func (w *worker) refinementActive(numTimes int) bool {
	st := w.state
	if !st.shiftMerge && numTimes < w.frames-3 && numTimes >= st.prevTimes {
		st.shiftMerge = true
	}
	return st.shiftMerge
}

// setAt returns the series changed at t. Both sentinels count as every series.
func (w *worker) setAt(changes schema.ChangeSet, t int) schema.SeriesSet {
	if t == 0 || t == w.frames {
		return w.all
	}
	return changes[t]
}

// refine slides a window (t0, t1, t2) over the sorted change times and moves
// t1 to the position with the best combined likelihood and penalty, merging
// it into a neighbor when that wins. Every rank applies identical edits to its
// copy of changes and to its own breakpoints.
//
// Per-series breakpoint cursors only move forward. After a merge the window is
// re-examined at the same position, so a triple further left is not revisited.
func (w *worker) refine(ctx context.Context, changes schema.ChangeSet) error {
	st := w.state
	times := slices.Concat([]int{0}, changes.Times(), []int{w.frames})
	prevIdx := make([]int, len(st.owned))
	nextIdx := make([]int, len(st.owned))

	for t := 0; t < len(times)-2; t++ {
		t0, t1, t2 := times[t], times[t+1], times[t+2]
		moving := changes[t1]

		curves, err := w.windowCurves(moving, prevIdx, nextIdx, t0, t2)
		if err != nil {
			return err
		}
		parts, err := gatherValue(ctx, w.comm, curves)
		if err != nil {
			return err
		}
		var best int
		if w.comm.Rank() == coordinator {
			best = w.bestShift(parts, changes, t0, t1, t2)
		}
		if best, err = broadcastValue(ctx, w.comm, best); err != nil {
			return err
		}

		switch best {
		case t1:
		case t0, t2:
			target := w.setAt(changes, best)
			for k, i := range st.owned {
				if !moving.Contains(i) {
					continue
				}
				if target.Contains(i) {
					st.breakpoints[k] = slices.Delete(st.breakpoints[k], prevIdx[k]+1, prevIdx[k]+2)
					nextIdx[k]--
				} else {
					st.breakpoints[k][prevIdx[k]+1] = best
				}
			}
			if best != 0 && best != w.frames {
				changes[best] = changes[best].Union(moving)
			}
			delete(changes, t1)
			times = slices.Delete(times, t+1, t+2)
			t--
		default:
			delete(changes, t1)
			changes[best] = moving
			times[t+1] = best
			for k, i := range st.owned {
				if moving.Contains(i) {
					st.breakpoints[k][prevIdx[k]+1] = best
				}
			}
		}
	}
	return nil
}

// windowCurves advances the breakpoint cursors of every owned series to the
// window and returns the likelihood gains of the series changed at t1,
// each bounded by that series' own neighboring breakpoints.
func (w *worker) windowCurves(moving schema.SeriesSet, prevIdx, nextIdx []int, t0, t2 int) ([]seriesCurve, error) {
	st := w.state
	var curves []seriesCurve
	for k, i := range st.owned {
		bps := st.breakpoints[k]
		for bps[prevIdx[k]+1] <= t0 {
			prevIdx[k]++
		}
		for bps[nextIdx[k]] < t2 {
			nextIdx[k]++
		}
		if !moving.Contains(i) {
			continue
		}
		diff, err := w.params.Oracle.LLDifference(st.series[k], bps[prevIdx[k]], bps[nextIdx[k]], t0, t2)
		if err != nil {
			return nil, &OracleError{Series: i, Err: err}
		}
		curves = append(curves, seriesCurve{Series: i, Values: diff})
	}
	return curves, nil
}

// bestShift returns the first time maximizing the window gain.
func (w *worker) bestShift(parts [][]seriesCurve, changes schema.ChangeSet, t0, t1, t2 int) int {
	gain := w.windowGain(parts, changes, t0, t1, t2)
	best := 0
	for k := range gain {
		if gain[k] > gain[best] {
			best = k
		}
	}
	return best + t0
}

// windowGain sums the gathered curves in ascending series order and adds the
// merge saving at both endpoints. Entry k scores moving t1 to t0+k.
func (w *worker) windowGain(parts [][]seriesCurve, changes schema.ChangeSet, t0, t1, t2 int) []float64 {
	var curves []seriesCurve
	for _, part := range parts {
		curves = append(curves, part...)
	}
	slices.SortFunc(curves, func(a, b seriesCurve) int { return a.Series - b.Series })

	gain := make([]float64, t2-t0+1)
	for _, c := range curves {
		for k, v := range c.Values {
			gain[k] += v
		}
	}
	moving := changes[t1]
	gain[0] -= w.model.MergeDelta(w.setAt(changes, t0), moving)
	gain[len(gain)-1] -= w.model.MergeDelta(w.setAt(changes, t2), moving)
	return gain
}
