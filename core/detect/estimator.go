package detect

import (
	"context"
	"math/rand/v2"

	"github.com/huangsam/simchange/core/agg"
	"github.com/huangsam/simchange/schema"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	scaleMin = 0.9
	scaleMax = 1.0
)

// landscape is the coordinator's view of the current change times, shared
// verbatim with every worker before the penalty update.
type landscape struct {
	Times   []int       `msgpack:"times"`
	Totals  [][]float64 `msgpack:"totals"`  // Totals[k][g] counts group g's members changed at Times[k]
	Current []float64   `msgpack:"current"` // sum over groups of Totals[k][g]^beta
}

// seedPenalties draws the per-transition scales and sets the iteration-0
// penalty of every owned series to its stand-alone cost, raising values under
// 0.9*lamMin to scale*lamMin.
func (w *worker) seedPenalties() {
	st := w.state
	for k, i := range st.owned {
		draw := distuv.Uniform{Min: scaleMin, Max: scaleMax, Src: rand.NewPCG(w.params.seed(i), 0)}
		alone := w.model.Alone(i)

		scales := make([]float64, w.frames-1)
		pen := make([]float64, w.frames-1)
		for t := range pen {
			scales[t] = draw.Rand()
			pen[t] = alone * scales[t]
			if pen[t] < scaleMin*w.params.LamMin {
				pen[t] = scales[t] * w.params.LamMin
				st.raised++
			}
		}
		st.scales[k], st.penalties[k] = scales, pen
	}
}

// buildLandscape computes group totals for the surviving change times.
func (w *worker) buildLandscape(changes schema.ChangeSet) landscape {
	times := changes.Times()
	land := landscape{Times: times, Totals: make([][]float64, len(times)), Current: make([]float64, len(times))}
	totals := agg.GroupTotals(w.model, changes, times)
	for k := range times {
		land.Totals[k] = mat.Col(nil, k, totals)
		land.Current[k] = w.model.Current(land.Totals[k])
	}
	return land
}

// updatePenalties re-derives the penalty vectors of the owned, enabled series
// from the coordinator's landscape. Unflagged transitions fall back to the
// stand-alone cost rescaled by the iteration-0 draw.
func (w *worker) updatePenalties(ctx context.Context, changes schema.ChangeSet) error {
	var land landscape
	if w.comm.Rank() == coordinator {
		land = w.buildLandscape(changes)
	}
	land, err := broadcastValue(ctx, w.comm, land)
	if err != nil {
		return err
	}

	st := w.state
	for k, i := range st.owned {
		if st.disabled[k] {
			continue
		}
		alone := w.model.Alone(i)
		pen, scales := st.penalties[k], st.scales[k]
		for t := range pen {
			pen[t] = alone * scales[t] / scaleMin
		}
		for j, t := range land.Times {
			current, totals := land.Current[j], land.Totals[j]
			if changes[t].Contains(i) {
				pen[t-1] = w.model.Marginal(w.model.Down(current, totals, i), current)
			} else {
				pen[t-1] = w.model.Marginal(current, w.model.Up(current, totals, i))
			}
		}
	}
	return nil
}
