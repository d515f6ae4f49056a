package detect

import (
	"math"
	"testing"

	"github.com/huangsam/simchange/core/algo"
	"github.com/huangsam/simchange/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func estimatorWorker(t *testing.T, p Params, numSeries, frames int, owned []int) *worker {
	t.Helper()
	p = p.withDefaults()
	model, err := algo.NewGroupPenalty(p.Lam, p.Alpha, p.Beta, p.Groups, numSeries)
	require.NoError(t, err)
	return newWorker(NewLocalGroup(1).Comm(0), model, p, frames, owned)
}

func TestSeedPenalties(t *testing.T) {
	w := estimatorWorker(t, params(10), 2, 20, []int{0, 1})
	w.seedPenalties()
	st := w.state

	assert.Equal(t, 0, st.raised)
	for k := range st.owned {
		require.Len(t, st.penalties[k], 19)
		for tm, pen := range st.penalties[k] {
			scale := st.scales[k][tm]
			assert.GreaterOrEqual(t, scale, scaleMin)
			assert.Less(t, scale, scaleMax)
			assert.InDelta(t, 10*scale, pen, 1e-12)
		}
	}
	assert.NotEqual(t, st.scales[0], st.scales[1], "series draw from their own generators")
}

func TestSeedPenaltiesRaisesToFloor(t *testing.T) {
	w := estimatorWorker(t, params(5), 2, 20, []int{0, 1})
	w.seedPenalties()
	st := w.state

	assert.Equal(t, 2*19, st.raised)
	for k := range st.owned {
		for tm, pen := range st.penalties[k] {
			assert.InDelta(t, schema.DefaultLamMin*st.scales[k][tm], pen, 1e-12)
		}
	}

	p := params(5)
	p.LamMin = 0
	w = estimatorWorker(t, p, 2, 20, []int{0, 1})
	w.seedPenalties()
	assert.Equal(t, 0, w.state.raised)
}

func TestSeedPenaltiesFollowSeeds(t *testing.T) {
	p := params(10)
	p.Seeds = []uint64{7, 7}
	w := estimatorWorker(t, p, 2, 20, []int{0, 1})
	w.seedPenalties()
	assert.Equal(t, w.state.scales[0], w.state.scales[1])

	// a worker owning only series 1 draws the same values as a worker owning both
	single := estimatorWorker(t, params(10), 2, 20, []int{1})
	single.seedPenalties()
	both := estimatorWorker(t, params(10), 2, 20, []int{0, 1})
	both.seedPenalties()
	assert.Equal(t, both.state.scales[1], single.state.scales[0])
}

func TestBuildLandscape(t *testing.T) {
	p := params(10)
	p.Groups = [][]int{{0, 1, 2}, {2, 3}}
	w := estimatorWorker(t, p, 4, 30, []int{0, 1, 2, 3})

	land := w.buildLandscape(schema.ChangeSet{5: {0, 2}, 17: {3}})
	assert.Equal(t, []int{5, 17}, land.Times)
	assert.Equal(t, [][]float64{{2, 1}, {0, 1}}, land.Totals)
	assert.Equal(t, []float64{3, 1}, land.Current)

	empty := w.buildLandscape(schema.ChangeSet{})
	assert.Empty(t, empty.Times)
}

func TestUpdatePenalties(t *testing.T) {
	const lam, alpha = 10.0, 0.5
	p := params(lam)
	p.Alpha = alpha
	w := estimatorWorker(t, p, 3, 20, []int{0, 1, 2})
	w.seedPenalties()
	st := w.state
	st.disabled[2] = true
	frozen := append([]float64(nil), st.penalties[2]...)

	require.NoError(t, w.updatePenalties(t.Context(), schema.ChangeSet{10: {0}}))

	// series 0 is the only member at 10: removing it saves the whole cost
	assert.InDelta(t, lam, st.penalties[0][9], 1e-12)
	// series 1 would join it
	assert.InDelta(t, lam*(math.Sqrt(2)-1), st.penalties[1][9], 1e-12)
	// elsewhere the stand-alone cost comes back without the iteration-0 discount
	for _, k := range []int{0, 1} {
		for tm, pen := range st.penalties[k] {
			if tm == 9 {
				continue
			}
			assert.InDelta(t, lam*st.scales[k][tm]/scaleMin, pen, 1e-12)
		}
	}
	assert.Equal(t, frozen, st.penalties[2])
}
