package detect

import (
	"github.com/huangsam/simchange/schema"
)

// runState is the per-run context of one worker. Penalty vectors and
// breakpoints are indexed by position in owned, never by series index, and no
// other worker touches them. history lives at the coordinator only.
type runState struct {
	iter  int
	owned []int

	series      [][]float64
	penalties   [][]float64 // penalties[k][t-1] is the cost of a breakpoint at t
	scales      [][]float64 // iteration-0 draws in [0.9, 1)
	breakpoints [][]int     // bracketed by 0 and the frame count
	disabled    []bool

	shiftMerge bool
	prevTimes  int
	raised     int

	history []schema.ChangeSet
}

func newRunState(owned []int, frames int) *runState {
	n := len(owned)
	return &runState{
		owned:       owned,
		series:      make([][]float64, n),
		penalties:   make([][]float64, n),
		scales:      make([][]float64, n),
		breakpoints: make([][]int, n),
		disabled:    make([]bool, n),
		prevTimes:   frames - 2,
	}
}

// withSentinels brackets interior breakpoints with 0 and frames.
func withSentinels(interior []int, frames int) []int {
	out := make([]int, 0, len(interior)+2)
	out = append(out, 0)
	out = append(out, interior...)
	return append(out, frames)
}

// numDisabled counts the owned series frozen after iteration 0.
func (st *runState) numDisabled() int {
	n := 0
	for _, d := range st.disabled {
		if d {
			n++
		}
	}
	return n
}
