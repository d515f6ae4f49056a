package detect

import (
	"context"

	"github.com/huangsam/simchange/core/agg"
	"github.com/huangsam/simchange/schema"
)

// detectLocal runs the oracle on every owned, enabled series. In iteration 0 a
// series without breakpoints is disabled for the rest of the run.
func (w *worker) detectLocal() error {
	st := w.state
	for k, i := range st.owned {
		var interior []int
		if !st.disabled[k] {
			bps, err := w.params.Oracle.FindChanges(st.series[k], st.penalties[k])
			if err != nil {
				return &OracleError{Series: i, Err: err}
			}
			if st.iter == 0 && len(bps) == 0 {
				st.disabled[k] = true
			}
			interior = bps
		}
		st.breakpoints[k] = withSentinels(interior, w.frames)
	}
	return nil
}

// aggregate unions the local breakpoints of every worker at the coordinator
// and hands each worker its own copy of the merged ChangeSet.
func (w *worker) aggregate(ctx context.Context) (schema.ChangeSet, error) {
	st := w.state
	local := agg.Collect(st.owned, st.breakpoints, w.frames)
	parts, err := gatherValue(ctx, w.comm, local)
	if err != nil {
		return nil, err
	}

	var merged schema.ChangeSet
	if w.comm.Rank() == coordinator {
		merged = agg.Merge(parts...)
	}
	merged, err = broadcastValue(ctx, w.comm, merged)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		merged = schema.ChangeSet{}
	}
	return merged, nil
}
