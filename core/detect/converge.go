package detect

import (
	"context"

	"github.com/huangsam/simchange/schema"
)

// checkConvergence records changes in the coordinator's history and tells
// every worker whether the run is over. An empty status means keep going.
func (w *worker) checkConvergence(ctx context.Context, changes schema.ChangeSet) (schema.RunStatus, error) {
	var status schema.RunStatus
	if w.comm.Rank() == coordinator {
		st := w.state
		st.history = append(st.history, changes.Clone())
		w.log.Infow("iteration done",
			"iteration", st.iter,
			"change_times", len(changes),
			"changes", changes.NumChanges(),
			"shift_merge", st.shiftMerge)
		status = convergenceStatus(st.history)
	}
	return broadcastValue(ctx, w.comm, status)
}

// convergenceStatus inspects the newest history entry: an empty change set
// ends the run, and so does a repeat of any earlier entry (fixed point or cycle).
func convergenceStatus(history []schema.ChangeSet) schema.RunStatus {
	latest := history[len(history)-1]
	if len(latest) == 0 {
		return schema.StatusEmpty
	}
	for _, prior := range history[:len(history)-1] {
		if prior.Equal(latest) {
			return schema.StatusConverged
		}
	}
	return ""
}
