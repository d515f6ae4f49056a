// Package detect runs the iterative simultaneous changepoint search over a
// lockstep group of workers.
package detect

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/huangsam/simchange/core/algo"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// worker is one rank of a run. It owns the series assigned to its rank.
type worker struct {
	comm   Comm
	model  *algo.GroupPenalty
	params Params
	frames int
	all    schema.SeriesSet
	log    *zap.SugaredLogger
	state  *runState
}

// counters are per-worker tallies reduced at the coordinator.
type counters struct {
	Raised   int `msgpack:"raised"`
	Disabled int `msgpack:"disabled"`
}

// Detect finds simultaneous changes across every series of src.
// The result is identical for any number of workers.
func Detect(ctx context.Context, src contract.SeriesSource, params Params) (*schema.DetectionResult, error) {
	start := time.Now()
	params = params.withDefaults()
	numSeries, numFrames := src.Shape()
	if err := params.validate(numSeries, numFrames); err != nil {
		return nil, err
	}
	model, err := algo.NewGroupPenalty(params.Lam, params.Alpha, params.Beta, params.Groups, numSeries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	owned, err := algo.RoundRobin(numSeries, params.Workers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	group := NewLocalGroup(params.Workers)
	g, gctx := errgroup.WithContext(ctx)
	var result *schema.DetectionResult
	for rank := range params.Workers {
		w := newWorker(group.Comm(rank), model, params, numFrames, owned[rank])
		g.Go(func() error {
			res, err := w.run(gctx, src)
			if err != nil {
				return err
			}
			if rank == coordinator {
				result = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.NumSeries = numSeries
	result.NumFrames = numFrames
	result.Params = params.Summary()
	result.Elapsed = time.Since(start)
	return result, nil
}

func newWorker(comm Comm, model *algo.GroupPenalty, params Params, frames int, owned []int) *worker {
	all := make(schema.SeriesSet, model.NumSeries())
	for i := range all {
		all[i] = i
	}
	w := &worker{
		comm:   comm,
		model:  model,
		params: params,
		frames: frames,
		all:    all,
		log:    params.Logger,
		state:  newRunState(owned, frames),
	}
	if comm.Rank() != coordinator {
		w.log = zap.NewNop().Sugar()
	}
	return w
}

// load reads the owned series from src.
func (w *worker) load(src contract.SeriesSource) error {
	st := w.state
	for k, i := range st.owned {
		series, err := src.Series(i)
		if err != nil {
			return fmt.Errorf("failed to read series %d: %w", i, err)
		}
		if len(series) != w.frames {
			return fmt.Errorf("%w: series %d has %d frames, want %d", ErrConfiguration, i, len(series), w.frames)
		}
		for t, x := range series {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: series %d has a non-finite value at frame %d", ErrConfiguration, i, t)
			}
		}
		st.series[k] = series
	}
	return nil
}

// run executes the iteration loop. Only the coordinator returns a result.
func (w *worker) run(ctx context.Context, src contract.SeriesSource) (*schema.DetectionResult, error) {
	if err := w.load(src); err != nil {
		return nil, err
	}
	st := w.state
	w.seedPenalties()
	seeded, err := gatherValue(ctx, w.comm, counters{Raised: st.raised})
	if err != nil {
		return nil, err
	}
	if w.comm.Rank() == coordinator {
		w.log.Infow("seeded penalties", "series", len(w.all), "frames", w.frames, "raised", sumCounters(seeded).Raised)
	}

	var changes schema.ChangeSet
	status := schema.StatusMaxIters
	for st.iter = 0; st.iter < w.params.MaxIters; st.iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := w.detectLocal(); err != nil {
			return nil, err
		}
		if changes, err = w.aggregate(ctx); err != nil {
			return nil, err
		}
		if w.refinementActive(len(changes)) {
			if err := w.refine(ctx, changes); err != nil {
				return nil, err
			}
		}
		st.prevTimes = len(changes)

		done, err := w.checkConvergence(ctx, changes)
		if err != nil {
			return nil, err
		}
		if done != "" {
			status = done
			break
		}
		if st.iter+1 < w.params.MaxIters {
			if err := w.updatePenalties(ctx, changes); err != nil {
				return nil, err
			}
		}
	}
	iterations := min(st.iter+1, w.params.MaxIters)

	final, err := gatherValue(ctx, w.comm, counters{Raised: st.raised, Disabled: st.numDisabled()})
	if err != nil || w.comm.Rank() != coordinator {
		return nil, err
	}
	totals := sumCounters(final)
	w.log.Infow("detection finished", "status", status, "iterations", iterations, "change_times", len(changes), "disabled", totals.Disabled)
	return &schema.DetectionResult{
		Changes:    changes,
		Status:     status,
		Iterations: iterations,
		Disabled:   totals.Disabled,
		Raised:     totals.Raised,
	}, nil
}

func sumCounters(parts []counters) counters {
	var out counters
	for _, c := range parts {
		out.Raised += c.Raised
		out.Disabled += c.Disabled
	}
	return out
}
