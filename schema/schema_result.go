package schema

import "time"

// DetectionParams are the penalty and loop parameters of one run.
type DetectionParams struct {
	Lam      float64 `json:"lam" msgpack:"lam"`
	Alpha    float64 `json:"alpha" msgpack:"alpha"`
	Beta     float64 `json:"beta" msgpack:"beta"`
	LamMin   float64 `json:"lam_min" msgpack:"lam_min"`
	MaxIters int     `json:"max_iters" msgpack:"max_iters"`
}

// DetectionResult is the outcome of one detection run.
type DetectionResult struct {
	Changes    ChangeSet       `json:"changes" msgpack:"changes"`
	Status     RunStatus       `json:"status" msgpack:"status"`
	Iterations int             `json:"iterations" msgpack:"iterations"`
	Disabled   int             `json:"disabled_series" msgpack:"disabled"`
	Raised     int             `json:"raised_penalties" msgpack:"raised"`
	NumSeries  int             `json:"num_series" msgpack:"num_series"`
	NumFrames  int             `json:"num_frames" msgpack:"num_frames"`
	Params     DetectionParams `json:"params" msgpack:"params"`
	Elapsed    time.Duration   `json:"elapsed_ns" msgpack:"-"`
}

// Converged reports whether the run reached a fixed point or an empty change set.
func (r *DetectionResult) Converged() bool {
	return r.Status == StatusConverged || r.Status == StatusEmpty
}

// SweepEntry is one lambda of a multi-lambda sweep.
type SweepEntry struct {
	Lam    float64          `json:"lam"`
	Result *DetectionResult `json:"result"`
}

// SweepResult holds a full sweep and the selected entry, if any.
type SweepResult struct {
	Entries  []SweepEntry `json:"entries"`
	Selected int          `json:"selected"` // index into Entries, -1 when no target was given
}
