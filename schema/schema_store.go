package schema

import "time"

// RunRecord represents a row from the simchange_runs table.
type RunRecord struct {
	RunID         int64
	RunUUID       string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	NumSeries     int32
	NumFrames     int32
	Lam           float64
	Alpha         float64
	Beta          float64
	LamMin        float64
	Iterations    *int32
	Status        *string
	ChangeTimes   *int32
	TotalChanges  *int32
	ConfigParams  *string
}

// ChangeRecord represents a row from the simchange_changes table.
type ChangeRecord struct {
	RunID       int64
	ChangeTime  int32
	SeriesIndex int32
	SeriesLabel string
}
