// Package contract provides interfaces and shared utilities for the simchange CLI's internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/simchange/schema"
)

// SeriesSource provides J series of T frames each.
// This allows the engine to read series lazily from any backing store.
type SeriesSource interface {
	// Shape returns the number of series and the number of frames per series.
	Shape() (numSeries, numFrames int)

	// Series returns the values of series i. Callers must not modify the slice.
	Series(i int) ([]float64, error)
}

// LabeledSource is a SeriesSource that also names its series.
type LabeledSource interface {
	SeriesSource
	Labels() []string
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetResultStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking detection runs and their changes.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, numSeries, numFrames int, params schema.DetectionParams, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, result *schema.DetectionResult) error

	// RecordChanges stores one row per (time, series) pair
	RecordChanges(runID int64, changes []schema.LabeledChange) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunsStatus, error)

	// GetAllRuns returns every tracked run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllChanges returns every recorded change ordered by run, time and series
	GetAllChanges() ([]schema.ChangeRecord, error)

	// Close closes the underlying connection
	Close() error
}

// ResultWriter renders detection results in the configured output format.
type ResultWriter interface {
	WriteDetection(result *schema.DetectionResult, labels []string, cfg *Config, duration time.Duration) error
	WriteSweep(sweep *schema.SweepResult, labels []string, cfg *Config, duration time.Duration) error
}
