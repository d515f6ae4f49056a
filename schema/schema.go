// Package schema has the models and constants shared by all parts of simchange.
package schema

// SeriesSet is an ascending, duplicate-free list of series indices.
type SeriesSet []int

// ChangeSet maps a change time in [1, T-1] to the series that changed at that time.
// Times with an empty set are never present.
type ChangeSet map[int]SeriesSet

// LabeledChange is a change time translated to series labels.
type LabeledChange struct {
	Time   int      `json:"time"`
	Series []int    `json:"series"`
	Labels []string `json:"labels"`
}
