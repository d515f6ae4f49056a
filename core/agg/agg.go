// Package agg has aggregation logic for per-series breakpoints.
package agg

import (
	"github.com/huangsam/simchange/core/algo"
	"github.com/huangsam/simchange/schema"
	"gonum.org/v1/gonum/mat"
)

// Collect builds a partial ChangeSet from the breakpoint lists of the owned series.
// Sentinels (0 and frames) are skipped, so they never travel as keys.
func Collect(owned []int, breakpoints [][]int, frames int) schema.ChangeSet {
	out := schema.ChangeSet{}
	for k, i := range owned {
		for _, t := range breakpoints[k] {
			if t > 0 && t < frames {
				out.Add(t, i)
			}
		}
	}
	return out
}

// Merge unions partial change sets key by key. The result does not depend on
// the order of parts.
func Merge(parts ...schema.ChangeSet) schema.ChangeSet {
	out := schema.ChangeSet{}
	for _, part := range parts {
		for t, set := range part {
			if len(set) == 0 {
				continue
			}
			out[t] = out[t].Union(set)
		}
	}
	return out
}

// GroupTotals counts, for every group and change time, how many group members
// changed at that time. Rows are groups and columns follow times.
func GroupTotals(gp *algo.GroupPenalty, changes schema.ChangeSet, times []int) *mat.Dense {
	if len(times) == 0 {
		return nil
	}
	membership := mat.NewDense(gp.NumGroups(), gp.NumSeries(), nil)
	for g := range gp.NumGroups() {
		for _, i := range gp.Group(g) {
			membership.Set(g, i, 1)
		}
	}
	indicator := mat.NewDense(gp.NumSeries(), len(times), nil)
	for k, t := range times {
		for _, i := range changes[t] {
			indicator.Set(i, k, 1)
		}
	}

	var totals mat.Dense
	totals.Mul(membership, indicator)
	return &totals
}
