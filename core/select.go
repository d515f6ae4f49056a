package core

import "github.com/huangsam/simchange/schema"

// SelectByChangeTimes returns the index of the entry whose number of change times
// is closest to target. Ties go to the earlier entry. It returns -1 for no entries.
func SelectByChangeTimes(entries []schema.SweepEntry, target int) int {
	return selectClosest(entries, target, func(r *schema.DetectionResult) int {
		return len(r.Changes)
	})
}

// SelectByChanges returns the index of the entry whose total number of
// (time, series) changes is closest to target. Ties go to the earlier entry.
func SelectByChanges(entries []schema.SweepEntry, target int) int {
	return selectClosest(entries, target, func(r *schema.DetectionResult) int {
		return r.Changes.NumChanges()
	})
}

func selectClosest(entries []schema.SweepEntry, target int, count func(*schema.DetectionResult) int) int {
	best, bestDist := -1, 0
	for i, e := range entries {
		if e.Result == nil {
			continue
		}
		dist := count(e.Result) - target
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}
