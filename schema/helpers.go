package schema

import (
	"slices"
	"strconv"
)

// NewSeriesSet builds a SeriesSet from indices in any order.
func NewSeriesSet(indices ...int) SeriesSet {
	set := slices.Clone(indices)
	slices.Sort(set)
	return slices.Compact(set)
}

// Contains reports whether i is in the set.
func (s SeriesSet) Contains(i int) bool {
	_, found := slices.BinarySearch(s, i)
	return found
}

// Union returns the sorted union of both sets.
func (s SeriesSet) Union(other SeriesSet) SeriesSet {
	out := make(SeriesSet, 0, len(s)+len(other))
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] < other[j]:
			out = append(out, s[i])
			i++
		case s[i] > other[j]:
			out = append(out, other[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	return append(out, other[j:]...)
}

// Without returns a copy of the set with i removed.
func (s SeriesSet) Without(i int) SeriesSet {
	out := make(SeriesSet, 0, len(s))
	for _, j := range s {
		if j != i {
			out = append(out, j)
		}
	}
	return out
}

// Equal reports whether both sets hold the same indices.
func (s SeriesSet) Equal(other SeriesSet) bool {
	return slices.Equal(s, other)
}

// Add records series i at time t.
func (c ChangeSet) Add(t, i int) {
	set := c[t]
	pos, found := slices.BinarySearch(set, i)
	if found {
		return
	}
	c[t] = slices.Insert(set, pos, i)
}

// Times returns the change times in ascending order.
func (c ChangeSet) Times() []int {
	times := make([]int, 0, len(c))
	for t := range c {
		times = append(times, t)
	}
	slices.Sort(times)
	return times
}

// NumChanges returns the total number of (time, series) pairs.
func (c ChangeSet) NumChanges() int {
	total := 0
	for _, set := range c {
		total += len(set)
	}
	return total
}

// Clone returns a deep copy.
func (c ChangeSet) Clone() ChangeSet {
	out := make(ChangeSet, len(c))
	for t, set := range c {
		out[t] = slices.Clone(set)
	}
	return out
}

// Equal compares keys and value sets, not just sizes.
func (c ChangeSet) Equal(other ChangeSet) bool {
	if len(c) != len(other) {
		return false
	}
	for t, set := range c {
		o, ok := other[t]
		if !ok || !set.Equal(o) {
			return false
		}
	}
	return true
}

// Filter keeps only the series accepted by keep, dropping times that become empty.
func (c ChangeSet) Filter(keep func(int) bool) ChangeSet {
	out := make(ChangeSet, len(c))
	for t, set := range c {
		var kept SeriesSet
		for _, i := range set {
			if keep(i) {
				kept = append(kept, i)
			}
		}
		if len(kept) > 0 {
			out[t] = kept
		}
	}
	return out
}

// Label translates the change set into time-ordered labeled changes.
// Indices without a label fall back to their decimal form.
func (c ChangeSet) Label(labels []string) []LabeledChange {
	out := make([]LabeledChange, 0, len(c))
	for _, t := range c.Times() {
		set := c[t]
		names := make([]string, len(set))
		for k, i := range set {
			names[k] = SeriesLabel(labels, i)
		}
		out = append(out, LabeledChange{Time: t, Series: slices.Clone(set), Labels: names})
	}
	return out
}

// SeriesLabel returns the label of series i, or its index when unlabeled.
func SeriesLabel(labels []string, i int) string {
	if i >= 0 && i < len(labels) && labels[i] != "" {
		return labels[i]
	}
	return strconv.Itoa(i)
}
