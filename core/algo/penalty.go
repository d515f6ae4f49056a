package algo

import (
	"errors"
	"fmt"
	"math"

	"github.com/huangsam/simchange/schema"
)

// ErrGroupIndex is returned when a group references a series outside [0, numSeries).
var ErrGroupIndex = errors.New("group index out of range")

// GroupPenalty is the complexity cost of a set S of simultaneously changed series:
//
//	p(S) = lam * (sum over groups G of |S ∩ G|^beta)^alpha
//
// Small alpha discounts changes spread across several groups. Small beta does
// the same inside one group.
type GroupPenalty struct {
	Lam   float64
	Alpha float64
	Beta  float64

	groups    [][]int
	member    [][]int // member[i] lists the groups containing series i
	numSeries int
}

// NewGroupPenalty builds the penalty model. A nil or empty groups slice means
// one group holding every series.
func NewGroupPenalty(lam, alpha, beta float64, groups [][]int, numSeries int) (*GroupPenalty, error) {
	if len(groups) == 0 {
		all := make([]int, numSeries)
		for i := range all {
			all[i] = i
		}
		groups = [][]int{all}
	}

	gp := &GroupPenalty{
		Lam:       lam,
		Alpha:     alpha,
		Beta:      beta,
		groups:    make([][]int, len(groups)),
		member:    make([][]int, numSeries),
		numSeries: numSeries,
	}
	for g, group := range groups {
		set := schema.NewSeriesSet(group...)
		for _, i := range set {
			if i < 0 || i >= numSeries {
				return nil, fmt.Errorf("%w: group %d has index %d, want [0,%d)", ErrGroupIndex, g, i, numSeries)
			}
			gp.member[i] = append(gp.member[i], g)
		}
		gp.groups[g] = set
	}
	return gp, nil
}

// NumGroups returns the number of groups.
func (gp *GroupPenalty) NumGroups() int { return len(gp.groups) }

// NumSeries returns the number of series the model was built for.
func (gp *GroupPenalty) NumSeries() int { return gp.numSeries }

// Group returns the members of group g.
func (gp *GroupPenalty) Group(g int) []int { return gp.groups[g] }

// Memberships returns the groups containing series i.
func (gp *GroupPenalty) Memberships(i int) []int { return gp.member[i] }

// Aggregate returns sum over groups of |S ∩ G|^beta.
func (gp *GroupPenalty) Aggregate(set schema.SeriesSet) float64 {
	counts := make([]float64, len(gp.groups))
	for _, i := range set {
		for _, g := range gp.member[i] {
			counts[g]++
		}
	}
	return gp.Current(counts)
}

// Current returns sum over groups of totals[g]^beta.
func (gp *GroupPenalty) Current(totals []float64) float64 {
	sum := 0.0
	for _, c := range totals {
		sum += math.Pow(c, gp.Beta)
	}
	return sum
}

// Cost evaluates p(S) exactly.
func (gp *GroupPenalty) Cost(set schema.SeriesSet) float64 {
	return gp.Lam * math.Pow(gp.Aggregate(set), gp.Alpha)
}

// MergeDelta returns p(a ∪ b) - p(a) - p(b). It is never positive for
// sub-additive parameters, and its magnitude is the saving of reporting
// both sets at one time.
func (gp *GroupPenalty) MergeDelta(a, b schema.SeriesSet) float64 {
	return gp.Cost(a.Union(b)) - gp.Cost(a) - gp.Cost(b)
}

// Alone returns the cost of series i changing when no other series does.
func (gp *GroupPenalty) Alone(i int) float64 {
	return gp.Lam * math.Pow(float64(len(gp.member[i])), gp.Alpha)
}

// Up returns the aggregate after adding series i, given per-group totals at one time.
func (gp *GroupPenalty) Up(current float64, totals []float64, i int) float64 {
	for _, g := range gp.member[i] {
		current += math.Pow(totals[g]+1, gp.Beta) - math.Pow(totals[g], gp.Beta)
	}
	return current
}

// Down returns the aggregate after removing series i, floored at zero.
func (gp *GroupPenalty) Down(current float64, totals []float64, i int) float64 {
	for _, g := range gp.member[i] {
		current += math.Pow(math.Max(totals[g]-1, 0), gp.Beta) - math.Pow(totals[g], gp.Beta)
	}
	return math.Max(current, 0)
}

// Marginal returns lam * (to^alpha - from^alpha).
func (gp *GroupPenalty) Marginal(from, to float64) float64 {
	return gp.Lam * (math.Pow(to, gp.Alpha) - math.Pow(from, gp.Alpha))
}
