package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSeriesSet(t *testing.T) {
	assert.Equal(t, SeriesSet{1, 3, 7}, NewSeriesSet(7, 1, 3, 1, 7))
	assert.Empty(t, NewSeriesSet())
}

func TestSeriesSetUnion(t *testing.T) {
	tests := []struct {
		a, b, want SeriesSet
	}{
		{SeriesSet{0, 2}, SeriesSet{1, 2, 5}, SeriesSet{0, 1, 2, 5}},
		{nil, SeriesSet{4}, SeriesSet{4}},
		{SeriesSet{1, 2}, nil, SeriesSet{1, 2}},
		{SeriesSet{3}, SeriesSet{3}, SeriesSet{3}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.Union(tt.b))
		assert.Equal(t, tt.want, tt.b.Union(tt.a))
	}
}

func TestSeriesSetContains(t *testing.T) {
	set := NewSeriesSet(2, 4, 9)
	assert.True(t, set.Contains(4))
	assert.False(t, set.Contains(5))
	assert.False(t, SeriesSet(nil).Contains(0))
}

func TestChangeSetAddAndTimes(t *testing.T) {
	c := ChangeSet{}
	c.Add(10, 3)
	c.Add(4, 1)
	c.Add(10, 0)
	c.Add(10, 3)

	assert.Equal(t, []int{4, 10}, c.Times())
	assert.Equal(t, SeriesSet{0, 3}, c[10])
	assert.Equal(t, 3, c.NumChanges())
}

func TestChangeSetEqual(t *testing.T) {
	a := ChangeSet{5: {0, 1}, 9: {2}}

	assert.True(t, a.Equal(a.Clone()))
	// same sizes, different members
	assert.False(t, a.Equal(ChangeSet{5: {0, 2}, 9: {1}}))
	// same members, different keys
	assert.False(t, a.Equal(ChangeSet{5: {0, 1}, 8: {2}}))
	assert.True(t, ChangeSet{}.Equal(nil))
}

func TestChangeSetCloneIsDeep(t *testing.T) {
	a := ChangeSet{3: {1, 2}}
	b := a.Clone()
	b[3][0] = 99
	assert.Equal(t, SeriesSet{1, 2}, a[3])
}

func TestChangeSetFilter(t *testing.T) {
	c := ChangeSet{3: {0, 1}, 7: {2}}
	got := c.Filter(func(i int) bool { return i != 2 })
	assert.Equal(t, ChangeSet{3: {0, 1}}, got)
}

func TestChangeSetLabel(t *testing.T) {
	c := ChangeSet{12: {1}, 4: {0, 2}}
	got := c.Label([]string{"CA-CB", "", "NZ-OE"})

	assert.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Time)
	assert.Equal(t, []string{"CA-CB", "NZ-OE"}, got[0].Labels)
	assert.Equal(t, []string{"1"}, got[1].Labels)
}

func TestSeriesSetWithout(t *testing.T) {
	set := SeriesSet{1, 4, 6}
	assert.Equal(t, SeriesSet{1, 6}, set.Without(4))
	assert.Equal(t, SeriesSet{1, 4, 6}, set.Without(5))
	assert.Equal(t, SeriesSet{1, 4, 6}, set)
}
