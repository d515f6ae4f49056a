package core

import (
	"context"
	"testing"

	"github.com/huangsam/simchange/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(lam float64, changes schema.ChangeSet) schema.SweepEntry {
	return schema.SweepEntry{Lam: lam, Result: &schema.DetectionResult{Changes: changes}}
}

func TestSelectByChangeTimes(t *testing.T) {
	entries := []schema.SweepEntry{
		entry(4, schema.ChangeSet{3: {0}, 7: {1}, 9: {0, 1}}),
		entry(8, schema.ChangeSet{3: {0}, 9: {0, 1}}),
		entry(16, schema.ChangeSet{9: {0, 1, 2, 3}}),
		entry(32, schema.ChangeSet{}),
	}

	tests := []struct {
		name     string
		target   int
		expected int
	}{
		{"exact", 2, 1},
		{"above all", 10, 0},
		{"zero", 0, 3},
		{"one", 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SelectByChangeTimes(entries, tt.target))
		})
	}
}

func TestSelectByChanges(t *testing.T) {
	entries := []schema.SweepEntry{
		entry(4, schema.ChangeSet{3: {0}, 7: {1}, 9: {0, 1}}), // 4 changes
		entry(8, schema.ChangeSet{3: {0}, 9: {0, 1}}),         // 3 changes
		entry(16, schema.ChangeSet{9: {0, 1, 2, 3}}),          // 4 changes
		entry(32, schema.ChangeSet{}),
	}
	assert.Equal(t, 0, SelectByChanges(entries, 4), "ties go to the earlier entry")
	assert.Equal(t, 1, SelectByChanges(entries, 3))
	assert.Equal(t, 3, SelectByChanges(entries, 1))
	assert.Equal(t, 0, SelectByChanges(entries, 100))
}

func TestSelectSkipsMissingResults(t *testing.T) {
	entries := []schema.SweepEntry{{Lam: 1}, entry(2, schema.ChangeSet{5: {0}})}
	assert.Equal(t, 1, SelectByChangeTimes(entries, 0))
	assert.Equal(t, -1, SelectByChangeTimes(nil, 3))
	assert.Equal(t, -1, SelectByChanges([]schema.SweepEntry{{Lam: 1}}, 3))
}

func TestSweepChanges(t *testing.T) {
	src := shiftedSource(t)

	t.Run("no target", func(t *testing.T) {
		cfg := testConfig(10)
		cfg.Lams = []float64{60, 10, 6}
		sweep, err := SweepChanges(context.Background(), cfg, src, nil)
		require.NoError(t, err)
		require.Len(t, sweep.Entries, 3)
		assert.Equal(t, -1, sweep.Selected)
		for i, lam := range cfg.Lams {
			assert.Equal(t, lam, sweep.Entries[i].Lam)
			assert.Equal(t, lam, sweep.Entries[i].Result.Params.Lam)
		}
		assert.Empty(t, sweep.Entries[0].Result.Changes)
		assert.Equal(t, schema.ChangeSet{10: {0}}, sweep.Entries[1].Result.Changes)
		assert.Equal(t, schema.ChangeSet{10: {0}}, sweep.Entries[2].Result.Changes)
		assert.Equal(t, 10.0, cfg.Lam, "entries run on copies of the config")
	})

	t.Run("target changes", func(t *testing.T) {
		cfg := testConfig(10)
		cfg.Lams = []float64{60, 10}
		cfg.TargetChanges = 1
		sweep, err := SweepChanges(context.Background(), cfg, src, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, sweep.Selected)
	})

	t.Run("missing lams", func(t *testing.T) {
		_, err := SweepChanges(context.Background(), testConfig(10), src, nil)
		assert.ErrorContains(t, err, "--lams")
	})

	t.Run("conflicting targets", func(t *testing.T) {
		cfg := testConfig(10)
		cfg.Lams = []float64{10}
		cfg.TargetTimes, cfg.TargetChanges = 1, 1
		_, err := SweepChanges(context.Background(), cfg, src, nil)
		assert.ErrorContains(t, err, "mutually exclusive")
	})

	t.Run("bad lam", func(t *testing.T) {
		cfg := testConfig(10)
		cfg.Lams = []float64{10, -1}
		_, err := SweepChanges(context.Background(), cfg, src, nil)
		assert.ErrorContains(t, err, "sweep failed at lam -1")
	})
}
