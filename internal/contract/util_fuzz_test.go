package contract

import (
	"slices"
	"testing"
)

// FuzzParseGroups checks that accepted group specs produce sorted, unique, non-empty groups.
func FuzzParseGroups(f *testing.F) {
	for _, seed := range []string{"0-4;5,7", "", "1,1,1", "3-1", "0-2;;4", "a-b", "9-12,1"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, spec string) {
		if len(spec) > 64 {
			return
		}
		groups, err := ParseGroups(spec)
		if err != nil {
			return
		}
		for _, g := range groups {
			if len(g) == 0 {
				t.Fatalf("empty group from %q", spec)
			}
			if !slices.IsSorted(g) || len(slices.Compact(slices.Clone(g))) != len(g) {
				t.Fatalf("group %v from %q is not sorted and unique", g, spec)
			}
		}
	})
}
