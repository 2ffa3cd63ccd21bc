package models

import "sort"

// EntryChange describes a location present in both runs whose metadata differs.
type EntryChange struct {
	Loc    string   `json:"loc"`
	Before URLEntry `json:"before"`
	After  URLEntry `json:"after"`
}

// RunDiff is the difference between two generated URL sets.
type RunDiff struct {
	Added   []string      `json:"added"`
	Removed []string      `json:"removed"`
	Changed []EntryChange `json:"changed"`
}

// Empty reports whether the two sets were identical.
func (d RunDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffEntries compares two URL sets by location. Timestamps are not compared.
func DiffEntries(before, after []URLEntry) RunDiff {
	old := make(map[string]URLEntry, len(before))
	for _, e := range before {
		old[e.Loc] = e
	}

	diff := RunDiff{Added: []string{}, Removed: []string{}, Changed: []EntryChange{}}
	seen := make(map[string]struct{}, len(after))
	for _, e := range after {
		seen[e.Loc] = struct{}{}
		prev, ok := old[e.Loc]
		if !ok {
			diff.Added = append(diff.Added, e.Loc)
			continue
		}
		if prev.ChangeFreq != e.ChangeFreq || prev.Priority != e.Priority {
			diff.Changed = append(diff.Changed, EntryChange{Loc: e.Loc, Before: prev, After: e})
		}
	}
	for _, e := range before {
		if _, ok := seen[e.Loc]; !ok {
			diff.Removed = append(diff.Removed, e.Loc)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool { return diff.Changed[i].Loc < diff.Changed[j].Loc })
	return diff
}
