package repository

import "sort"

// Diff describes how one cycle's timetable changed relative to another, so
// the notification collaborator can publish incremental calendar updates
// instead of full resends.
type Diff struct {
	Added   []Entry `json:"added"`
	Removed []Entry `json:"removed"`
	Moved   []Move  `json:"moved"`
}

// Move is a section present in both schedules with a different slot, room,
// or faculty.
type Move struct {
	SectionID string `json:"sectionId"`
	From      Entry  `json:"from"`
	To        Entry  `json:"to"`
}

// ComputeDiff compares two committed schedules by section id.
func ComputeDiff(from, to *Committed) *Diff {
	before := make(map[string]Entry, len(from.Entries))
	for _, e := range from.Entries {
		before[e.SectionID] = e
	}
	after := make(map[string]Entry, len(to.Entries))
	for _, e := range to.Entries {
		after[e.SectionID] = e
	}

	diff := &Diff{}
	for id, e := range after {
		old, existed := before[id]
		switch {
		case !existed:
			diff.Added = append(diff.Added, e)
		case old != e:
			diff.Moved = append(diff.Moved, Move{SectionID: id, From: old, To: e})
		}
	}
	for id, e := range before {
		if _, still := after[id]; !still {
			diff.Removed = append(diff.Removed, e)
		}
	}

	sort.Slice(diff.Added, func(i, j int) bool { return diff.Added[i].SectionID < diff.Added[j].SectionID })
	sort.Slice(diff.Removed, func(i, j int) bool { return diff.Removed[i].SectionID < diff.Removed[j].SectionID })
	sort.Slice(diff.Moved, func(i, j int) bool { return diff.Moved[i].SectionID < diff.Moved[j].SectionID })
	return diff
}
