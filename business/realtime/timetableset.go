package realtime

import "sort"

// timetableSet is the ordered-by-service-date set of realtime Timetables
// a TimetableBuffer or Snapshot holds for one pattern. Every member has a
// distinct, non-null service date (invariant I1) — the baseline
// scheduled timetable is never a member, it lives on Pattern instead.
//
// timetableSet is copy-on-write at the slice level: whenever one of its
// members is replaced, withReplaced returns a brand new timetableSet
// rather than mutating entries in place, so a Snapshot that already
// holds a reference to the old set is unaffected (spec.md §9).
type timetableSet struct {
	entries []*Timetable
}

// find returns the first member valid for date, or nil if none matches.
func (s *timetableSet) find(date ServiceDate) *Timetable {
	if s == nil {
		return nil
	}
	for _, tt := range s.entries {
		if tt.IsValidFor(date) {
			return tt
		}
	}
	return nil
}

// withReplaced returns a new timetableSet with any existing member for
// replacement's service date removed and replacement added, keeping the
// set sorted by service date. The receiver is left untouched.
func (s *timetableSet) withReplaced(replacement *Timetable) *timetableSet {
	date := *replacement.ServiceDate()
	next := &timetableSet{}
	if s != nil {
		next.entries = make([]*Timetable, 0, len(s.entries)+1)
		for _, tt := range s.entries {
			if !tt.IsValidFor(date) {
				next.entries = append(next.entries, tt)
			}
		}
	}
	next.entries = append(next.entries, replacement)
	sort.Slice(next.entries, func(i, j int) bool {
		return next.entries[i].ServiceDate().Before(*next.entries[j].ServiceDate())
	})
	return next
}

// withoutBeforeOrOn returns a new timetableSet retaining only members
// whose service date is strictly after cutoff, and whether anything was
// dropped. A nil result means every member was purged.
func (s *timetableSet) withoutBeforeOrOn(cutoff ServiceDate) (result *timetableSet, removed bool) {
	if s == nil {
		return nil, false
	}
	next := &timetableSet{}
	for _, tt := range s.entries {
		if cutoff.Before(*tt.ServiceDate()) {
			next.entries = append(next.entries, tt)
		} else {
			removed = true
		}
	}
	if len(next.entries) == 0 {
		return nil, removed
	}
	return next, removed
}

// clone performs a shallow copy: a fresh slice header referencing the
// same *Timetable pointers, used when a Snapshot's top-level map is
// cloned during commit (the members themselves are already frozen).
func (s *timetableSet) clone() *timetableSet {
	if s == nil {
		return nil
	}
	entries := make([]*Timetable, len(s.entries))
	copy(entries, s.entries)
	return &timetableSet{entries: entries}
}

// slice returns the members as a plain, caller-owned slice, for handing
// off to collaborators outside the package (e.g. TransitLayerUpdater)
// that must not depend on the unexported timetableSet type.
func (s *timetableSet) slice() []*Timetable {
	if s == nil {
		return nil
	}
	result := make([]*Timetable, len(s.entries))
	copy(result, s.entries)
	return result
}

func (s *timetableSet) freeze() {
	if s == nil {
		return
	}
	for _, tt := range s.entries {
		tt.freeze()
	}
}
