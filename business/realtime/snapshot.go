package realtime

// Snapshot is the frozen image produced by committing a TimetableBuffer.
// Every operation is safe to call from any number of reader goroutines
// concurrently: a Snapshot never mutates after TimetableBuffer.Commit
// returns it (I5).
type Snapshot struct {
	timetables            map[*Pattern]*timetableSet
	realtimeAddedPatterns map[TripIdAndServiceDate]*Pattern
	patternsForStop       map[FeedScopedId]*patternSet
	readOnly              bool
}

// Resolve returns the realtime-updated timetable for (pattern, date) if
// this snapshot has one; otherwise pattern.ScheduledTimetable. Identical
// semantics to TimetableBuffer.Resolve, but evaluated against frozen
// data — the result is stable for the Snapshot's entire lifetime (P1).
func (s *Snapshot) Resolve(pattern *Pattern, date ServiceDate) *Timetable {
	if tt := s.timetables[pattern].find(date); tt != nil {
		return tt
	}
	return pattern.ScheduledTimetable
}

// RealtimeAddedPattern returns the pattern a trip was moved to on a
// service date, or nil if no such reassignment exists in this snapshot.
func (s *Snapshot) RealtimeAddedPattern(tripId FeedScopedId, date ServiceDate) *Pattern {
	return s.realtimeAddedPatterns[TripIdAndServiceDate{TripId: tripId, ServiceDate: date}]
}

// HasRealtimeAddedPatterns reports whether this snapshot has any
// realtime-added-pattern assignments at all.
func (s *Snapshot) HasRealtimeAddedPatterns() bool {
	return len(s.realtimeAddedPatterns) > 0
}

// PatternsForStop returns every realtime-synthesized pattern that visits
// stop in this snapshot.
func (s *Snapshot) PatternsForStop(stop FeedScopedId) []*Pattern {
	return s.patternsForStop[stop].slice()
}

// IsEmpty reports whether this snapshot carries no realtime state at
// all: no timetables, no realtime-added patterns, no stop index entries.
func (s *Snapshot) IsEmpty() bool {
	return len(s.timetables) == 0 && len(s.realtimeAddedPatterns) == 0 && len(s.patternsForStop) == 0
}

// PatternCount returns the number of patterns carrying realtime
// timetables in this snapshot, for admin/introspection reporting.
func (s *Snapshot) PatternCount() int {
	return len(s.timetables)
}
