package realtime

// patternSet is an immutable, append-only set of *Pattern values. Like
// timetableSet, it is copy-on-write: withAdded never mutates the
// receiver, it returns a set with the addition applied (or the receiver
// itself, unchanged, if pattern is already a member) so entries already
// shared with a published Snapshot's patternsForStop map are never
// touched in place.
type patternSet struct {
	patterns []*Pattern
}

// contains reports whether pattern is already a member.
func (s *patternSet) contains(pattern *Pattern) bool {
	if s == nil {
		return false
	}
	for _, p := range s.patterns {
		if p == pattern {
			return true
		}
	}
	return false
}

// withAdded returns a set containing pattern. Membership is idempotent
// (I3): adding a pattern already present returns the receiver unchanged.
func (s *patternSet) withAdded(pattern *Pattern) *patternSet {
	if s.contains(pattern) {
		return s
	}
	next := &patternSet{patterns: make([]*Pattern, 0, s.len()+1)}
	if s != nil {
		next.patterns = append(next.patterns, s.patterns...)
	}
	next.patterns = append(next.patterns, pattern)
	return next
}

func (s *patternSet) len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// slice returns the members as a plain, caller-owned slice.
func (s *patternSet) slice() []*Pattern {
	if s == nil {
		return nil
	}
	result := make([]*Pattern, len(s.patterns))
	copy(result, s.patterns)
	return result
}
