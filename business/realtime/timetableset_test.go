package realtime

import (
	"testing"

	"github.com/matryer/is"
)

func TestTimetableSet_WithReplaced_LeavesReceiverUntouched(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1")
	dateA := NewServiceDate(dayAt(2026, 7, 30))
	dateB := NewServiceDate(dayAt(2026, 7, 31))

	ttA := copyOf(pattern.ScheduledTimetable, dateA)
	original := (&timetableSet{}).withReplaced(ttA)

	ttB := copyOf(pattern.ScheduledTimetable, dateB)
	next := original.withReplaced(ttB)

	is.Equal(len(original.entries), 1)
	is.Equal(len(next.entries), 2)
	is.True(original.find(dateB) == nil)
	is.True(next.find(dateB) == ttB)
}

func TestTimetableSet_WithReplaced_SortedByDate(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1")
	late := copyOf(pattern.ScheduledTimetable, NewServiceDate(dayAt(2026, 8, 1)))
	early := copyOf(pattern.ScheduledTimetable, NewServiceDate(dayAt(2026, 7, 1)))

	set := (&timetableSet{}).withReplaced(late).withReplaced(early)

	is.Equal(len(set.entries), 2)
	is.True(set.entries[0].ServiceDate().Before(*set.entries[1].ServiceDate()))
}

func TestTimetableSet_WithoutBeforeOrOn(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1")
	past := copyOf(pattern.ScheduledTimetable, NewServiceDate(dayAt(2026, 1, 1)))
	future := copyOf(pattern.ScheduledTimetable, NewServiceDate(dayAt(2026, 12, 1)))
	set := (&timetableSet{}).withReplaced(past).withReplaced(future)

	next, removed := set.withoutBeforeOrOn(NewServiceDate(dayAt(2026, 6, 1)))
	is.True(removed)
	is.Equal(len(next.entries), 1)
	is.True(next.entries[0] == future)

	emptied, removedAgain := next.withoutBeforeOrOn(NewServiceDate(dayAt(2027, 1, 1)))
	is.True(removedAgain)
	is.True(emptied == nil)
}

func TestPatternSet_WithAdded_Idempotent(t *testing.T) {
	is := is.New(t)
	p1 := testPattern("f", "p1", "r1", "s1")
	p2 := testPattern("f", "p2", "r1", "s1")

	var set *patternSet
	set = set.withAdded(p1)
	same := set.withAdded(p1)
	is.True(same == set)

	withBoth := set.withAdded(p2)
	is.Equal(withBoth.len(), 2)
	is.Equal(set.len(), 1)
}
