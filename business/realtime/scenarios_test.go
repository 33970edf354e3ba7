package realtime

import (
	"testing"

	"github.com/matryer/is"
)

// TestScenario_Baseline covers spec scenario 1: with no realtime updates
// applied, a snapshot resolves a pattern's scheduled timetable (P2).
func TestScenario_Baseline(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "A", "B")
	is.NoErr(pattern.ScheduledTimetable.AddTripTimes(&TripTimes{
		TripId: FeedScopedId{FeedId: "f", Id: "T1"},
		StopTimes: []StopTime{
			{StopSequence: 0, StopId: FeedScopedId{FeedId: "f", Id: "A"}, ArrivalSeconds: 36000, DepartureSeconds: 36000},
			{StopSequence: 1, StopId: FeedScopedId{FeedId: "f", Id: "B"}, ArrivalSeconds: 36600, DepartureSeconds: 36600},
		},
	}))
	source := NewSnapshotSource(Config{}, nil, nil)
	date := NewServiceDate(dayAt(2026, 6, 1))

	snapshot := source.CurrentSnapshot()
	resolved := snapshot.Resolve(pattern, date)
	is.True(resolved == pattern.ScheduledTimetable)

	i := resolved.TripIndex(FeedScopedId{FeedId: "f", Id: "T1"})
	is.Equal(resolved.TripTimes()[i].StopTimes[1].ArrivalSeconds, 36600)
}

// TestScenario_DelayIsolatedAcrossGenerations covers spec scenario 2 and
// P1 (isolation): a reader holding an old snapshot never observes a later
// write.
func TestScenario_DelayIsolatedAcrossGenerations(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "A", "B")
	is.NoErr(pattern.ScheduledTimetable.AddTripTimes(&TripTimes{
		TripId: FeedScopedId{FeedId: "f", Id: "T1"},
		StopTimes: []StopTime{
			{StopSequence: 0, StopId: FeedScopedId{FeedId: "f", Id: "A"}, ArrivalSeconds: 36000, DepartureSeconds: 36000},
			{StopSequence: 1, StopId: FeedScopedId{FeedId: "f", Id: "B"}, ArrivalSeconds: 36600, DepartureSeconds: 36600},
		},
	}))
	source := NewSnapshotSource(Config{}, nil, nil)
	date := NewServiceDate(dayAt(2026, 6, 1))

	oldSnapshot := source.CurrentSnapshot()

	is.NoErr(source.Buffer().Update(pattern, &TripTimes{
		TripId: FeedScopedId{FeedId: "f", Id: "T1"},
		StopTimes: []StopTime{
			{StopSequence: 0, StopId: FeedScopedId{FeedId: "f", Id: "A"}, ArrivalSeconds: 36000, DepartureSeconds: 36000},
			{StopSequence: 1, StopId: FeedScopedId{FeedId: "f", Id: "B"}, ArrivalSeconds: 36840, DepartureSeconds: 36840},
		},
	}, date))
	newSnapshot := source.AfterApply()
	is.True(newSnapshot != nil)

	oldResolved := oldSnapshot.Resolve(pattern, date)
	oldI := oldResolved.TripIndex(FeedScopedId{FeedId: "f", Id: "T1"})
	is.Equal(oldResolved.TripTimes()[oldI].StopTimes[1].ArrivalSeconds, 36600)

	newResolved := newSnapshot.Resolve(pattern, date)
	newI := newResolved.TripIndex(FeedScopedId{FeedId: "f", Id: "T1"})
	is.Equal(newResolved.TripTimes()[newI].StopTimes[1].ArrivalSeconds, 36840)
}

// TestScenario_AddedTripAndRevert covers spec scenarios 3 and 4: an added
// trip on a synthesized pattern shows up in realtimeAddedPatterns and
// patternsForStop (P4), and reverting clears the realtimeAddedPatterns
// entry and removes the trip's times from the synthesized pattern.
func TestScenario_AddedTripAndRevert(t *testing.T) {
	is := is.New(t)
	synthesized := testPattern("f", "p-synth", "r1", "A", "C")
	synthesized.CreatedByRealtimeUpdater = true
	source := NewSnapshotSource(Config{}, nil, nil)
	date := NewServiceDate(dayAt(2026, 6, 1))
	txId := FeedScopedId{FeedId: "f", Id: "TX"}
	stopC := FeedScopedId{FeedId: "f", Id: "C"}

	is.NoErr(source.Buffer().Update(synthesized, tripTimesFor("f", "TX", 100, 200), date))
	snapshot := source.AfterApply()
	is.True(snapshot != nil)

	is.Equal(snapshot.RealtimeAddedPattern(txId, date), synthesized)
	found := false
	for _, p := range snapshot.PatternsForStop(stopC) {
		if p == synthesized {
			found = true
		}
	}
	is.True(found)

	reverted, err := source.Buffer().RevertTripToScheduledPattern(txId, date)
	is.NoErr(err)
	is.True(reverted)
	afterRevert := source.AfterApply()
	is.True(afterRevert != nil)

	is.True(afterRevert.RealtimeAddedPattern(txId, date) == nil)
	resolved := afterRevert.Resolve(synthesized, date)
	is.Equal(resolved.TripIndex(txId), -1)
}

// TestScenario_Purge covers spec scenario 5: purging retains only dates
// strictly after the cutoff (P5).
func TestScenario_Purge(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "A")
	buffer := NewTimetableBuffer(nil, nil)

	may31 := NewServiceDate(dayAt(2026, 5, 31))
	jun1 := NewServiceDate(dayAt(2026, 6, 1))
	jun2 := NewServiceDate(dayAt(2026, 6, 2))

	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t1", 0), may31))
	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t2", 0), jun1))
	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t3", 0), jun2))

	removed, err := buffer.PurgeExpiredData(jun1)
	is.NoErr(err)
	is.True(removed)

	is.True(buffer.Resolve(pattern, may31) == pattern.ScheduledTimetable)
	is.True(buffer.Resolve(pattern, jun1) == pattern.ScheduledTimetable)
	is.True(buffer.Resolve(pattern, jun2) != pattern.ScheduledTimetable)
}

// TestScenario_CommitIdempotence covers P6.
func TestScenario_CommitIdempotence(t *testing.T) {
	is := is.New(t)
	buffer := NewTimetableBuffer(nil, nil)
	is.True(buffer.Commit(false) == nil)

	pattern := testPattern("f", "p1", "r1", "A")
	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t1", 0), NewServiceDate(dayAt(2026, 6, 1))))
	is.True(buffer.Commit(false) != nil)
	is.True(buffer.Commit(false) == nil)
}

// TestScenario_FreezeEnforcement covers P7: any mutating call on a frozen
// buffer fails with ReadOnly.
func TestScenario_FreezeEnforcement(t *testing.T) {
	is := is.New(t)
	buffer := NewTimetableBuffer(nil, nil)
	buffer.freeze()

	pattern := testPattern("f", "p1", "r1", "A")
	err := buffer.Update(pattern, tripTimesFor("f", "t1", 0), NewServiceDate(dayAt(2026, 6, 1)))
	var updateErr *UpdateError
	is.True(err != nil)
	is.True(errorsAsUpdateError(err, &updateErr))
	is.Equal(updateErr.Kind, ReadOnly)

	_, err = buffer.RevertTripToScheduledPattern(FeedScopedId{FeedId: "f", Id: "t1"}, NewServiceDate(dayAt(2026, 6, 1)))
	is.True(errorsAsUpdateError(err, &updateErr))
	is.Equal(updateErr.Kind, ReadOnly)

	_, err = buffer.PurgeExpiredData(NewServiceDate(dayAt(2026, 6, 1)))
	is.True(errorsAsUpdateError(err, &updateErr))
	is.Equal(updateErr.Kind, ReadOnly)
}

func errorsAsUpdateError(err error, target **UpdateError) bool {
	ue, ok := err.(*UpdateError)
	if !ok {
		return false
	}
	*target = ue
	return true
}

// TestScenario_COWUniqueness covers P3: a single buffer copies a given
// (pattern, date) timetable at most once per lifetime; subsequent writes
// mutate the same copy rather than producing further copies.
func TestScenario_COWUniqueness(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "A", "B")
	buffer := NewTimetableBuffer(nil, nil)
	date := NewServiceDate(dayAt(2026, 6, 1))

	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t1", 0, 0), date))
	firstCopy := buffer.Resolve(pattern, date)

	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t2", 0, 0), date))
	secondWrite := buffer.Resolve(pattern, date)

	is.True(firstCopy == secondWrite)
}
