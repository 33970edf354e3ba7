package realtime

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func testPattern(feedId, id, routeId string, stopIds ...string) *Pattern {
	stops := make([]FeedScopedId, len(stopIds))
	for i, s := range stopIds {
		stops[i] = FeedScopedId{FeedId: feedId, Id: s}
	}
	pattern := &Pattern{
		Id:      FeedScopedId{FeedId: feedId, Id: id},
		RouteId: routeId,
		Stops:   stops,
	}
	pattern.ScheduledTimetable = NewScheduledTimetable(pattern)
	return pattern
}

func tripTimesFor(feedId, tripId string, arrivals ...int) *TripTimes {
	stopTimes := make([]StopTime, len(arrivals))
	for i, a := range arrivals {
		stopTimes[i] = StopTime{StopSequence: i, ArrivalSeconds: a, DepartureSeconds: a}
	}
	return &TripTimes{TripId: FeedScopedId{FeedId: feedId, Id: tripId}, StopTimes: stopTimes}
}

func TestTimetableBuffer_Update_FirstWriteIsCopyOnWrite(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1", "s2")
	buffer := NewTimetableBuffer(nil, nil)
	date := NewServiceDate(dayAt(2026, 7, 31))

	err := buffer.Update(pattern, tripTimesFor("f", "t1", 100, 200), date)
	is.NoErr(err)

	resolved := buffer.Resolve(pattern, date)
	is.True(resolved != pattern.ScheduledTimetable)
	is.Equal(resolved.TripIndex(FeedScopedId{FeedId: "f", Id: "t1"}), 0)
}

func TestTimetableBuffer_Update_NilPatternIsInvalidArgument(t *testing.T) {
	is := is.New(t)
	buffer := NewTimetableBuffer(nil, nil)
	date := NewServiceDate(dayAt(2026, 7, 31))

	err := buffer.Update(nil, tripTimesFor("f", "t1", 100, 200), date)
	var updateErr *UpdateError
	is.True(errors.As(err, &updateErr))
	is.Equal(updateErr.Kind, InvalidArgument)
}

func TestTimetableBuffer_Commit_PublishesFrozenSnapshot(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1", "s2")
	buffer := NewTimetableBuffer(nil, nil)
	date := NewServiceDate(dayAt(2026, 7, 31))

	is.True(buffer.Commit(false) == nil)

	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t1", 100, 200), date))
	snapshot := buffer.Commit(false)
	is.True(snapshot != nil)
	is.Equal(snapshot.PatternCount(), 1)

	resolved := snapshot.Resolve(pattern, date)
	err := resolved.AddTripTimes(tripTimesFor("f", "t2", 0, 0))
	var concurrentMod *ConcurrentModification
	is.True(err != nil)
	is.True(errors.As(err, &concurrentMod))
}

func TestTimetableBuffer_Commit_NotDirtyReturnsNil(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1", "s2")
	buffer := NewTimetableBuffer(nil, nil)
	date := NewServiceDate(dayAt(2026, 7, 31))

	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t1", 100, 200), date))
	is.True(buffer.Commit(false) != nil)
	is.True(buffer.Commit(false) == nil)
}

func TestTimetableBuffer_Update_NonMonotonicRejectedByCaller(t *testing.T) {
	is := is.New(t)
	tt := tripTimesFor("f", "t1", 200, 100)
	is.True(!tt.IsMonotonic())
}

func TestTimetableBuffer_RevertTripToScheduledPattern(t *testing.T) {
	is := is.New(t)
	synthesized := testPattern("f", "synth1", "r1", "s1", "s2")
	synthesized.CreatedByRealtimeUpdater = true
	buffer := NewTimetableBuffer(nil, nil)
	date := NewServiceDate(dayAt(2026, 7, 31))
	tripId := FeedScopedId{FeedId: "f", Id: "t1"}

	is.NoErr(buffer.Update(synthesized, tripTimesFor("f", "t1", 100, 200), date))

	reverted, err := buffer.RevertTripToScheduledPattern(tripId, date)
	is.NoErr(err)
	is.True(reverted)

	resolved := buffer.Resolve(synthesized, date)
	is.Equal(resolved.TripIndex(tripId), -1)

	revertedAgain, err := buffer.RevertTripToScheduledPattern(tripId, date)
	is.NoErr(err)
	is.True(!revertedAgain)
}

func TestTimetableBuffer_PurgeExpiredData(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1", "s2")
	buffer := NewTimetableBuffer(nil, nil)
	past := NewServiceDate(dayAt(2026, 1, 1))
	future := NewServiceDate(dayAt(2026, 12, 1))

	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t1", 0, 0), past))
	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t2", 0, 0), future))

	removed, err := buffer.PurgeExpiredData(NewServiceDate(dayAt(2026, 6, 1)))
	is.NoErr(err)
	is.True(removed)

	is.True(buffer.Resolve(pattern, past) == pattern.ScheduledTimetable)
	is.True(buffer.Resolve(pattern, future) != pattern.ScheduledTimetable)
}

func TestTimetableBuffer_Clear(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1", "s2")
	buffer := NewTimetableBuffer(nil, nil)
	date := NewServiceDate(dayAt(2026, 7, 31))

	is.NoErr(buffer.Update(pattern, tripTimesFor("f", "t1", 0, 0), date))
	buffer.Clear("f")
	is.True(buffer.Resolve(pattern, date) == pattern.ScheduledTimetable)
}
