package realtime

import "fmt"

// ConcurrentModification is returned when a mutation is attempted on a
// Timetable that is only reachable from a published Snapshot. It signals
// a programming error in the caller, not a data error: a correctly
// written TimetableBuffer never triggers it, because it only mutates
// Timetables it has already copied into its own dirty set.
type ConcurrentModification struct {
	Pattern     FeedScopedId
	ServiceDate ServiceDate
}

func (e *ConcurrentModification) Error() string {
	return fmt.Sprintf("realtime: attempted mutation of frozen timetable for pattern %s on %s",
		e.Pattern, e.ServiceDate)
}

// Timetable is the set of trip-times valid on one service date for one
// pattern. A nil ServiceDate pointer means "baseline, all dates" — only
// Pattern.ScheduledTimetable is ever built that way; every Timetable a
// TimetableBuffer creates carries a non-nil, distinct service date (I1).
//
// A Timetable is mutable only while it is reachable from a
// TimetableBuffer's dirty set. Once a buffer commits, freeze marks it
// (and every other timetable the commit touched) read-only; any later
// call to AddTripTimes/SetTripTimes returns ConcurrentModification
// instead of mutating shared, published state.
type Timetable struct {
	pattern     *Pattern
	serviceDate *ServiceDate
	tripTimes   []*TripTimes
	frozen      bool
}

// newTimetable builds an empty Timetable for pattern valid on serviceDate.
// A nil serviceDate builds the baseline timetable attached directly to a
// Pattern; TimetableBuffer never constructs one of those itself.
func newTimetable(pattern *Pattern, serviceDate *ServiceDate) *Timetable {
	return &Timetable{pattern: pattern, serviceDate: serviceDate}
}

// NewScheduledTimetable builds the baseline timetable a TransitModel
// collaborator attaches to Pattern.ScheduledTimetable. It is unfrozen so
// the model can populate it with AddTripTimes while loading static
// schedule data, and is never itself subject to copy-on-write: the engine
// only ever reads it as the fallback Resolve returns when no realtime
// timetable exists for a service date.
func NewScheduledTimetable(pattern *Pattern) *Timetable {
	return newTimetable(pattern, nil)
}

// copyOf duplicates src's trip-times into a new, unfrozen Timetable valid
// on serviceDate. This is the copy-on-write step TimetableBuffer.Update
// performs before mutating anything reachable from a previous generation.
func copyOf(src *Timetable, serviceDate ServiceDate) *Timetable {
	tripTimes := make([]*TripTimes, len(src.tripTimes))
	copy(tripTimes, src.tripTimes)
	return &Timetable{
		pattern:     src.pattern,
		serviceDate: &serviceDate,
		tripTimes:   tripTimes,
	}
}

// Pattern returns the pattern this timetable belongs to.
func (t *Timetable) Pattern() *Pattern {
	return t.pattern
}

// ServiceDate returns the service date this timetable is valid for, or
// nil for the baseline scheduled timetable.
func (t *Timetable) ServiceDate() *ServiceDate {
	return t.serviceDate
}

// IsValidFor reports whether this timetable's service date equals date.
func (t *Timetable) IsValidFor(date ServiceDate) bool {
	return t.serviceDate != nil && t.serviceDate.Equal(date)
}

// TripIndex returns the position of tripId in this timetable, or -1.
func (t *Timetable) TripIndex(tripId FeedScopedId) int {
	for i, tt := range t.tripTimes {
		if tt.TripId == tripId {
			return i
		}
	}
	return -1
}

// TripTimes returns the read-only list of trip-times in this timetable.
func (t *Timetable) TripTimes() []*TripTimes {
	return t.tripTimes
}

// AddTripTimes appends tt to the timetable. The caller must already have
// verified TripIndex(tt.TripId) == -1.
func (t *Timetable) AddTripTimes(tt *TripTimes) error {
	if t.frozen {
		return t.concurrentModificationError()
	}
	t.tripTimes = append(t.tripTimes, tt)
	return nil
}

// SetTripTimes replaces the trip-times at position i.
func (t *Timetable) SetTripTimes(i int, tt *TripTimes) error {
	if t.frozen {
		return t.concurrentModificationError()
	}
	t.tripTimes[i] = tt
	return nil
}

// removeTripTimes removes the trip-times at position i, used by
// TimetableBuffer.RevertTripToScheduledPattern. Like AddTripTimes/SetTripTimes this is
// only legal on an unfrozen timetable.
func (t *Timetable) removeTripTimes(i int) error {
	if t.frozen {
		return t.concurrentModificationError()
	}
	t.tripTimes = append(t.tripTimes[:i], t.tripTimes[i+1:]...)
	return nil
}

// freeze marks the timetable read-only. Called once per timetable when a
// TimetableBuffer commits, before the Timetable becomes reachable from
// the published Snapshot.
func (t *Timetable) freeze() {
	t.frozen = true
}

func (t *Timetable) concurrentModificationError() error {
	var date ServiceDate
	if t.serviceDate != nil {
		date = *t.serviceDate
	}
	return &ConcurrentModification{Pattern: t.pattern.Id, ServiceDate: date}
}
