package realtime

// PredictionSource describes how a StopTime's predicted times were
// derived, scoped to what the snapshot engine needs to know: whether a
// stop has any realtime data at all.
type PredictionSource int32

const (
	// SchedulePrediction means the stop time was propagated from the
	// static schedule rather than observed in this update.
	SchedulePrediction PredictionSource = iota
	// RealtimePrediction means the stop time came directly off the
	// realtime message.
	RealtimePrediction
	// NoFurtherPredictions marks a stop past which no more realtime
	// data is available for this trip.
	NoFurtherPredictions
)

// StopTime is the realtime arrival/departure prediction for a single stop
// on a trip.
type StopTime struct {
	StopSequence     int
	StopId           FeedScopedId
	ArrivalSeconds    int
	DepartureSeconds  int
	PredictionSource PredictionSource
}

// TripTimes carries realtime stop times for every stop update known for
// one trip. TimetableBuffer and Timetable treat TripTimes as an opaque
// payload: they never inspect StopTimes, only compare instances by TripId
// when deciding whether to add or replace an entry in a Timetable. The
// update handlers read StopTimes to build and validate a TripTimes.
type TripTimes struct {
	TripId    FeedScopedId
	StopTimes []StopTime
}

// IsMonotonic reports whether the arrival/departure seconds in StopTimes
// are non-decreasing in stop sequence order, the invariant
// NON_MONOTONIC_TIMES protects.
func (t *TripTimes) IsMonotonic() bool {
	last := -1
	for _, st := range t.StopTimes {
		if st.ArrivalSeconds < last || st.DepartureSeconds < st.ArrivalSeconds {
			return false
		}
		last = st.DepartureSeconds
	}
	return true
}
