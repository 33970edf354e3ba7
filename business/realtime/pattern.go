package realtime

// Stop is a single location a pattern visits.
type Stop struct {
	Id   FeedScopedId
	Name string
}

// Pattern describes the sequence of stops traversed by a family of trips
// on one route. Patterns are owned by the static transit model and are
// immutable once built; the engine never mutates a Pattern, only the
// Timetables that reference it. Patterns are compared by pointer identity
// ("stable opaque handle" in spec.md's terms), so the TransitModel
// collaborator must hand back the same *Pattern instance for the same
// logical pattern across calls.
type Pattern struct {
	Id      FeedScopedId
	RouteId string
	Stops   []FeedScopedId

	// ScheduledTimetable is the static baseline valid for every service
	// date with no realtime changes applied.
	ScheduledTimetable *Timetable

	// CreatedByRealtimeUpdater is true for patterns synthesized at
	// runtime to model a trip whose stop sequence diverges from any
	// known static pattern.
	CreatedByRealtimeUpdater bool
}

// HasStop reports whether the pattern visits stop.
func (p *Pattern) HasStop(stop FeedScopedId) bool {
	for _, s := range p.Stops {
		if s == stop {
			return true
		}
	}
	return false
}

// StopSequenceIndex returns the position of stop within the pattern, or -1.
func (p *Pattern) StopSequenceIndex(stop FeedScopedId) int {
	for i, s := range p.Stops {
		if s == stop {
			return i
		}
	}
	return -1
}

// TripOnServiceDate pairs a trip with a specific service date in the
// static model, matching the GLOSSARY entity used when resolving
// `datedVehicleJourneyRef`/`estimatedVehicleJourneyCode` references.
type TripOnServiceDate struct {
	TripId      FeedScopedId
	ServiceDate ServiceDate
	Pattern     *Pattern
}
