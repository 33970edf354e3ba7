package realtime

import "time"

// Incrementality distinguishes a feed delivering its entire current state
// every batch from one delivering only the entities that changed since
// the last batch (spec.md §6).
type Incrementality int32

const (
	// FullDataset means this batch supersedes every previously applied
	// update for the feed: anything not present must be treated as
	// reverted to schedule.
	FullDataset Incrementality = iota
	// Differential means this batch adds to or corrects previously
	// applied updates; anything not mentioned is left alone.
	Differential
)

func (i Incrementality) String() string {
	if i == FullDataset {
		return "FULL_DATASET"
	}
	return "DIFFERENTIAL"
}

// ScheduleBasedTripUpdate is the GTFS-Realtime TripUpdate dialect's input
// shape, already decoded from protobuf by the host service (wire parsing
// is out of scope here; see DESIGN.md for why gtfsrtproto is not wired
// in).
type ScheduleBasedTripUpdate struct {
	FeedId         string
	TripId         string
	RouteId        string
	StartDate      string // YYYYMMDD, per GTFS-RT TripDescriptor.start_date
	Incrementality Incrementality
	StopTimeUpdates []StopTimeUpdateInput
}

// StopTimeUpdateInput is one GTFS-RT StopTimeUpdate entry.
type StopTimeUpdateInput struct {
	StopSequence     int
	StopId           string
	ArrivalDelay     *int // seconds, relative to scheduled time
	ArrivalTime      *int64 // unix seconds, absolute
	DepartureDelay   *int
	DepartureTime    *int64
	ScheduleRelationship string // "SCHEDULED", "SKIPPED", "NO_DATA"
}

// EstimatedTimetableDelivery is the SIRI Estimated Timetable dialect's
// input shape: a batch of EstimatedVehicleJourneys, already decoded from
// XML/JSON by the host service.
type EstimatedTimetableDelivery struct {
	FeedId    string
	Journeys  []EstimatedVehicleJourney
}

// FramedVehicleJourneyRef is SIRI's primary dated-trip reference: a
// DataFrameRef (the service date, as an ISO date string) paired with a
// DatedVehicleJourneyRef scoped to that frame.
type FramedVehicleJourneyRef struct {
	DataFrameRef          string // ISO date, e.g. "2026-07-31"
	DatedVehicleJourneyRef string
}

// EstimatedVehicleJourney is one SIRI EstimatedVehicleJourney element.
// EntityResolver tries each reference in the precedence order spec.md
// §4.F documents: FramedVehicleJourneyRef, then DatedVehicleJourneyRef,
// then EstimatedVehicleJourneyCode, falling through to the next on any
// unparseable or unmatched reference rather than failing the whole
// journey.
type EstimatedVehicleJourney struct {
	LineRef                    string
	FramedVehicleJourneyRef    *FramedVehicleJourneyRef
	DatedVehicleJourneyRef     *string
	EstimatedVehicleJourneyCode *string
	IsCompleteStopSequence     bool
	Calls                      []EstimatedCall
}

// EstimatedCall is one SIRI EstimatedCall element: a single stop visit
// within an EstimatedVehicleJourney.
type EstimatedCall struct {
	StopPointRef     string
	Order            int
	AimedArrivalTime      *time.Time
	ExpectedArrivalTime   *time.Time
	AimedDepartureTime    *time.Time
	ExpectedDepartureTime *time.Time
	ArrivalStatus    string // "onTime", "delayed", "cancelled", ""
	DepartureStatus  string
}
