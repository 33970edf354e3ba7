package realtime

import (
	"fmt"
	"time"

	"github.com/OpenTransitTools/transitsnap/business/data/gtfs"
)

// ApplyEstimatedTimetableDelivery translates a SIRI Estimated Timetable
// delivery into TimetableBuffer.Update calls, matching spec.md §4.E's
// estimated-timetable dialect. Every journey is resolved against model
// (and, when no explicit reference matches, resolver's fuzzy matcher)
// independently; a journey that fails to resolve is recorded as
// UnknownTrip and does not affect the rest of the delivery.
//
// Deliveries are always differential in this dialect: SIRI does not
// carry a full/incremental distinction, each EstimatedVehicleJourney is
// a standalone correction to whatever pattern it resolves to.
func ApplyEstimatedTimetableDelivery(buffer *TimetableBuffer, model TransitModel, resolver *EntityResolver, delivery EstimatedTimetableDelivery) *UpdateResult {
	result := &UpdateResult{}
	for _, journey := range delivery.Journeys {
		applyEstimatedVehicleJourney(buffer, model, resolver, delivery.FeedId, journey, result)
	}
	return result
}

func applyEstimatedVehicleJourney(buffer *TimetableBuffer, model TransitModel, resolver *EntityResolver, feedId string, journey EstimatedVehicleJourney, result *UpdateResult) {
	trip, found := resolver.Resolve(journey)
	if !found {
		result.addError(&UpdateError{Kind: UnknownTrip, Message: fmt.Sprintf("could not resolve journey on line %s", journey.LineRef)})
		return
	}

	pattern := trip.Pattern
	if !journey.IsCompleteStopSequence && !journeyMatchesPattern(journey, pattern, feedId) {
		synthesized := model.SynthesizePattern(pattern.RouteId, journeyStopIds(journey, feedId))
		pattern = synthesized
		result.addWarning(fmt.Sprintf("trip %s diverges from its scheduled pattern, synthesized pattern %s", trip.TripId, synthesized.Id))
	}

	stopTimes := make([]StopTime, 0, len(journey.Calls))
	for _, call := range journey.Calls {
		stopId := FeedScopedId{FeedId: feedId, Id: call.StopPointRef}
		if pattern.StopSequenceIndex(stopId) == -1 {
			result.addError(&UpdateError{
				Kind:    InvalidStopSequence,
				TripId:  trip.TripId,
				Message: fmt.Sprintf("stop %s is not part of pattern %s", call.StopPointRef, pattern.Id),
			})
			continue
		}
		stopTimes = append(stopTimes, estimatedCallToStopTime(stopId, call, trip.ServiceDate, model.Location()))
	}

	tripTimes := &TripTimes{TripId: trip.TripId, StopTimes: stopTimes}
	if !tripTimes.IsMonotonic() {
		result.addError(&UpdateError{Kind: NonMonotonicTimes, TripId: trip.TripId, Message: "stop times are not non-decreasing"})
		return
	}

	if err := buffer.Update(pattern, tripTimes, trip.ServiceDate); err != nil {
		result.addError(&UpdateError{Kind: UnknownTrip, TripId: trip.TripId, Message: err.Error()})
		return
	}
	result.addSuccess()
}

func journeyMatchesPattern(journey EstimatedVehicleJourney, pattern *Pattern, feedId string) bool {
	if len(journey.Calls) != len(pattern.Stops) {
		return false
	}
	for i, call := range journey.Calls {
		if pattern.Stops[i] != (FeedScopedId{FeedId: feedId, Id: call.StopPointRef}) {
			return false
		}
	}
	return true
}

func journeyStopIds(journey EstimatedVehicleJourney, feedId string) []FeedScopedId {
	stops := make([]FeedScopedId, len(journey.Calls))
	for i, call := range journey.Calls {
		stops[i] = FeedScopedId{FeedId: feedId, Id: call.StopPointRef}
	}
	return stops
}

func estimatedCallToStopTime(stopId FeedScopedId, call EstimatedCall, serviceDate ServiceDate, loc *time.Location) StopTime {
	source := SchedulePrediction
	midnight := serviceDate.Midnight(loc)

	arrival := aimedSeconds(call.AimedArrivalTime, midnight)
	departure := aimedSeconds(call.AimedDepartureTime, midnight)

	if call.ExpectedArrivalTime != nil {
		arrival = gtfs.ScheduleSecondsSince(midnight, *call.ExpectedArrivalTime)
		source = RealtimePrediction
	}
	if call.ExpectedDepartureTime != nil {
		departure = gtfs.ScheduleSecondsSince(midnight, *call.ExpectedDepartureTime)
		source = RealtimePrediction
	} else if call.AimedDepartureTime == nil {
		// no departure data of any kind: treat the call as a through-stop
		// and use the arrival time so it never trails the arrival.
		departure = arrival
	}
	if call.ArrivalStatus == "cancelled" || call.DepartureStatus == "cancelled" {
		source = NoFurtherPredictions
	}

	return StopTime{
		StopId:           stopId,
		ArrivalSeconds:   arrival,
		DepartureSeconds: departure,
		PredictionSource: source,
	}
}

func aimedSeconds(at *time.Time, midnight time.Time) int {
	if at == nil {
		return 0
	}
	return gtfs.ScheduleSecondsSince(midnight, *at)
}
