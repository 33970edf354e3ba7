package realtime

import (
	"fmt"
	"time"

	"github.com/OpenTransitTools/transitsnap/business/data/gtfs"
)

// ApplyScheduleBasedBatch translates a batch of GTFS-Realtime TripUpdates
// into TimetableBuffer.Update calls, matching spec.md §4.E's
// schedule-based dialect. Incrementality is read off the first update in
// the batch (GTFS-RT carries it at feed-header granularity, not per
// entity); an empty batch is a no-op.
//
// When the batch is FULL_DATASET, every existing realtime entry for
// feedId is cleared before any update in the batch is applied — the
// batch is the complete current state, so anything it does not mention
// must revert to schedule. DIFFERENTIAL batches are applied on top of
// whatever the buffer already holds.
//
// policy controls how a late arrival observed at a downstream stop is
// propagated backwards onto preceding stop-time updates within the same
// trip that carry no realtime data of their own (spec.md §6).
func ApplyScheduleBasedBatch(buffer *TimetableBuffer, model TransitModel, feedId string, updates []ScheduleBasedTripUpdate, policy BackwardsDelayPropagation) *UpdateResult {
	result := &UpdateResult{}
	if len(updates) == 0 {
		return result
	}

	if updates[0].Incrementality == FullDataset {
		buffer.Clear(feedId)
	}

	for _, update := range updates {
		applyScheduleBasedTripUpdate(buffer, model, feedId, update, policy, result)
	}
	return result
}

func applyScheduleBasedTripUpdate(buffer *TimetableBuffer, model TransitModel, feedId string, update ScheduleBasedTripUpdate, policy BackwardsDelayPropagation, result *UpdateResult) {
	serviceDate, ok := parseGTFSDate(update.StartDate)
	if !ok {
		result.addError(&UpdateError{
			Kind:    DateUnparseable,
			TripId:  FeedScopedId{FeedId: feedId, Id: update.TripId},
			Message: fmt.Sprintf("unparseable start_date %q", update.StartDate),
		})
		return
	}

	tripId := FeedScopedId{FeedId: feedId, Id: update.TripId}
	pattern, found := model.LookupPattern(tripId)
	if !found {
		result.addError(&UpdateError{Kind: UnknownTrip, TripId: tripId, Message: "no pattern for trip"})
		return
	}

	baseline := scheduledStopTimes(pattern, tripId)
	stopTimes := make([]StopTime, 0, len(update.StopTimeUpdates))
	for _, stu := range update.StopTimeUpdates {
		if pattern.StopSequenceIndex(FeedScopedId{FeedId: feedId, Id: stu.StopId}) == -1 {
			result.addError(&UpdateError{
				Kind:    InvalidStopSequence,
				TripId:  tripId,
				Message: fmt.Sprintf("stop %s at sequence %d is not part of pattern %s", stu.StopId, stu.StopSequence, pattern.Id),
			})
			continue
		}

		st, err := resolveStopTime(feedId, stu, serviceDate, baseline, model.Location())
		if err != nil {
			result.addError(err)
			continue
		}
		stopTimes = append(stopTimes, st)
	}

	propagateBackwardsDelay(stopTimes, baseline, policy)

	tripTimes := &TripTimes{TripId: tripId, StopTimes: stopTimes}
	if !tripTimes.IsMonotonic() {
		result.addError(&UpdateError{Kind: NonMonotonicTimes, TripId: tripId, Message: "stop times are not non-decreasing"})
		return
	}

	if err := buffer.Update(pattern, tripTimes, serviceDate); err != nil {
		result.addError(&UpdateError{Kind: UnknownTrip, TripId: tripId, Message: err.Error()})
		return
	}
	result.addSuccess()
}

// scheduledStopTimes returns the static baseline StopTimes for tripId, or
// nil if the trip has no scheduled entry (e.g. it is an added trip with
// no static counterpart).
func scheduledStopTimes(pattern *Pattern, tripId FeedScopedId) []StopTime {
	if pattern.ScheduledTimetable == nil {
		return nil
	}
	i := pattern.ScheduledTimetable.TripIndex(tripId)
	if i == -1 {
		return nil
	}
	return pattern.ScheduledTimetable.TripTimes()[i].StopTimes
}

func resolveStopTime(feedId string, stu StopTimeUpdateInput, serviceDate ServiceDate, baseline []StopTime, loc *time.Location) (StopTime, *UpdateError) {
	stopId := FeedScopedId{FeedId: feedId, Id: stu.StopId}

	var scheduledArrival, scheduledDeparture int
	for _, b := range baseline {
		if b.StopSequence == stu.StopSequence {
			scheduledArrival = b.ArrivalSeconds
			scheduledDeparture = b.DepartureSeconds
			break
		}
	}

	arrival := scheduledArrival
	departure := scheduledDeparture
	source := SchedulePrediction

	if stu.ArrivalTime != nil {
		arrival = secondsSinceMidnight(*stu.ArrivalTime, serviceDate, loc)
		source = RealtimePrediction
	} else if stu.ArrivalDelay != nil {
		arrival = scheduledArrival + *stu.ArrivalDelay
		source = RealtimePrediction
	}

	if stu.DepartureTime != nil {
		departure = secondsSinceMidnight(*stu.DepartureTime, serviceDate, loc)
		source = RealtimePrediction
	} else if stu.DepartureDelay != nil {
		departure = scheduledDeparture + *stu.DepartureDelay
		source = RealtimePrediction
	} else if source == RealtimePrediction {
		// no departure data: carry the arrival delay onto the departure so
		// it never trails the arrival.
		departure = scheduledDeparture + (arrival - scheduledArrival)
	}

	if stu.ScheduleRelationship == "SKIPPED" {
		source = NoFurtherPredictions
	}

	return StopTime{
		StopSequence:     stu.StopSequence,
		StopId:           stopId,
		ArrivalSeconds:   arrival,
		DepartureSeconds: departure,
		PredictionSource: source,
	}, nil
}

// propagateBackwardsDelay carries the delay observed at a stop with
// explicit realtime data backwards onto preceding stops in stopTimes
// that lack their own explicit data, per policy. stopTimes is assumed to
// be in ascending stop-sequence order, matching how the update's
// stop_time_updates were supplied.
func propagateBackwardsDelay(stopTimes []StopTime, baseline []StopTime, policy BackwardsDelayPropagation) {
	baselineBySeq := make(map[int]StopTime, len(baseline))
	for _, b := range baseline {
		baselineBySeq[b.StopSequence] = b
	}

	var carryDelay int
	haveCarry := false
	for i := len(stopTimes) - 1; i >= 0; i-- {
		st := &stopTimes[i]
		b, hasBaseline := baselineBySeq[st.StopSequence]

		if st.PredictionSource == RealtimePrediction {
			if hasBaseline {
				carryDelay = st.ArrivalSeconds - b.ArrivalSeconds
			} else {
				carryDelay = 0
			}
			haveCarry = true
			continue
		}

		if !haveCarry || carryDelay == 0 || !hasBaseline {
			continue
		}

		var eligible bool
		switch policy {
		case RequiredNoData:
			eligible = st.PredictionSource == SchedulePrediction
		case Required:
			eligible = st.PredictionSource == SchedulePrediction || st.PredictionSource == NoFurtherPredictions
		case Always:
			eligible = true
		}
		if !eligible {
			continue
		}

		st.ArrivalSeconds = b.ArrivalSeconds + carryDelay
		st.DepartureSeconds = b.DepartureSeconds + carryDelay
	}
}

// secondsSinceMidnight converts an absolute realtime timestamp into
// GTFS schedule seconds relative to serviceDate's midnight in loc, via
// gtfs.ScheduleSecondsSince so a schedule second crossing a daylight
// saving transition round-trips the same way the static schedule loader
// produced it with gtfs.MakeScheduleTime.
func secondsSinceMidnight(unixSeconds int64, serviceDate ServiceDate, loc *time.Location) int {
	at := time.Unix(unixSeconds, 0).In(loc)
	midnight := serviceDate.Midnight(loc)
	return gtfs.ScheduleSecondsSince(midnight, at)
}

func parseGTFSDate(s string) (ServiceDate, bool) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return ServiceDate{}, false
	}
	return NewServiceDate(t), true
}
