package realtime

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestApplyEstimatedTimetableDelivery_AppliesExpectedTimes(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1", "s2")
	tripId := FeedScopedId{FeedId: "f", Id: "t1"}
	serviceDate := NewServiceDate(dayAt(2026, 7, 31))
	trip := &TripOnServiceDate{TripId: tripId, ServiceDate: serviceDate, Pattern: pattern}

	model := &fakeModel{tripsByRef: map[string]*TripOnServiceDate{
		"dvj1@2026-07-31": trip,
	}}
	resolver := NewEntityResolver(model, nil)
	buffer := NewTimetableBuffer(nil, nil)

	midnight := serviceDate.Midnight(time.UTC)
	expectedArrival := midnight.Add(130 * time.Second)
	expectedArrival2 := midnight.Add(260 * time.Second)

	delivery := EstimatedTimetableDelivery{
		FeedId: "f",
		Journeys: []EstimatedVehicleJourney{
			{
				IsCompleteStopSequence: true,
				FramedVehicleJourneyRef: &FramedVehicleJourneyRef{
					DataFrameRef:           "2026-07-31",
					DatedVehicleJourneyRef: "dvj1",
				},
				Calls: []EstimatedCall{
					{StopPointRef: "s1", Order: 0, ExpectedArrivalTime: &expectedArrival},
					{StopPointRef: "s2", Order: 1, ExpectedArrivalTime: &expectedArrival2},
				},
			},
		},
	}

	result := ApplyEstimatedTimetableDelivery(buffer, model, resolver, delivery)
	is.Equal(result.Successes, 1)
	is.Equal(len(result.Errors), 0)

	resolved := buffer.Resolve(pattern, serviceDate)
	i := resolved.TripIndex(tripId)
	is.True(i != -1)
	is.Equal(resolved.TripTimes()[i].StopTimes[0].ArrivalSeconds, 130)
	is.Equal(resolved.TripTimes()[i].StopTimes[0].PredictionSource, RealtimePrediction)
}

func TestApplyEstimatedTimetableDelivery_UnresolvedJourneyRecordsError(t *testing.T) {
	is := is.New(t)
	model := &fakeModel{tripsByRef: map[string]*TripOnServiceDate{}}
	resolver := NewEntityResolver(model, nil)
	buffer := NewTimetableBuffer(nil, nil)

	result := ApplyEstimatedTimetableDelivery(buffer, model, resolver, EstimatedTimetableDelivery{
		FeedId:   "f",
		Journeys: []EstimatedVehicleJourney{{LineRef: "line1"}},
	})

	is.Equal(result.Successes, 0)
	is.Equal(len(result.Errors), 1)
	is.Equal(result.Errors[0].Kind, UnknownTrip)
}

func TestApplyEstimatedTimetableDelivery_DivergentSequenceSynthesizesPattern(t *testing.T) {
	is := is.New(t)
	pattern := testPattern("f", "p1", "r1", "s1", "s2")
	tripId := FeedScopedId{FeedId: "f", Id: "t1"}
	serviceDate := NewServiceDate(dayAt(2026, 7, 31))
	trip := &TripOnServiceDate{TripId: tripId, ServiceDate: serviceDate, Pattern: pattern}

	model := &fakeModel{tripsByRef: map[string]*TripOnServiceDate{
		"dvj1@2026-07-31": trip,
	}}
	resolver := NewEntityResolver(model, nil)
	buffer := NewTimetableBuffer(nil, nil)

	delivery := EstimatedTimetableDelivery{
		FeedId: "f",
		Journeys: []EstimatedVehicleJourney{
			{
				FramedVehicleJourneyRef: &FramedVehicleJourneyRef{
					DataFrameRef:           "2026-07-31",
					DatedVehicleJourneyRef: "dvj1",
				},
				Calls: []EstimatedCall{
					{StopPointRef: "s1", Order: 0},
					{StopPointRef: "s3", Order: 1},
				},
			},
		},
	}

	result := ApplyEstimatedTimetableDelivery(buffer, model, resolver, delivery)
	is.Equal(result.Successes, 1)
	is.Equal(model.synthesizeCalls, 1)
	is.Equal(len(result.Warnings), 1)
}
