// Package gtfsmodel is a reference business/realtime.TransitModel backed
// by the static schedule tables business/data/gtfs already knows how to
// query. The static loader that populates those tables is an external
// collaborator (out of scope here); this package only reads what it
// already put there.
package gtfsmodel

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OpenTransitTools/transitsnap/business/data/gtfs"
	"github.com/OpenTransitTools/transitsnap/business/realtime"
)

// Model is a realtime.TransitModel over the active gtfs.DataSet for one
// feed. It is read once at construction and cached: spec.md treats the
// static schedule as a slowly-changing collaborator, not something
// re-queried on every lookup.
type Model struct {
	feedId  string
	db      *sqlx.DB
	dataSet *gtfs.DataSet
	loc     *time.Location

	mu               sync.Mutex
	patternsByTrip   map[string]*realtime.Pattern
	serviceIdByTrip  map[string]string
	tripsOnDate      map[string]*realtime.TripOnServiceDate
	stopsById        map[string]realtime.Stop
	synthesized      map[string]*realtime.Pattern
	synthesizedCount int

	activeMu           sync.Mutex
	activeServiceCache map[string]map[string]bool
}

// NewModel loads every trip/stop_time row for dataSet into an in-memory
// TransitModel. feedId scopes every id this model hands back, and loc is
// the feed's schedule timezone (the zone its arrival/departure schedule
// seconds are counted from midnight in).
func NewModel(db *sqlx.DB, feedId string, dataSet *gtfs.DataSet, loc *time.Location) (*Model, error) {
	m := &Model{
		feedId:             feedId,
		db:                 db,
		dataSet:            dataSet,
		loc:                loc,
		patternsByTrip:     make(map[string]*realtime.Pattern),
		serviceIdByTrip:    make(map[string]string),
		tripsOnDate:        make(map[string]*realtime.TripOnServiceDate),
		stopsById:          make(map[string]realtime.Stop),
		synthesized:        make(map[string]*realtime.Pattern),
		activeServiceCache: make(map[string]map[string]bool),
	}
	if err := m.load(dataSet); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) load(dataSet *gtfs.DataSet) error {
	var trips []gtfs.Trip
	if err := m.db.Select(&trips, m.db.Rebind("select * from trip where data_set_id = ?"), dataSet.Id); err != nil {
		return fmt.Errorf("gtfsmodel: loading trips: %w", err)
	}

	var stopTimes []gtfs.StopTime
	if err := m.db.Select(&stopTimes, m.db.Rebind("select * from stop_time where data_set_id = ? order by trip_id, stop_sequence"), dataSet.Id); err != nil {
		return fmt.Errorf("gtfsmodel: loading stop_times: %w", err)
	}

	stopTimesByTrip := make(map[string][]gtfs.StopTime, len(trips))
	for _, st := range stopTimes {
		stopTimesByTrip[st.TripId] = append(stopTimesByTrip[st.TripId], st)
		stopId := realtime.FeedScopedId{FeedId: m.feedId, Id: st.StopId}
		if _, known := m.stopsById[stopId.String()]; !known {
			m.stopsById[stopId.String()] = realtime.Stop{Id: stopId, Name: st.StopId}
		}
	}

	patternsByKey := make(map[string]*realtime.Pattern)
	for _, trip := range trips {
		stSlice := stopTimesByTrip[trip.TripId]
		if len(stSlice) == 0 {
			continue
		}
		sort.Slice(stSlice, func(i, j int) bool { return stSlice[i].StopSequence < stSlice[j].StopSequence })

		stops := make([]realtime.FeedScopedId, len(stSlice))
		for i, st := range stSlice {
			stops[i] = realtime.FeedScopedId{FeedId: m.feedId, Id: st.StopId}
		}
		key := trip.RouteId + "|" + patternKey(stops)

		pattern, found := patternsByKey[key]
		if !found {
			pattern = &realtime.Pattern{
				Id:      realtime.FeedScopedId{FeedId: m.feedId, Id: key},
				RouteId: trip.RouteId,
				Stops:   stops,
			}
			pattern.ScheduledTimetable = scheduledTimetableFor(pattern)
			patternsByKey[key] = pattern
		}

		tripTimes := make([]realtime.StopTime, len(stSlice))
		for i, st := range stSlice {
			tripTimes[i] = realtime.StopTime{
				StopSequence:     st.StopSequence,
				StopId:           realtime.FeedScopedId{FeedId: m.feedId, Id: st.StopId},
				ArrivalSeconds:   st.ArrivalTime,
				DepartureSeconds: st.DepartureTime,
				PredictionSource: realtime.SchedulePrediction,
			}
		}
		if err := pattern.ScheduledTimetable.AddTripTimes(&realtime.TripTimes{
			TripId:    realtime.FeedScopedId{FeedId: m.feedId, Id: trip.TripId},
			StopTimes: tripTimes,
		}); err != nil {
			return fmt.Errorf("gtfsmodel: building scheduled timetable for trip %s: %w", trip.TripId, err)
		}

		m.patternsByTrip[trip.TripId] = pattern
		m.serviceIdByTrip[trip.TripId] = trip.ServiceId
	}

	return nil
}

func patternKey(stops []realtime.FeedScopedId) string {
	parts := make([]string, len(stops))
	for i, s := range stops {
		parts[i] = s.Id
	}
	return strings.Join(parts, ">")
}

// scheduledTimetableFor builds the always-valid baseline timetable a
// Pattern carries. business/realtime never constructs one of these
// itself (NewTimetableBuffer only deals in per-service-date timetables),
// so the adapter that owns static schedule data is responsible for it.
func scheduledTimetableFor(pattern *realtime.Pattern) *realtime.Timetable {
	return realtime.NewScheduledTimetable(pattern)
}

// FeedId implements realtime.TransitModel.
func (m *Model) FeedId() string { return m.feedId }

// Location implements realtime.TransitModel.
func (m *Model) Location() *time.Location { return m.loc }

// LookupPattern implements realtime.TransitModel.
func (m *Model) LookupPattern(tripId realtime.FeedScopedId) (*realtime.Pattern, bool) {
	if tripId.FeedId != m.feedId {
		return nil, false
	}
	pattern, found := m.patternsByTrip[tripId.Id]
	return pattern, found
}

// LookupStop implements realtime.TransitModel.
func (m *Model) LookupStop(stopId realtime.FeedScopedId) (realtime.Stop, bool) {
	stop, found := m.stopsById[stopId.String()]
	return stop, found
}

// LookupTripOnServiceDate implements realtime.TransitModel. ref is
// expected in "tripId@YYYY-MM-DD" form, matching
// EntityResolver.Resolve's key construction and SIRI's raw
// datedVehicleJourneyRef/estimatedVehicleJourneyCode values when those
// already happen to carry that shape. A trip whose calendar service does
// not actually run on serviceDate (per gtfs.GetActiveServiceIds) is
// reported unresolved rather than handed back with a stale pairing.
func (m *Model) LookupTripOnServiceDate(ref string) (*realtime.TripOnServiceDate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, found := m.tripsOnDate[ref]; found {
		return cached, true
	}

	tripId, serviceDate, ok := splitTripRef(ref)
	if !ok {
		return nil, false
	}
	pattern, found := m.LookupPattern(realtime.FeedScopedId{FeedId: m.feedId, Id: tripId})
	if !found {
		return nil, false
	}
	if !m.isServiceActive(tripId, serviceDate) {
		return nil, false
	}
	trip := &realtime.TripOnServiceDate{
		TripId:      realtime.FeedScopedId{FeedId: m.feedId, Id: tripId},
		ServiceDate: serviceDate,
		Pattern:     pattern,
	}
	m.tripsOnDate[ref] = trip
	return trip, true
}

// isServiceActive reports whether tripId's calendar service runs on
// serviceDate, consulting gtfs.GetActiveServiceIds (calendar and
// calendar_date rows) and caching the active set per service date so
// resolving many trips on the same day only queries it once.
func (m *Model) isServiceActive(tripId string, serviceDate realtime.ServiceDate) bool {
	serviceId, found := m.serviceIdByTrip[tripId]
	if !found {
		return false
	}

	key := serviceDate.String()
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	active, cached := m.activeServiceCache[key]
	if !cached {
		ids, err := gtfs.GetActiveServiceIds(m.db, m.dataSet, serviceDate.Midnight(m.loc))
		if err != nil {
			ids = nil
		}
		active = make(map[string]bool, len(ids))
		for _, id := range ids {
			active[id] = true
		}
		m.activeServiceCache[key] = active
	}
	return active[serviceId]
}

func splitTripRef(ref string) (tripId string, serviceDate realtime.ServiceDate, ok bool) {
	at := strings.LastIndex(ref, "@")
	if at == -1 {
		return "", realtime.ServiceDate{}, false
	}
	t, err := time.Parse("2006-01-02", ref[at+1:])
	if err != nil {
		return "", realtime.ServiceDate{}, false
	}
	return ref[:at], realtime.NewServiceDate(t), true
}

// SynthesizePattern implements realtime.TransitModel. Patterns built this
// way are cached by stop sequence so repeated divergent trips on the
// same detour share one *Pattern instance, preserving pointer identity
// (spec.md's "stable opaque handle").
func (m *Model) SynthesizePattern(routeId string, stops []realtime.FeedScopedId) *realtime.Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := routeId + "|" + patternKey(stops)
	if pattern, found := m.synthesized[key]; found {
		return pattern
	}
	m.synthesizedCount++
	pattern := &realtime.Pattern{
		Id:                       realtime.FeedScopedId{FeedId: m.feedId, Id: fmt.Sprintf("synthesized:%d", m.synthesizedCount)},
		RouteId:                  routeId,
		Stops:                    stops,
		CreatedByRealtimeUpdater: true,
	}
	pattern.ScheduledTimetable = scheduledTimetableFor(pattern)
	m.synthesized[key] = pattern
	return pattern
}
