package realtime

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// transitHolidayCalendar reports whether a given instant falls on a
// holiday a transit agency observes with reduced/Sunday-type service.
// Grounded directly on the teacher's model-feature holiday calendar; here
// it informs EntityResolver's fuzzy-match fallback instead of an ML
// feature vector.
//
// TODO: should be customizable per agency rather than hardcoded as it is now.
type transitHolidayCalendar struct {
	calendar *cal.BusinessCalendar
}

func newTransitHolidayCalendar() *transitHolidayCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.MemorialDay,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
		us.Juneteenth,
	)
	return &transitHolidayCalendar{calendar: calendar}
}

func (t *transitHolidayCalendar) isHoliday(at time.Time) bool {
	_, observed, _ := t.calendar.IsHoliday(at)
	return observed
}

// EntityResolver turns an EstimatedVehicleJourney into a concrete
// TripOnServiceDate, trying each reference in the precedence order
// spec.md §4.F documents. An unparseable or unmatched reference falls
// through to the next rather than failing the whole journey; only
// exhausting every reference (and, if configured, the fuzzy matcher)
// counts as a resolution failure.
type EntityResolver struct {
	model    TransitModel
	fuzzy    FuzzyTripMatcher
	holidays *transitHolidayCalendar
}

// NewEntityResolver builds an EntityResolver against model. fuzzy may be
// nil, in which case journeys lacking a usable explicit reference are
// reported unresolved instead of fuzzy-matched.
func NewEntityResolver(model TransitModel, fuzzy FuzzyTripMatcher) *EntityResolver {
	return &EntityResolver{
		model:    model,
		fuzzy:    fuzzy,
		holidays: newTransitHolidayCalendar(),
	}
}

// Resolve returns the TripOnServiceDate journey refers to, and whether
// resolution succeeded.
func (r *EntityResolver) Resolve(journey EstimatedVehicleJourney) (*TripOnServiceDate, bool) {
	if ref := journey.FramedVehicleJourneyRef; ref != nil {
		if date, ok := parseISODate(ref.DataFrameRef); ok {
			key := ref.DatedVehicleJourneyRef + "@" + date.String()
			if trip, found := r.model.LookupTripOnServiceDate(key); found {
				return trip, true
			}
		}
	}

	if journey.DatedVehicleJourneyRef != nil {
		if trip, found := r.model.LookupTripOnServiceDate(*journey.DatedVehicleJourneyRef); found {
			return trip, true
		}
	}

	if journey.EstimatedVehicleJourneyCode != nil {
		if trip, found := r.model.LookupTripOnServiceDate(*journey.EstimatedVehicleJourneyCode); found {
			return trip, true
		}
	}

	if r.fuzzy == nil {
		return nil, false
	}
	isHoliday := r.isHolidayService(journey)
	return r.fuzzy.Match(journey, isHoliday)
}

// isHolidayService reports whether journey's first aimed call falls on an
// observed holiday, used as a hint by the fuzzy matcher to prefer
// Sunday/holiday service patterns over a weekday guess.
func (r *EntityResolver) isHolidayService(journey EstimatedVehicleJourney) bool {
	for _, call := range journey.Calls {
		if call.AimedArrivalTime != nil {
			return r.holidays.isHoliday(*call.AimedArrivalTime)
		}
		if call.AimedDepartureTime != nil {
			return r.holidays.isHoliday(*call.AimedDepartureTime)
		}
	}
	return false
}

func parseISODate(s string) (ServiceDate, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ServiceDate{}, false
	}
	return NewServiceDate(t), true
}
