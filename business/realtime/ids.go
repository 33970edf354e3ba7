// Package realtime implements the snapshot engine: a single-writer,
// many-reader, copy-on-write timetable store that publishes periodic
// immutable snapshots of the realtime state layered on top of a static
// transit schedule.
package realtime

import (
	"fmt"
	"time"

	"github.com/OpenTransitTools/transitsnap/business/data/gtfs"
)

// FeedScopedId identifies a record that is only unique within the feed it
// came from. Multiple feeds may share local ids, so every external
// reference carries the feed id alongside it.
type FeedScopedId struct {
	FeedId string
	Id     string
}

func (f FeedScopedId) String() string {
	return fmt.Sprintf("%s:%s", f.FeedId, f.Id)
}

// ServiceDate is the local calendar date a trip belongs to. Two
// ServiceDates are equal iff they name the same year/month/day; time of
// day and location are not part of the identity.
type ServiceDate struct {
	year  int
	month time.Month
	day   int
}

// NewServiceDate truncates at to a ServiceDate in at's own location.
func NewServiceDate(at time.Time) ServiceDate {
	year, month, day := at.Date()
	return ServiceDate{year: year, month: month, day: day}
}

// Equal reports whether d and other name the same calendar date.
func (d ServiceDate) Equal(other ServiceDate) bool {
	return d == other
}

// Before reports whether d names a calendar date strictly before other.
func (d ServiceDate) Before(other ServiceDate) bool {
	if d.year != other.year {
		return d.year < other.year
	}
	if d.month != other.month {
		return d.month < other.month
	}
	return d.day < other.day
}

// Midnight returns the 12am instant of this service date in loc, via
// business/data/gtfs.Get12AmTime — the same helper the static schedule
// loader uses to anchor a schedule-seconds offset, so the engine's
// seconds-since-midnight math stays consistent with it across daylight
// saving transitions.
func (d ServiceDate) Midnight(loc *time.Location) time.Time {
	return gtfs.Get12AmTime(time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc))
}

func (d ServiceDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// TripIdAndServiceDate is the compound key pairing a feed-scoped trip id
// with the local service date it runs on.
type TripIdAndServiceDate struct {
	TripId      FeedScopedId
	ServiceDate ServiceDate
}

func (k TripIdAndServiceDate) String() string {
	return fmt.Sprintf("%s@%s", k.TripId, k.ServiceDate)
}
