package realtime

import (
	"sync"
)

// TimetableBuffer is the mutable builder a SnapshotSource exclusively
// owns: it accumulates realtime updates, performing copy-on-write on the
// structures it touches, and commits periodically into an immutable
// Snapshot. spec.md §4.B describes its contract in full; this type
// implements it directly.
//
// A single writer goroutine is assumed (spec.md §5), but TimetableBuffer
// guards its own fields with a mutex anyway so a concurrent read-only
// caller (the admin stats endpoint, SPEC_FULL.md §4) can safely inspect
// counts without racing the writer — it does not weaken the single-writer
// contract on the mutating methods themselves.
type TimetableBuffer struct {
	mu sync.Mutex

	timetables            map[*Pattern]*timetableSet
	realtimeAddedPatterns map[TripIdAndServiceDate]*Pattern
	patternsForStop       map[FeedScopedId]*patternSet
	dirtyTimetables       map[*Timetable]struct{}
	dirty                 bool
	frozen                bool

	log                Logger
	transitLayerUpdater TransitLayerUpdater
}

// NewTimetableBuffer builds an empty TimetableBuffer. log and
// transitLayerUpdater may both be nil; transitLayerUpdater, when set, is
// notified inside Commit before the snapshot is published (spec.md §4.B
// step 3).
func NewTimetableBuffer(log Logger, transitLayerUpdater TransitLayerUpdater) *TimetableBuffer {
	return &TimetableBuffer{
		timetables:            make(map[*Pattern]*timetableSet),
		realtimeAddedPatterns: make(map[TripIdAndServiceDate]*Pattern),
		patternsForStop:       make(map[FeedScopedId]*patternSet),
		dirtyTimetables:       make(map[*Timetable]struct{}),
		log:                   log,
		transitLayerUpdater:   transitLayerUpdater,
	}
}

// Resolve returns the realtime-updated timetable for (pattern, date) if
// one exists in this buffer; otherwise it falls back to
// pattern.ScheduledTimetable. Resolve never fails and never mutates.
func (b *TimetableBuffer) Resolve(pattern *Pattern, date ServiceDate) *Timetable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveLocked(pattern, date)
}

func (b *TimetableBuffer) resolveLocked(pattern *Pattern, date ServiceDate) *Timetable {
	if tt := b.timetables[pattern].find(date); tt != nil {
		return tt
	}
	return pattern.ScheduledTimetable
}

// Update applies updatedTripTimes to pattern on serviceDate, performing
// copy-on-write as needed. See spec.md §4.B for the full semantics.
func (b *TimetableBuffer) Update(pattern *Pattern, updatedTripTimes *TripTimes, serviceDate ServiceDate) error {
	if pattern == nil {
		return &UpdateError{Kind: InvalidArgument, Message: "pattern must not be nil"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return &UpdateError{Kind: ReadOnly, TripId: updatedTripTimes.TripId, Message: "buffer is frozen"}
	}

	tt := b.resolveLocked(pattern, serviceDate)
	target := tt
	if _, isDirty := b.dirtyTimetables[tt]; !isDirty {
		target = copyOf(tt, serviceDate)
		set := b.timetables[pattern].withReplaced(target)
		b.timetables[pattern] = set
		b.dirtyTimetables[target] = struct{}{}
		b.dirty = true
	}

	i := target.TripIndex(updatedTripTimes.TripId)
	var err error
	if i == -1 {
		err = target.AddTripTimes(updatedTripTimes)
	} else {
		err = target.SetTripTimes(i, updatedTripTimes)
	}
	if err != nil {
		return err
	}

	if pattern.CreatedByRealtimeUpdater {
		key := TripIdAndServiceDate{TripId: updatedTripTimes.TripId, ServiceDate: serviceDate}
		b.realtimeAddedPatterns[key] = pattern
		for _, stop := range pattern.Stops {
			b.patternsForStop[stop] = b.patternsForStop[stop].withAdded(pattern)
		}
	}
	b.dirty = true
	return nil
}

// RevertTripToScheduledPattern undoes a realtime-added-pattern assignment
// for (tripId, serviceDate), removing the trip's times from whichever
// realtime-synthesized pattern timetable(s) hold them. Returns false if
// no such assignment was recorded.
//
// If more than one timetable on serviceDate happens to hold trip-times
// for tripId, this is treated as ambiguous: both are logged and left
// untouched (spec.md §9's documented conservative behaviour), and the
// method still returns true since the mapping itself was removed.
func (b *TimetableBuffer) RevertTripToScheduledPattern(tripId FeedScopedId, serviceDate ServiceDate) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return false, &UpdateError{Kind: ReadOnly, TripId: tripId, Message: "buffer is frozen"}
	}

	key := TripIdAndServiceDate{TripId: tripId, ServiceDate: serviceDate}
	pattern, present := b.realtimeAddedPatterns[key]
	if !present {
		return false, nil
	}
	delete(b.realtimeAddedPatterns, key)
	b.dirty = true

	set := b.timetables[pattern]
	if set == nil {
		return true, nil
	}

	var holders []*Timetable
	for _, tt := range set.entries {
		if tt.IsValidFor(serviceDate) && tt.TripIndex(tripId) != -1 {
			holders = append(holders, tt)
		}
	}
	if len(holders) > 1 {
		if b.log != nil {
			b.log.Printf("realtime: ambiguous revert for trip %s on %s: %d timetables hold its times, leaving all unchanged",
				tripId, serviceDate, len(holders))
		}
		return true, nil
	}
	if len(holders) == 0 {
		return true, nil
	}

	tt := holders[0]
	target := tt
	if _, isDirty := b.dirtyTimetables[tt]; !isDirty {
		target = copyOf(tt, serviceDate)
		b.timetables[pattern] = set.withReplaced(target)
		b.dirtyTimetables[target] = struct{}{}
	}
	i := target.TripIndex(tripId)
	if i == -1 {
		return true, nil
	}
	if err := target.removeTripTimes(i); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpiredData removes every timetable with a service date on or
// before beforeDate, and every realtimeAddedPatterns entry on or before
// beforeDate. Returns true if anything was removed.
func (b *TimetableBuffer) PurgeExpiredData(beforeDate ServiceDate) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return false, &UpdateError{Kind: ReadOnly, Message: "buffer is frozen"}
	}

	removedAny := false
	for pattern, set := range b.timetables {
		next, removed := set.withoutBeforeOrOn(beforeDate)
		if removed {
			removedAny = true
		}
		if next == nil {
			delete(b.timetables, pattern)
		} else {
			b.timetables[pattern] = next
		}
	}

	for key := range b.realtimeAddedPatterns {
		if !beforeDate.Before(key.ServiceDate) {
			delete(b.realtimeAddedPatterns, key)
			removedAny = true
		}
	}

	if removedAny {
		b.dirty = true
	}
	return removedAny, nil
}

// Clear removes every pattern keyed under feedId, and every
// realtimeAddedPatterns entry whose trip id is scoped to feedId.
func (b *TimetableBuffer) Clear(feedId string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	removedAny := false
	for pattern := range b.timetables {
		if pattern.Id.FeedId == feedId {
			delete(b.timetables, pattern)
			removedAny = true
		}
	}
	for key := range b.realtimeAddedPatterns {
		if key.TripId.FeedId == feedId {
			delete(b.realtimeAddedPatterns, key)
			removedAny = true
		}
	}
	if removedAny {
		b.dirty = true
	}
}

// Commit freezes the buffer's current state into a new Snapshot and
// publishes nothing itself — that is SnapshotSource's job. It returns nil
// if nothing has changed since the last commit and force is false
// (P6/commit idempotence).
func (b *TimetableBuffer) Commit(force bool) *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty && !force {
		return nil
	}

	snapshot := &Snapshot{
		timetables:            make(map[*Pattern]*timetableSet, len(b.timetables)),
		realtimeAddedPatterns: make(map[TripIdAndServiceDate]*Pattern, len(b.realtimeAddedPatterns)),
		patternsForStop:       make(map[FeedScopedId]*patternSet, len(b.patternsForStop)),
	}
	for pattern, set := range b.timetables {
		set.freeze()
		snapshot.timetables[pattern] = set.clone()
	}
	for key, pattern := range b.realtimeAddedPatterns {
		snapshot.realtimeAddedPatterns[key] = pattern
	}
	for stop, set := range b.patternsForStop {
		snapshot.patternsForStop[stop] = set
	}

	if b.transitLayerUpdater != nil {
		dirty := make([]*Timetable, 0, len(b.dirtyTimetables))
		for tt := range b.dirtyTimetables {
			dirty = append(dirty, tt)
		}
		all := make(map[*Pattern][]*Timetable, len(b.timetables))
		for pattern, set := range b.timetables {
			all[pattern] = set.slice()
		}
		b.transitLayerUpdater.Update(dirty, all)
	}

	b.dirtyTimetables = make(map[*Timetable]struct{})
	b.dirty = false
	snapshot.readOnly = true
	return snapshot
}

// freeze marks the buffer itself read-only, refusing any further
// mutation. Exists to catch programming errors such as a caller
// continuing to use a TimetableBuffer a SnapshotSource has retired —
// spec.md §9/§5 notes this is a defensive guard, not a feature the
// single-writer contract otherwise requires.
func (b *TimetableBuffer) freeze() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true
}

// patternCount returns the number of patterns currently tracked, for
// admin/introspection reporting.
func (b *TimetableBuffer) patternCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timetables)
}

// isDirty reports whether any mutation has occurred since the last
// commit.
func (b *TimetableBuffer) isDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}
