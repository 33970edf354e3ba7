package realtime

import (
	"sync/atomic"
	"time"
)

// BackwardsDelayPropagation controls how a late arrival observed further
// down a trip is propagated back onto preceding stop-time updates that
// carry no data of their own.
type BackwardsDelayPropagation int32

const (
	// RequiredNoData propagates only onto stops with no data at all.
	RequiredNoData BackwardsDelayPropagation = iota
	// Required propagates onto stops with no data and onto skipped
	// stops.
	Required
	// Always propagates onto every stop that carries no explicit realtime
	// data of its own; stops with explicit realtime data are never
	// overwritten.
	Always
)

// Config holds the tunables spec.md §6 names.
type Config struct {
	// MaxSnapshotFrequency is the minimum interval between commits. Zero
	// means "commit on every batch".
	MaxSnapshotFrequency time.Duration
	// PurgeExpiredDataAtCommit, when true, purges timetables for dates
	// strictly before "today" at every commit.
	PurgeExpiredDataAtCommit bool
	BackwardsDelayPropagation BackwardsDelayPropagation
}

// Stats is a point-in-time, read-only view of engine health, exposed for
// admin/introspection reporting (SPEC_FULL.md §4).
type Stats struct {
	PatternCount             int       `json:"pattern_count"`
	Dirty                    bool      `json:"dirty"`
	SnapshotIsEmpty          bool      `json:"snapshot_is_empty"`
	SnapshotHasRealtimeAdded bool      `json:"snapshot_has_realtime_added"`
	LastCommitAt             time.Time `json:"last_commit_at"`
}

// SnapshotSource is the lifecycle owner spec.md §4.D describes: it holds
// the single active TimetableBuffer, decides when to commit it, and
// publishes the resulting Snapshot behind a wait-free, memory-ordered
// handoff so readers never block and never observe a partially published
// generation.
type SnapshotSource struct {
	cfg    Config
	buffer *TimetableBuffer
	clock  func() time.Time

	current    atomic.Pointer[Snapshot]
	lastCommit time.Time
}

// NewSnapshotSource builds a SnapshotSource with an empty initial
// Snapshot already published, so CurrentSnapshot never returns nil.
func NewSnapshotSource(cfg Config, log Logger, transitLayerUpdater TransitLayerUpdater) *SnapshotSource {
	s := &SnapshotSource{
		cfg:    cfg,
		buffer: NewTimetableBuffer(log, transitLayerUpdater),
		clock:  time.Now,
	}
	s.lastCommit = s.clock()
	s.current.Store(&Snapshot{
		timetables:            make(map[*Pattern]*timetableSet),
		realtimeAddedPatterns: make(map[TripIdAndServiceDate]*Pattern),
		patternsForStop:       make(map[FeedScopedId]*patternSet),
		readOnly:              true,
	})
	return s
}

// CurrentSnapshot is the wait-free read every router worker calls once
// per search and retains for its duration. The returned pointer is
// acquired with the same memory ordering the writer used to publish it
// (spec.md §5).
func (s *SnapshotSource) CurrentSnapshot() *Snapshot {
	return s.current.Load()
}

// Buffer exposes the active buffer so an UpdateHandler can apply
// translated updates to it. Only the single writer goroutine may call
// buffer-mutating methods.
func (s *SnapshotSource) Buffer() *TimetableBuffer {
	return s.buffer
}

// AfterApply should be called by the writer once per batch, after
// feeding every update in the batch to s.Buffer(). It commits and
// publishes a new Snapshot if the configured MaxSnapshotFrequency
// interval has elapsed since the last commit.
func (s *SnapshotSource) AfterApply() *Snapshot {
	if s.cfg.MaxSnapshotFrequency > 0 && s.clock().Sub(s.lastCommit) < s.cfg.MaxSnapshotFrequency {
		return nil
	}
	return s.commitAndPublish(false)
}

// FlushBuffer forces an immediate commit regardless of
// MaxSnapshotFrequency, publishing a new Snapshot even if the buffer is
// not dirty.
func (s *SnapshotSource) FlushBuffer() *Snapshot {
	return s.commitAndPublish(true)
}

// PurgeExpiredData removes realtime data for service dates on or before
// beforeDate, marking the buffer dirty if anything was removed. When
// Config.PurgeExpiredDataAtCommit is set, every commit also runs this
// purge itself with yesterday's date as the cutoff.
func (s *SnapshotSource) PurgeExpiredData(beforeDate ServiceDate) (bool, error) {
	return s.buffer.PurgeExpiredData(beforeDate)
}

func (s *SnapshotSource) commitAndPublish(force bool) *Snapshot {
	if s.cfg.PurgeExpiredDataAtCommit {
		yesterday := NewServiceDate(s.clock().AddDate(0, 0, -1))
		if _, err := s.buffer.PurgeExpiredData(yesterday); err != nil {
			return nil
		}
	}
	snapshot := s.buffer.Commit(force)
	if snapshot == nil {
		return nil
	}
	s.lastCommit = s.clock()
	s.current.Store(snapshot)
	return snapshot
}

// Stats reports a point-in-time view of engine health.
func (s *SnapshotSource) Stats() Stats {
	snapshot := s.CurrentSnapshot()
	return Stats{
		PatternCount:             s.buffer.patternCount(),
		Dirty:                    s.buffer.isDirty(),
		SnapshotIsEmpty:          snapshot.IsEmpty(),
		SnapshotHasRealtimeAdded: snapshot.HasRealtimeAddedPatterns(),
		LastCommitAt:             s.lastCommit,
	}
}
