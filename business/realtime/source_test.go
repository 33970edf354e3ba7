package realtime

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestSnapshotSource_InitialSnapshotIsEmptyNotNil(t *testing.T) {
	is := is.New(t)
	source := NewSnapshotSource(Config{}, nil, nil)
	snapshot := source.CurrentSnapshot()
	is.True(snapshot != nil)
	is.True(snapshot.IsEmpty())
}

func TestSnapshotSource_AfterApply_RespectsMaxFrequency(t *testing.T) {
	is := is.New(t)
	source := NewSnapshotSource(Config{MaxSnapshotFrequency: time.Hour}, nil, nil)
	pattern := testPattern("f", "p1", "r1", "s1")

	is.NoErr(source.Buffer().Update(pattern, tripTimesFor("f", "t1", 0, 0), NewServiceDate(dayAt(2026, 7, 31))))
	is.True(source.AfterApply() == nil)
	is.True(source.CurrentSnapshot().IsEmpty())

	is.True(source.FlushBuffer() != nil)
	is.True(!source.CurrentSnapshot().IsEmpty())
}

func TestSnapshotSource_AfterApply_ZeroFrequencyCommitsEveryBatch(t *testing.T) {
	is := is.New(t)
	source := NewSnapshotSource(Config{}, nil, nil)
	pattern := testPattern("f", "p1", "r1", "s1")

	is.NoErr(source.Buffer().Update(pattern, tripTimesFor("f", "t1", 0, 0), NewServiceDate(dayAt(2026, 7, 31))))
	snapshot := source.AfterApply()
	is.True(snapshot != nil)
	is.Equal(snapshot.PatternCount(), 1)
}

func TestSnapshotSource_Stats(t *testing.T) {
	is := is.New(t)
	source := NewSnapshotSource(Config{}, nil, nil)
	pattern := testPattern("f", "p1", "r1", "s1")
	is.NoErr(source.Buffer().Update(pattern, tripTimesFor("f", "t1", 0, 0), NewServiceDate(dayAt(2026, 7, 31))))

	stats := source.Stats()
	is.Equal(stats.PatternCount, 1)
	is.True(stats.Dirty)
}
