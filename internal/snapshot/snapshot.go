package snapshot

import (
	"errors"
	"sync/atomic"
	"time"

	"ViSearch/internal/indexing"
)

var (
	ErrSnapshotReleased = errors.New("snapshot already released")
	ErrManagerClosed    = errors.New("snapshot manager closed")
)

// Snapshot represents a point-in-time view of a refreshed generation.
// It pins all segments in the generation so readers are isolated from
// later refreshes and deletes.
//
// Callers MUST call Release() when done. Failure to do so will leak
// segment references and keep old segment values alive.
type Snapshot struct {
	// ID is a unique identifier for this snapshot.
	ID uint64

	// Generation is the refreshed generation this snapshot observes.
	Generation uint64

	// AcquiredAt is when this snapshot was acquired.
	AcquiredAt time.Time

	// Segments are the segment references pinned by this snapshot, oldest first.
	Segments []*SegmentRef

	manager  *Manager
	released atomic.Bool
}

// Readers returns the pinned segments, oldest first.
func (s *Snapshot) Readers() []*indexing.Segment {
	out := make([]*indexing.Segment, len(s.Segments))
	for i, ref := range s.Segments {
		out[i] = ref.Segment()
	}
	return out
}

// LiveDocCount returns the number of live docs visible to this snapshot.
func (s *Snapshot) LiveDocCount() int {
	n := 0
	for _, ref := range s.Segments {
		n += ref.Segment().LiveDocCount()
	}
	return n
}

// Release unpins all segments and removes this snapshot from the manager.
// It is safe to call Release multiple times; subsequent calls are no-ops.
func (s *Snapshot) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return nil
	}

	for _, ref := range s.Segments {
		ref.Unpin()
	}

	if s.manager != nil {
		s.manager.releaseSnapshot(s)
	}

	return nil
}

// Released returns true if this snapshot has been released.
func (s *Snapshot) Released() bool {
	return s.released.Load()
}

// HeldDuration returns how long this snapshot has been held.
func (s *Snapshot) HeldDuration() time.Duration {
	return time.Since(s.AcquiredAt)
}
