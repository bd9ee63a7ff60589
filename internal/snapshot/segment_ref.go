package snapshot

import (
	"sync"
	"sync/atomic"

	"ViSearch/internal/indexing"
)

// SegmentRef tracks the reference count for one published segment value.
// Applying deletes to a segment publishes a new value under the same ID,
// so several refs may share an ID while older readers drain.
// It is safe for concurrent use.
type SegmentRef struct {
	segment   *indexing.Segment
	refCount  atomic.Int64
	mu        sync.Mutex // protects reclaim-related checks
	published bool       // true if part of the current generation
}

// NewSegmentRef creates a new SegmentRef with refCount 0.
func NewSegmentRef(seg *indexing.Segment) *SegmentRef {
	return &SegmentRef{
		segment: seg,
	}
}

// SegmentID returns the segment's identifier.
func (r *SegmentRef) SegmentID() string {
	return r.segment.ID()
}

// Segment returns the segment value this ref pins.
func (r *SegmentRef) Segment() *indexing.Segment {
	return r.segment
}

// Pin increments the reference count. Called when a snapshot acquires this segment.
func (r *SegmentRef) Pin() {
	r.refCount.Add(1)
}

// Unpin decrements the reference count. Called when a snapshot releases this segment.
func (r *SegmentRef) Unpin() {
	newVal := r.refCount.Add(-1)
	if newVal < 0 {
		panic("snapshot: segment ref count went negative for " + r.SegmentID())
	}
}

// RefCount returns the current reference count.
func (r *SegmentRef) RefCount() int64 {
	return r.refCount.Load()
}

// SetPublished marks whether this segment value belongs to the current generation.
func (r *SegmentRef) SetPublished(published bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = published
}

// Published returns whether this segment value belongs to the current generation.
func (r *SegmentRef) Published() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.published
}

// CanReclaim returns true if the segment value can be dropped.
// A segment is reclaimable when its reference count is zero AND it is not
// part of the current generation.
func (r *SegmentRef) CanReclaim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refCount.Load() == 0 && !r.published
}
