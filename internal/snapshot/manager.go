package snapshot

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ViSearch/internal/indexing"
)

// Manager tracks the current generation, distributes snapshots to readers,
// and manages segment reference counts.
//
// Concurrency model:
//   - generationMu (RWMutex): Read-locked for snapshot acquisition,
//     write-locked for refresh updates.
//   - snapshotsMu (Mutex): Protects the activeSnapshots map.
//   - Lock ordering: generationMu → snapshotsMu → SegmentRef.mu
//     Never acquire generationMu while holding snapshotsMu or SegmentRef.mu.
type Manager struct {
	generationMu sync.RWMutex

	currentGeneration uint64
	currentSegments   []*SegmentRef // oldest first
	closed            bool

	snapshotsMu     sync.Mutex
	activeSnapshots map[uint64]*Snapshot

	nextSnapshotID atomic.Uint64

	logger *zap.Logger

	// LeakThreshold is the duration after which a held snapshot is considered
	// a potential leak. Zero disables leak detection.
	LeakThreshold time.Duration
}

// NewManager creates a Manager at generation 0 with no segments.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		activeSnapshots: make(map[uint64]*Snapshot),
		logger:          logger,
		LeakThreshold:   5 * time.Minute,
	}
}

// Acquire creates a new Snapshot pinned to the current generation.
// The caller MUST call Snapshot.Release() when done.
func (m *Manager) Acquire() (*Snapshot, error) {
	m.generationMu.RLock()

	if m.closed {
		m.generationMu.RUnlock()
		return nil, ErrManagerClosed
	}

	generation := m.currentGeneration
	segments := make([]*SegmentRef, len(m.currentSegments))
	for i, ref := range m.currentSegments {
		ref.Pin()
		segments[i] = ref
	}

	m.generationMu.RUnlock()

	snap := &Snapshot{
		ID:         m.nextSnapshotID.Add(1),
		Generation: generation,
		AcquiredAt: time.Now(),
		Segments:   segments,
		manager:    m,
	}

	m.snapshotsMu.Lock()
	m.activeSnapshots[snap.ID] = snap
	m.snapshotsMu.Unlock()

	m.logger.Debug("snapshot acquired",
		zap.Uint64("snapshot_id", snap.ID),
		zap.Uint64("generation", snap.Generation),
		zap.Int("segments", len(segments)),
	)

	return snap, nil
}

// Segments returns the segments of the current generation, oldest first.
func (m *Manager) Segments() []*indexing.Segment {
	m.generationMu.RLock()
	defer m.generationMu.RUnlock()

	out := make([]*indexing.Segment, len(m.currentSegments))
	for i, ref := range m.currentSegments {
		out[i] = ref.Segment()
	}
	return out
}

// UpdateGeneration atomically publishes a new generation and segment set.
// Segment values already published are carried forward; a changed value
// under the same ID (deletes applied) gets a new ref. It returns the IDs
// of segment values that were dropped and are no longer pinned.
func (m *Manager) UpdateGeneration(newGeneration uint64, segments []*indexing.Segment) []string {
	m.generationMu.Lock()
	defer m.generationMu.Unlock()

	if newGeneration <= m.currentGeneration {
		panic(fmt.Sprintf("snapshot: generation must be monotonically increasing: current=%d, new=%d",
			m.currentGeneration, newGeneration))
	}

	existing := make(map[*indexing.Segment]*SegmentRef, len(m.currentSegments))
	for _, ref := range m.currentSegments {
		existing[ref.Segment()] = ref
	}

	newRefs := make([]*SegmentRef, 0, len(segments))
	kept := make(map[*SegmentRef]bool, len(segments))
	for _, seg := range segments {
		ref, ok := existing[seg]
		if !ok {
			ref = NewSegmentRef(seg)
			ref.SetPublished(true)
		}
		kept[ref] = true
		newRefs = append(newRefs, ref)
	}

	var reclaimable []string
	for _, ref := range m.currentSegments {
		if !kept[ref] {
			ref.SetPublished(false)
			if ref.CanReclaim() {
				reclaimable = append(reclaimable, ref.SegmentID())
			}
		}
	}

	m.currentGeneration = newGeneration
	m.currentSegments = newRefs

	m.logger.Info("generation updated",
		zap.Uint64("generation", newGeneration),
		zap.Int("segments", len(newRefs)),
		zap.Int("reclaimable", len(reclaimable)),
	)

	return reclaimable
}

// Close stops handing out snapshots. Snapshots already held stay valid.
func (m *Manager) Close() {
	m.generationMu.Lock()
	defer m.generationMu.Unlock()
	m.closed = true
}

// CurrentGeneration returns the current generation.
func (m *Manager) CurrentGeneration() uint64 {
	m.generationMu.RLock()
	defer m.generationMu.RUnlock()
	return m.currentGeneration
}

// ActiveSnapshotCount returns the number of currently held snapshots.
func (m *Manager) ActiveSnapshotCount() int {
	m.snapshotsMu.Lock()
	defer m.snapshotsMu.Unlock()
	return len(m.activeSnapshots)
}

// SegmentRefCount returns the reference count of the published value of a
// segment, or -1 if unknown.
func (m *Manager) SegmentRefCount(segmentID string) int64 {
	m.generationMu.RLock()
	defer m.generationMu.RUnlock()
	for _, ref := range m.currentSegments {
		if ref.SegmentID() == segmentID {
			return ref.RefCount()
		}
	}
	return -1
}

// DetectLeaks returns snapshots that have been held longer than LeakThreshold.
func (m *Manager) DetectLeaks() []*Snapshot {
	if m.LeakThreshold <= 0 {
		return nil
	}

	m.snapshotsMu.Lock()
	defer m.snapshotsMu.Unlock()

	var leaks []*Snapshot
	for _, snap := range m.activeSnapshots {
		if snap.HeldDuration() > m.LeakThreshold {
			leaks = append(leaks, snap)
		}
	}
	return leaks
}

func (m *Manager) releaseSnapshot(snap *Snapshot) {
	m.snapshotsMu.Lock()
	delete(m.activeSnapshots, snap.ID)
	m.snapshotsMu.Unlock()

	m.logger.Debug("snapshot released",
		zap.Uint64("snapshot_id", snap.ID),
		zap.Uint64("generation", snap.Generation),
		zap.Duration("held_duration", snap.HeldDuration()),
	)
}
