package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ViSearch/internal/analysis"
	"ViSearch/internal/index"
	"ViSearch/internal/indexing"
	"ViSearch/internal/query"
	"ViSearch/internal/snapshot"
)

var (
	ErrIndexNotFound    = errors.New("index not found")
	ErrIndexExists      = errors.New("index already exists")
	ErrInvalidIndexName = errors.New("invalid index name")
	ErrIndexBusy        = errors.New("index has active readers")
	ErrDocumentNotFound = errors.New("document not found")
)

const maxIndexNameLength = 255

// IndexInstance holds all runtime state for a single index.
type IndexInstance struct {
	Name      string
	CreatedAt time.Time

	analyzers *analysis.Registry
	lookup    analysis.Lookup

	schema atomic.Pointer[index.Schema]

	// Writer state (single-writer model). writerMu also serializes
	// refreshes and mapping updates.
	writerMu    sync.Mutex
	writer      *indexing.Writer
	generation  uint64
	nextSegment uint64

	// Snapshot manager for reader isolation.
	Snapshots *snapshot.Manager

	// SearchTimeout bounds each search; zero uses query.DefaultTimeout.
	SearchTimeout time.Duration

	logger *zap.Logger
}

// RefreshResult describes a completed refresh.
type RefreshResult struct {
	Generation uint64
	Segments   int
	Docs       int
	// Changed is false when the buffer was empty and nothing was published.
	Changed bool
}

// IndexInfo summarizes an index.
type IndexInfo struct {
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
	Generation      uint64    `json:"generation"`
	Segments        int       `json:"segments"`
	Docs            int       `json:"docs"`
	BufferedDocs    int       `json:"buffered_docs"`
	BufferBytes     int64     `json:"buffer_bytes"`
	ActiveSnapshots int       `json:"active_snapshots"`
	MappingVersion  uint32    `json:"mapping_version"`
	Fields          int       `json:"fields"`
}

// IndexManager manages multiple indexes within a single process.
type IndexManager struct {
	analyzers *analysis.Registry
	lookup    analysis.Lookup
	logger    *zap.Logger

	// SearchTimeout and MaxBufferedDocs are applied to indexes created from
	// now on. A write that fills the buffer triggers a refresh.
	SearchTimeout   time.Duration
	MaxBufferedDocs int

	mu      sync.RWMutex
	indexes map[string]*IndexInstance
}

// NewIndexManager creates an empty IndexManager. Documents are analyzed with
// analyzers; match query text is analyzed through lookup, which may cache.
func NewIndexManager(analyzers *analysis.Registry, lookup analysis.Lookup, logger *zap.Logger) *IndexManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookup == nil {
		lookup = analyzers
	}
	return &IndexManager{
		analyzers: analyzers,
		lookup:    lookup,
		logger:    logger.With(zap.String("component", "indexes")),
		indexes:   make(map[string]*IndexInstance),
	}
}

// ValidateIndexName checks name against the naming rules of index names:
// non-empty, lowercase, no leading _ - or +, and none of the reserved
// characters.
func ValidateIndexName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidIndexName, name)
	case len(name) > maxIndexNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIndexName, maxIndexNameLength)
	case strings.ToLower(name) != name:
		return fmt.Errorf("%w: %q must be lowercase", ErrInvalidIndexName, name)
	case strings.ContainsAny(name[:1], "_-+"):
		return fmt.Errorf("%w: %q must not start with '_', '-', or '+'", ErrInvalidIndexName, name)
	case strings.ContainsAny(name, `\/*?"<>| ,#:`):
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidIndexName, name)
	}
	return nil
}

// CreateIndex creates a new index with the given schema.
func (m *IndexManager) CreateIndex(name string, schema *index.Schema) (*IndexInstance, error) {
	if err := ValidateIndexName(name); err != nil {
		return nil, err
	}
	if schema == nil {
		schema = &index.Schema{}
	}
	if err := schema.Validate(m.analyzers); err != nil {
		return nil, err
	}
	schema.CreatedAt = time.Now().UTC()
	if schema.Version == 0 {
		schema.Version = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indexes[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrIndexExists, name)
	}

	logger := m.logger.With(zap.String("index", name))
	inst := &IndexInstance{
		Name:          name,
		CreatedAt:     schema.CreatedAt,
		analyzers:     m.analyzers,
		lookup:        m.lookup,
		writer:        indexing.NewWriter(schema, m.analyzers),
		Snapshots:     snapshot.NewManager(logger.With(zap.String("component", "snapshot"))),
		SearchTimeout: m.SearchTimeout,
		logger:        logger,
	}
	inst.schema.Store(schema)
	inst.writer.SetLimits(m.MaxBufferedDocs, 0)

	m.indexes[name] = inst
	logger.Info("index created", zap.Int("fields", len(schema.Fields)))
	return inst, nil
}

// DeleteIndex removes an index and all its data. An index with readers
// holding snapshots cannot be deleted.
func (m *IndexManager) DeleteIndex(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, exists := m.indexes[name]
	if !exists {
		return fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}

	if n := inst.Snapshots.ActiveSnapshotCount(); n > 0 {
		for _, snap := range inst.Snapshots.DetectLeaks() {
			m.logger.Warn("snapshot held past leak threshold",
				zap.String("index", name),
				zap.Uint64("snapshot_id", snap.ID),
				zap.Uint64("generation", snap.Generation),
				zap.Duration("held", snap.HeldDuration()),
			)
		}
		return fmt.Errorf("%w: %d active snapshots", ErrIndexBusy, n)
	}

	inst.Snapshots.Close()
	inst.writerMu.Lock()
	inst.writer.Release()
	inst.writerMu.Unlock()

	delete(m.indexes, name)
	m.logger.Info("index deleted", zap.String("index", name))
	return nil
}

// GetIndex returns the IndexInstance for the given name.
func (m *IndexManager) GetIndex(name string) (*IndexInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, exists := m.indexes[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}
	return inst, nil
}

// ListIndexes returns the sorted names of all indexes.
func (m *IndexManager) ListIndexes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.indexes))
	for name := range m.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of indexes.
func (m *IndexManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indexes)
}

// Schema returns the current mapping.
func (inst *IndexInstance) Schema() *index.Schema {
	return inst.schema.Load()
}

// PutMapping adds fields to the mapping. Existing fields cannot change.
func (inst *IndexInstance) PutMapping(fields []index.FieldDef) (*index.Schema, error) {
	inst.writerMu.Lock()
	defer inst.writerMu.Unlock()

	merged, err := inst.Schema().Merge(fields)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(inst.analyzers); err != nil {
		return nil, err
	}
	inst.writer.SetSchema(merged)
	inst.schema.Store(merged)

	inst.logger.Info("mapping updated",
		zap.Uint32("version", merged.Version),
		zap.Int("fields", len(merged.Fields)),
	)
	return merged, nil
}

// IndexDocument buffers doc. It reports whether the ID was new, counting
// both searchable and buffered versions.
func (inst *IndexInstance) IndexDocument(doc indexing.Document) (created bool, err error) {
	inst.writerMu.Lock()
	defer inst.writerMu.Unlock()

	exists, err := inst.exists(doc.ID)
	if err != nil {
		return false, err
	}
	if err := inst.writer.AddDocument(doc); err != nil {
		return false, err
	}
	if inst.writer.IsFull() {
		inst.logger.Debug("write buffer full, refreshing",
			zap.Int("buffered_docs", inst.writer.DocCount()),
			zap.Int64("buffer_bytes", inst.writer.MemoryUsed()),
		)
		inst.refreshLocked()
	}
	return !exists, nil
}

// DeleteDocument buffers a delete of id. It returns ErrDocumentNotFound,
// without buffering anything, if no version of the doc exists.
func (inst *IndexInstance) DeleteDocument(id string) error {
	inst.writerMu.Lock()
	defer inst.writerMu.Unlock()

	exists, err := inst.exists(id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %q", ErrDocumentNotFound, id)
	}
	return inst.writer.DeleteDocument(id)
}

// GetDocument returns the latest source of id, buffered or searchable.
func (inst *IndexInstance) GetDocument(id string) (map[string]any, error) {
	inst.writerMu.Lock()
	pending, err := inst.writer.Lookup(id)
	inst.writerMu.Unlock()
	if err != nil {
		return nil, err
	}
	switch {
	case pending.Buffered:
		return pending.Source, nil
	case pending.Deleted:
		return nil, fmt.Errorf("%w: %q", ErrDocumentNotFound, id)
	}

	snap, err := inst.Snapshots.Acquire()
	if err != nil {
		return nil, err
	}
	defer func() { _ = snap.Release() }()

	segs := snap.Readers()
	for i := len(segs) - 1; i >= 0; i-- {
		if docID, ok := segs[i].Lookup(id); ok {
			return segs[i].Source(docID)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDocumentNotFound, id)
}

// exists must be called with writerMu held.
func (inst *IndexInstance) exists(id string) (bool, error) {
	if id == "" {
		return false, indexing.ErrMissingID
	}
	pending, err := inst.writer.Lookup(id)
	if err != nil {
		return false, err
	}
	switch {
	case pending.Buffered:
		return true, nil
	case pending.Deleted:
		return false, nil
	}
	for _, seg := range inst.Snapshots.Segments() {
		if _, ok := seg.Lookup(id); ok {
			return true, nil
		}
	}
	return false, nil
}

// Refresh freezes the write buffer into a segment, applies buffered
// deletes to older segments, and publishes the result as a new generation.
func (inst *IndexInstance) Refresh() (RefreshResult, error) {
	inst.writerMu.Lock()
	defer inst.writerMu.Unlock()
	return inst.refreshLocked(), nil
}

// refreshLocked is Refresh with writerMu held.
func (inst *IndexInstance) refreshLocked() RefreshResult {
	current := inst.Snapshots.Segments()
	if !inst.writer.HasChanges() {
		return RefreshResult{
			Generation: inst.generation,
			Segments:   len(current),
			Docs:       liveDocs(current),
		}
	}

	inst.nextSegment++
	segID := fmt.Sprintf("seg_%06d", inst.nextSegment)
	flushed := inst.writer.Flush(segID)

	next := make([]*indexing.Segment, 0, len(current)+1)
	for _, seg := range current {
		seg = seg.WithDeletes(flushed.Tombstones)
		if seg.LiveDocCount() == 0 {
			continue
		}
		next = append(next, seg)
	}
	if flushed.Segment != nil && flushed.Segment.LiveDocCount() > 0 {
		next = append(next, flushed.Segment)
	}

	inst.generation++
	reclaimable := inst.Snapshots.UpdateGeneration(inst.generation, next)

	res := RefreshResult{
		Generation: inst.generation,
		Segments:   len(next),
		Docs:       liveDocs(next),
		Changed:    true,
	}
	inst.logger.Info("refresh complete",
		zap.Uint64("generation", res.Generation),
		zap.Int("segments", res.Segments),
		zap.Int("docs", res.Docs),
		zap.Int("tombstones", len(flushed.Tombstones)),
		zap.Int("reclaimable", len(reclaimable)),
	)
	return res
}

// Search runs req over a snapshot of the searchable segments.
func (inst *IndexInstance) Search(ctx context.Context, req query.SearchRequest) (*query.Result, error) {
	snap, err := inst.Snapshots.Acquire()
	if err != nil {
		return nil, err
	}
	defer func() { _ = snap.Release() }()

	searcher := query.NewSearcher(inst.Schema(), inst.lookup, snap.Readers())
	if inst.SearchTimeout > 0 {
		searcher.Timeout = inst.SearchTimeout
	}
	return searcher.Search(ctx, req)
}

// Analyzer resolves the analyzer _analyze uses for field: the field's
// index-time analyzer for text fields, the index default otherwise.
// Keyword fields report ok=false; their value is a single token.
func (inst *IndexInstance) Analyzer(field string) (name string, ok bool) {
	schema := inst.Schema()
	f, found := schema.Field(field)
	if found && f.Type != index.FieldTypeText {
		return "", false
	}
	return schema.IndexAnalyzer(f), true
}

// Info returns summary information about the index.
func (inst *IndexInstance) Info() IndexInfo {
	schema := inst.Schema()
	segs := inst.Snapshots.Segments()

	inst.writerMu.Lock()
	buffered := inst.writer.DocCount()
	bufferBytes := inst.writer.MemoryUsed()
	generation := inst.generation
	inst.writerMu.Unlock()

	return IndexInfo{
		Name:            inst.Name,
		CreatedAt:       inst.CreatedAt,
		Generation:      generation,
		Segments:        len(segs),
		Docs:            liveDocs(segs),
		BufferedDocs:    buffered,
		BufferBytes:     bufferBytes,
		ActiveSnapshots: inst.Snapshots.ActiveSnapshotCount(),
		MappingVersion:  schema.Version,
		Fields:          len(schema.Fields),
	}
}

func liveDocs(segs []*indexing.Segment) int {
	n := 0
	for _, seg := range segs {
		n += seg.LiveDocCount()
	}
	return n
}
