package indexing

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"ViSearch/internal/analysis"
	"ViSearch/internal/index"
)

// Document is a source document to be indexed.
type Document struct {
	ID     string
	Source map[string]any
}

// FlushResult is the outcome of freezing the write buffer.
type FlushResult struct {
	// Segment holds the buffered docs, or nil if none were buffered.
	Segment *Segment
	// Tombstones lists external IDs to delete from older segments: every
	// ID re-indexed or deleted since the last flush.
	Tombstones []string
}

// Writer is the exclusive writer for a single index.
type Writer struct {
	registry *analysis.Registry

	mu     sync.Mutex
	schema *index.Schema
	buffer *WriteBuffer
	active bool
}

// NewWriter creates a new Writer for the given schema and analyzer registry.
func NewWriter(schema *index.Schema, registry *analysis.Registry) *Writer {
	return &Writer{
		schema:   schema,
		registry: registry,
		buffer:   NewWriteBuffer(),
		active:   true,
	}
}

// SetLimits bounds the buffer. Non-positive values keep the current limit.
func (w *Writer) SetLimits(maxDocs int, memoryLimit int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if maxDocs > 0 {
		w.buffer.MaxDocs = maxDocs
	}
	if memoryLimit > 0 {
		w.buffer.MemoryLimit = memoryLimit
	}
}

// SetSchema switches the mapping used for documents added from now on.
func (w *Writer) SetSchema(schema *index.Schema) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.schema = schema
}

type fieldPostings struct {
	field  string
	freqs  map[string]uint32
	length uint32
}

// AddDocument analyzes and buffers a document. Indexing an ID that is
// already buffered or already searchable replaces the earlier version.
// On error nothing is buffered.
func (w *Writer) AddDocument(doc Document) error {
	if doc.ID == "" {
		return ErrMissingID
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return ErrWriterNotActive
	}

	var fields []fieldPostings
	for _, fieldDef := range w.schema.Fields {
		val, exists := doc.Source[fieldDef.Name]
		if !exists || val == nil || !fieldDef.Indexed {
			continue
		}

		var (
			fp  fieldPostings
			err error
		)
		switch fieldDef.Type {
		case index.FieldTypeText:
			fp, err = w.analyzeTextField(fieldDef, val)
		case index.FieldTypeKeyword:
			fp, err = keywordField(fieldDef, val)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", fieldDef.Name, err)
		}
		fields = append(fields, fp)
	}

	source, err := msgpack.Marshal(doc.Source)
	if err != nil {
		return fmt.Errorf("encode source: %w", err)
	}

	docID := w.buffer.AllocateDocID(doc.ID, source)
	for _, fp := range fields {
		for term, freq := range fp.freqs {
			w.buffer.AddPosting(fp.field, term, docID, freq)
		}
		w.buffer.SetFieldLength(fp.field, docID, fp.length)
	}
	return nil
}

// AddDocuments indexes multiple documents, stopping at the first failure.
func (w *Writer) AddDocuments(docs []Document) error {
	for i, doc := range docs {
		if err := w.AddDocument(doc); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

// DeleteDocument marks a document for deletion by external ID.
// The deletion becomes visible at the next flush.
func (w *Writer) DeleteDocument(externalID string) error {
	if externalID == "" {
		return ErrMissingID
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return ErrWriterNotActive
	}

	w.buffer.MarkDeleted(externalID)
	return nil
}

// Flush freezes the buffer into an immutable segment and resets it.
func (w *Writer) Flush(segmentID string) FlushResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	var res FlushResult
	for ext := range w.buffer.Deletions {
		res.Tombstones = append(res.Tombstones, ext)
	}
	for ext := range w.buffer.ExternalToInternal {
		if !w.buffer.Deletions[ext] {
			res.Tombstones = append(res.Tombstones, ext)
		}
	}
	if w.buffer.DocCount > 0 {
		res.Segment = newSegment(segmentID, w.buffer)
	}

	w.buffer.Reset()
	return res
}

// Pending describes what the write buffer holds for one external ID.
type Pending struct {
	// Buffered is set when a version of the doc awaits the next flush.
	Buffered bool
	// Deleted is set when the ID was deleted since the last flush.
	Deleted bool
	Source  map[string]any
}

// Lookup reports the buffered state of externalID, decoding its source
// when a version is buffered.
func (w *Writer) Lookup(externalID string) (Pending, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := Pending{Deleted: w.buffer.Deletions[externalID]}
	docID, ok := w.buffer.ExternalToInternal[externalID]
	if !ok {
		return p, nil
	}
	p.Buffered = true
	if err := msgpack.Unmarshal(w.buffer.Sources[docID], &p.Source); err != nil {
		return p, fmt.Errorf("decode source of %q: %w", externalID, err)
	}
	return p, nil
}

// DocCount returns the number of live documents in the write buffer.
func (w *Writer) DocCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.LiveDocCount()
}

// HasChanges reports whether a flush would change anything.
func (w *Writer) HasChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.HasChanges()
}

// IsFull returns true if the write buffer has reached its memory or document limit.
func (w *Writer) IsFull() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.IsFull()
}

// MemoryUsed returns the approximate memory used by buffered documents.
func (w *Writer) MemoryUsed() int64 {
	return w.buffer.MemoryUsed()
}

// Abort discards all buffered changes.
func (w *Writer) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer.Reset()
}

// Release deactivates the writer.
func (w *Writer) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = false
}

func (w *Writer) analyzeTextField(fieldDef index.FieldDef, val any) (fieldPostings, error) {
	values, err := stringValues(val, false)
	if err != nil {
		return fieldPostings{}, err
	}

	analyzer, err := w.registry.Get(w.schema.IndexAnalyzer(fieldDef))
	if err != nil {
		return fieldPostings{}, err
	}

	fp := fieldPostings{field: fieldDef.Name, freqs: make(map[string]uint32)}
	for _, text := range values {
		for _, tok := range analyzer.Analyze(fieldDef.Name, text) {
			fp.freqs[tok.Term]++
			fp.length++
		}
	}
	return fp, nil
}

func keywordField(fieldDef index.FieldDef, val any) (fieldPostings, error) {
	values, err := stringValues(val, true)
	if err != nil {
		return fieldPostings{}, err
	}
	fp := fieldPostings{field: fieldDef.Name, freqs: make(map[string]uint32, len(values))}
	for _, v := range values {
		fp.freqs[v]++
		fp.length++
	}
	return fp, nil
}

// stringValues flattens a field value into strings. Arrays are allowed;
// scalars other than strings are accepted only when coerce is set.
func stringValues(val any, coerce bool) ([]string, error) {
	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			s, err := scalarString(item, coerce)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return v, nil
	default:
		s, err := scalarString(v, coerce)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

func scalarString(val any, coerce bool) (string, error) {
	if s, ok := val.(string); ok {
		return s, nil
	}
	if coerce {
		switch v := val.(type) {
		case bool:
			return strconv.FormatBool(v), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		}
	}
	return "", fmt.Errorf("%w: unsupported value of type %T", ErrInvalidFieldValue, val)
}
