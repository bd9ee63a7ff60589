package indexing

import (
	"errors"
	"sync/atomic"
)

// Buffer limits.
const (
	DefaultBufferMemoryLimit = 64 * 1024 * 1024 // 64MB
	DefaultMaxDocsPerSegment = 100_000
)

var (
	ErrMissingID         = errors.New("document id is required")
	ErrInvalidFieldValue = errors.New("invalid field value")
	ErrWriterNotActive   = errors.New("writer is not active")
)

// PostingEntry is a single posting for a term in a field.
type PostingEntry struct {
	DocID uint32
	Freq  uint32
}

// PostingsList holds the postings of one term in one field, in doc ID order.
type PostingsList struct {
	Entries []PostingEntry
}

// DocIDs splits the postings into parallel doc ID and frequency slices.
func (pl *PostingsList) DocIDs() ([]uint32, []uint32) {
	ids := make([]uint32, len(pl.Entries))
	freqs := make([]uint32, len(pl.Entries))
	for i, e := range pl.Entries {
		ids[i] = e.DocID
		freqs[i] = e.Freq
	}
	return ids, freqs
}

// Freq returns the term frequency for docID, or 0 if the doc has no posting.
func (pl *PostingsList) Freq(docID uint32) uint32 {
	lo, hi := 0, len(pl.Entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if pl.Entries[mid].DocID < docID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(pl.Entries) && pl.Entries[lo].DocID == docID {
		return pl.Entries[lo].Freq
	}
	return 0
}

// WriteBuffer accumulates documents until the next refresh.
type WriteBuffer struct {
	// InvertedIndex: field → term → postings list
	InvertedIndex map[string]map[string]*PostingsList

	// FieldLengths: field → docID → token count
	FieldLengths map[string]map[uint32]uint32

	// Sources holds the msgpack-encoded _source of each doc, by doc ID.
	Sources [][]byte

	// ExternalIDs maps internal doc IDs back to external IDs.
	ExternalIDs []string

	// ExternalToInternal maps live external doc IDs to internal doc IDs.
	ExternalToInternal map[string]uint32

	// Superseded marks buffered docs replaced or deleted before refresh.
	Superseded map[uint32]bool

	// Deletions records external IDs deleted since the last refresh.
	Deletions map[string]bool

	NextDocID uint32
	DocCount  int
	TermCount int

	memoryUsed  atomic.Int64
	MemoryLimit int64
	MaxDocs     int
}

// NewWriteBuffer creates a new empty write buffer.
func NewWriteBuffer() *WriteBuffer {
	b := &WriteBuffer{
		MemoryLimit: DefaultBufferMemoryLimit,
		MaxDocs:     DefaultMaxDocsPerSegment,
	}
	b.Reset()
	return b
}

// AddPosting adds a posting entry for the given field and term.
func (b *WriteBuffer) AddPosting(field, term string, docID uint32, freq uint32) {
	fieldMap, ok := b.InvertedIndex[field]
	if !ok {
		fieldMap = make(map[string]*PostingsList)
		b.InvertedIndex[field] = fieldMap
	}

	pl, ok := fieldMap[term]
	if !ok {
		pl = &PostingsList{}
		fieldMap[term] = pl
		b.TermCount++
		b.memoryUsed.Add(int64(len(term) + 48))
	}

	pl.Entries = append(pl.Entries, PostingEntry{DocID: docID, Freq: freq})
	b.memoryUsed.Add(8)
}

// SetFieldLength records the token count of a field in a doc.
func (b *WriteBuffer) SetFieldLength(field string, docID uint32, length uint32) {
	lengths, ok := b.FieldLengths[field]
	if !ok {
		lengths = make(map[uint32]uint32)
		b.FieldLengths[field] = lengths
	}
	lengths[docID] = length
	b.memoryUsed.Add(8)
}

// AllocateDocID assigns an internal doc ID for an external ID and records
// its source. A doc already buffered under the same ID is superseded.
func (b *WriteBuffer) AllocateDocID(externalID string, source []byte) uint32 {
	if old, exists := b.ExternalToInternal[externalID]; exists {
		b.Superseded[old] = true
	}

	docID := b.NextDocID
	b.NextDocID++
	b.DocCount++
	b.ExternalToInternal[externalID] = docID
	b.ExternalIDs = append(b.ExternalIDs, externalID)
	b.Sources = append(b.Sources, source)
	b.memoryUsed.Add(int64(len(externalID) + len(source)))
	return docID
}

// MarkDeleted records a deletion. A buffered doc with the ID is superseded;
// the ID is also tombstoned in older segments at refresh.
func (b *WriteBuffer) MarkDeleted(externalID string) {
	if old, exists := b.ExternalToInternal[externalID]; exists {
		b.Superseded[old] = true
		delete(b.ExternalToInternal, externalID)
	}
	b.Deletions[externalID] = true
}

// LiveDocCount returns the number of buffered docs not superseded.
func (b *WriteBuffer) LiveDocCount() int {
	return b.DocCount - len(b.Superseded)
}

// HasChanges reports whether a refresh would change anything.
func (b *WriteBuffer) HasChanges() bool {
	return b.DocCount > 0 || len(b.Deletions) > 0
}

// MemoryUsed returns the approximate memory used by the buffer.
func (b *WriteBuffer) MemoryUsed() int64 {
	return b.memoryUsed.Load()
}

// IsFull returns true if the buffer has reached its memory or document limit.
func (b *WriteBuffer) IsFull() bool {
	if b.DocCount >= b.MaxDocs {
		return true
	}
	return b.memoryUsed.Load() >= b.MemoryLimit
}

// Reset clears the buffer for reuse.
func (b *WriteBuffer) Reset() {
	b.InvertedIndex = make(map[string]map[string]*PostingsList)
	b.FieldLengths = make(map[string]map[uint32]uint32)
	b.Sources = nil
	b.ExternalIDs = nil
	b.ExternalToInternal = make(map[string]uint32)
	b.Superseded = make(map[uint32]bool)
	b.Deletions = make(map[string]bool)
	b.NextDocID = 0
	b.DocCount = 0
	b.TermCount = 0
	b.memoryUsed.Store(0)
}
