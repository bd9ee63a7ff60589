package indexing

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// FieldStats contains per-field statistics for a segment. Deleted docs are
// still counted, as their postings remain until the segment is dropped.
type FieldStats struct {
	DocCount  uint32 `json:"doc_count"`
	SumLength uint64 `json:"sum_length"`
	TermCount uint64 `json:"term_count"`
}

// Segment is an immutable, searchable set of documents produced by a
// refresh. Deleting documents yields a new Segment value sharing the same
// postings, so readers holding the old value are unaffected.
type Segment struct {
	id           string
	externalIDs  []string
	postings     map[string]map[string]*PostingsList
	fieldLengths map[string][]uint32
	sources      [][]byte
	stats        map[string]FieldStats
	lookup       map[string]uint32
	deleted      map[uint32]bool
}

func newSegment(id string, b *WriteBuffer) *Segment {
	n := int(b.NextDocID)
	s := &Segment{
		id:           id,
		externalIDs:  b.ExternalIDs,
		postings:     b.InvertedIndex,
		fieldLengths: make(map[string][]uint32, len(b.FieldLengths)),
		sources:      b.Sources,
		stats:        make(map[string]FieldStats, len(b.FieldLengths)),
		lookup:       make(map[string]uint32, len(b.ExternalToInternal)),
		deleted:      make(map[uint32]bool, len(b.Superseded)),
	}

	for field, lengths := range b.FieldLengths {
		dense := make([]uint32, n)
		var st FieldStats
		for docID, l := range lengths {
			dense[docID] = l
			st.DocCount++
			st.SumLength += uint64(l)
		}
		st.TermCount = uint64(len(b.InvertedIndex[field]))
		s.fieldLengths[field] = dense
		s.stats[field] = st
	}
	for ext, docID := range b.ExternalToInternal {
		s.lookup[ext] = docID
	}
	for docID := range b.Superseded {
		s.deleted[docID] = true
	}
	return s
}

// ID returns the segment identifier.
func (s *Segment) ID() string {
	return s.id
}

// DocCount returns the number of docs in the segment, including deleted ones.
func (s *Segment) DocCount() int {
	return len(s.externalIDs)
}

// LiveDocCount returns the number of docs not deleted.
func (s *Segment) LiveDocCount() int {
	return len(s.externalIDs) - len(s.deleted)
}

// IsDeleted reports whether docID has been deleted or replaced.
func (s *Segment) IsDeleted(docID uint32) bool {
	return s.deleted[docID]
}

// ExternalID returns the external ID of docID.
func (s *Segment) ExternalID(docID uint32) string {
	return s.externalIDs[docID]
}

// Lookup returns the live doc with the given external ID.
func (s *Segment) Lookup(externalID string) (uint32, bool) {
	docID, ok := s.lookup[externalID]
	return docID, ok
}

// Postings returns the postings of term in field, or nil.
func (s *Segment) Postings(field, term string) *PostingsList {
	return s.postings[field][term]
}

// DocFreq returns the number of docs in the segment containing term.
func (s *Segment) DocFreq(field, term string) int {
	if pl := s.Postings(field, term); pl != nil {
		return len(pl.Entries)
	}
	return 0
}

// FieldLength returns the token count of field in docID.
func (s *Segment) FieldLength(field string, docID uint32) uint32 {
	lengths := s.fieldLengths[field]
	if int(docID) >= len(lengths) {
		return 0
	}
	return lengths[docID]
}

// FieldStats returns the statistics of field.
func (s *Segment) FieldStats(field string) FieldStats {
	return s.stats[field]
}

// Source decodes the stored _source of docID.
func (s *Segment) Source(docID uint32) (map[string]any, error) {
	var src map[string]any
	if err := msgpack.Unmarshal(s.sources[docID], &src); err != nil {
		return nil, fmt.Errorf("decode source of %q: %w", s.externalIDs[docID], err)
	}
	return src, nil
}

// WithDeletes returns a segment in which the live docs with the given
// external IDs are deleted. It returns s itself if none of them are live.
func (s *Segment) WithDeletes(externalIDs []string) *Segment {
	var hits []string
	for _, ext := range externalIDs {
		if _, ok := s.lookup[ext]; ok {
			hits = append(hits, ext)
		}
	}
	if len(hits) == 0 {
		return s
	}

	next := *s
	next.lookup = make(map[string]uint32, len(s.lookup))
	for ext, docID := range s.lookup {
		next.lookup[ext] = docID
	}
	next.deleted = make(map[uint32]bool, len(s.deleted)+len(hits))
	for docID := range s.deleted {
		next.deleted[docID] = true
	}
	for _, ext := range hits {
		next.deleted[next.lookup[ext]] = true
		delete(next.lookup, ext)
	}
	return &next
}
