package engine

// PostingsIterator iterates over matching documents in document ID order.
type PostingsIterator interface {
	// Next advances to the next document. Returns false when exhausted.
	Next() bool

	// DocID returns the current document ID. Valid only after Next() returns true.
	DocID() uint32

	// Freq returns the term frequency in the current document.
	Freq() uint32

	// Score returns the relevance score of the current document.
	Score() float32

	// Advance moves to the first document >= target. Returns false if no such document.
	Advance(target uint32) bool

	// Cost returns an estimate of remaining documents.
	Cost() int64
}

// ScoreFunc scores a document given its term frequency.
type ScoreFunc func(docID, freq uint32) float32

// SlicePostingsIterator is a simple in-memory PostingsIterator backed by slices.
type SlicePostingsIterator struct {
	docIDs []uint32
	freqs  []uint32
	pos    int
	scorer ScoreFunc
}

// NewSlicePostingsIterator creates a PostingsIterator from doc ID and frequency slices.
// Both slices must be the same length and docIDs must be sorted ascending.
func NewSlicePostingsIterator(docIDs, freqs []uint32) *SlicePostingsIterator {
	return &SlicePostingsIterator{
		docIDs: docIDs,
		freqs:  freqs,
		pos:    -1,
	}
}

// WithScorer sets the function used by Score. Without one, Score is the frequency.
func (it *SlicePostingsIterator) WithScorer(fn ScoreFunc) *SlicePostingsIterator {
	it.scorer = fn
	return it
}

func (it *SlicePostingsIterator) Next() bool {
	it.pos++
	return it.pos < len(it.docIDs)
}

func (it *SlicePostingsIterator) DocID() uint32 {
	return it.docIDs[it.pos]
}

func (it *SlicePostingsIterator) Freq() uint32 {
	if it.freqs == nil || it.pos >= len(it.freqs) {
		return 1
	}
	return it.freqs[it.pos]
}

func (it *SlicePostingsIterator) Score() float32 {
	if it.scorer == nil {
		return float32(it.Freq())
	}
	return it.scorer(it.DocID(), it.Freq())
}

func (it *SlicePostingsIterator) Advance(target uint32) bool {
	// If already positioned at or past target, return true.
	if it.pos >= 0 && it.pos < len(it.docIDs) && it.docIDs[it.pos] >= target {
		return true
	}
	for it.pos+1 < len(it.docIDs) {
		it.pos++
		if it.docIDs[it.pos] >= target {
			return true
		}
	}
	it.pos = len(it.docIDs)
	return false
}

func (it *SlicePostingsIterator) Cost() int64 {
	remaining := len(it.docIDs) - it.pos - 1
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}

// AllDocsIterator matches every doc ID in [0, maxDoc) with a constant score.
type AllDocsIterator struct {
	maxDoc uint32
	next   uint32
	cur    uint32
	score  float32
}

// NewAllDocsIterator creates an iterator over all doc IDs below maxDoc.
func NewAllDocsIterator(maxDoc uint32, score float32) *AllDocsIterator {
	return &AllDocsIterator{maxDoc: maxDoc, score: score}
}

func (it *AllDocsIterator) Next() bool {
	if it.next >= it.maxDoc {
		return false
	}
	it.cur = it.next
	it.next++
	return true
}

func (it *AllDocsIterator) DocID() uint32 { return it.cur }

func (it *AllDocsIterator) Freq() uint32 { return 1 }

func (it *AllDocsIterator) Score() float32 { return it.score }

func (it *AllDocsIterator) Advance(target uint32) bool {
	if it.next > 0 && it.cur >= target {
		return true
	}
	if target < it.next {
		target = it.next
	}
	it.next = target
	return it.Next()
}

func (it *AllDocsIterator) Cost() int64 {
	return int64(it.maxDoc - it.next)
}
