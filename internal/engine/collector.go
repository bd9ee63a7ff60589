package engine

import "container/heap"

// ScoredDoc represents a document with its score. Segment is the ordinal of
// the segment within the searched snapshot.
type ScoredDoc struct {
	Segment int
	DocID   uint32
	Score   float32
}

// before reports whether a sorts ahead of b: higher score first, then
// earlier segment, then lower doc ID.
func (a ScoredDoc) before(b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Segment != b.Segment {
		return a.Segment < b.Segment
	}
	return a.DocID < b.DocID
}

// TopKCollector collects the top-K scoring documents using a min-heap.
type TopKCollector struct {
	k        int
	h        scoreHeap
	minScore float32
	total    int
	maxScore float32
}

// NewTopKCollector creates a collector for the top K documents.
func NewTopKCollector(k int) *TopKCollector {
	if k <= 0 {
		k = 10
	}
	return &TopKCollector{
		k: k,
		h: make(scoreHeap, 0, k),
	}
}

// Collect offers a document of segment 0 to the collector.
func (c *TopKCollector) Collect(docID uint32, score float32) {
	c.CollectDoc(ScoredDoc{DocID: docID, Score: score})
}

// CollectDoc counts a matching document and keeps it if it qualifies for top-K.
func (c *TopKCollector) CollectDoc(doc ScoredDoc) {
	if c.total == 0 || doc.Score > c.maxScore {
		c.maxScore = doc.Score
	}
	c.total++

	if c.h.Len() < c.k {
		heap.Push(&c.h, doc)
		if c.h.Len() == c.k {
			c.minScore = c.h[0].Score
		}
	} else if doc.before(c.h[0]) {
		c.h[0] = doc
		heap.Fix(&c.h, 0)
		c.minScore = c.h[0].Score
	}
}

// MinScore returns the current minimum score in the collector.
// Returns 0 if fewer than K documents have been collected.
func (c *TopKCollector) MinScore() float32 {
	return c.minScore
}

// MaxScore returns the highest score seen, or 0 if nothing was collected.
func (c *TopKCollector) MaxScore() float32 {
	return c.maxScore
}

// Total returns the number of matching documents offered, kept or not.
func (c *TopKCollector) Total() int {
	return c.total
}

// Len returns the number of documents held.
func (c *TopKCollector) Len() int {
	return c.h.Len()
}

// Results returns the collected documents sorted descending by score.
func (c *TopKCollector) Results() []ScoredDoc {
	result := make([]ScoredDoc, c.h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&c.h).(ScoredDoc)
	}
	return result
}

// scoreHeap is a min-heap of ScoredDoc with the worst-ranked doc on top.
type scoreHeap []ScoredDoc

func (h scoreHeap) Len() int           { return len(h) }
func (h scoreHeap) Less(i, j int) bool { return h[j].before(h[i]) }
func (h scoreHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x any)        { *h = append(*h, x.(ScoredDoc)) }
func (h *scoreHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
