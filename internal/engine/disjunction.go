package engine

import "container/heap"

// DisjunctionIterator implements OR logic over multiple PostingsIterators.
// It uses a min-heap to merge iterators in document ID order; children
// positioned on the current document stay there until the next move so
// their scores can be summed.
type DisjunctionIterator struct {
	h       iterHeap
	current uint32
	started bool
}

// NewDisjunctionIterator creates an OR iterator over the given children.
func NewDisjunctionIterator(children []PostingsIterator) *DisjunctionIterator {
	d := &DisjunctionIterator{}

	for _, child := range children {
		if child.Next() {
			d.h = append(d.h, child)
		}
	}
	heap.Init(&d.h)

	return d
}

func (d *DisjunctionIterator) Next() bool {
	if d.started {
		d.advancePast(d.current + 1)
	}
	d.started = true

	if len(d.h) == 0 {
		return false
	}
	d.current = d.h[0].DocID()
	return true
}

func (d *DisjunctionIterator) DocID() uint32 {
	return d.current
}

// Freq returns the summed frequency of the children on the current document.
func (d *DisjunctionIterator) Freq() uint32 {
	var freq uint32
	for _, it := range d.h {
		if it.DocID() == d.current {
			freq += it.Freq()
		}
	}
	return freq
}

// Score returns the summed score of the children on the current document.
func (d *DisjunctionIterator) Score() float32 {
	var score float32
	for _, it := range d.h {
		if it.DocID() == d.current {
			score += it.Score()
		}
	}
	return score
}

// Matched returns how many children are on the current document.
func (d *DisjunctionIterator) Matched() int {
	n := 0
	for _, it := range d.h {
		if it.DocID() == d.current {
			n++
		}
	}
	return n
}

func (d *DisjunctionIterator) Advance(target uint32) bool {
	if d.started && len(d.h) > 0 && d.current >= target {
		return true
	}
	d.advancePast(target)
	d.started = true

	if len(d.h) == 0 {
		return false
	}
	d.current = d.h[0].DocID()
	return true
}

func (d *DisjunctionIterator) Cost() int64 {
	var total int64
	for _, it := range d.h {
		total += it.Cost() + 1
	}
	return total
}

// advancePast moves every child below target to its first doc >= target.
func (d *DisjunctionIterator) advancePast(target uint32) {
	for len(d.h) > 0 && d.h[0].DocID() < target {
		top := d.h[0]
		if top.Advance(target) {
			heap.Fix(&d.h, 0)
		} else {
			heap.Pop(&d.h)
		}
	}
}

// iterHeap is a min-heap of PostingsIterators ordered by current DocID.
type iterHeap []PostingsIterator

func (h iterHeap) Len() int           { return len(h) }
func (h iterHeap) Less(i, j int) bool { return h[i].DocID() < h[j].DocID() }
func (h iterHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *iterHeap) Push(x any)        { *h = append(*h, x.(PostingsIterator)) }
func (h *iterHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
