package query

import (
	"fmt"

	"ViSearch/internal/engine"
	"ViSearch/internal/indexing"
	"ViSearch/internal/scoring"
)

// node is a compiled query bound to collection statistics. iterator
// returns nil when nothing in the segment can match.
type node interface {
	iterator(seg *indexing.Segment) engine.PostingsIterator
	explain(seg *indexing.Segment, docID uint32) (scoring.Explanation, bool)
}

type termNode struct {
	field  string
	term   string
	weight *scoring.TermWeight
}

func (n *termNode) iterator(seg *indexing.Segment) engine.PostingsIterator {
	pl := seg.Postings(n.field, n.term)
	if pl == nil || len(pl.Entries) == 0 {
		return nil
	}
	ids, freqs := pl.DocIDs()
	return engine.NewSlicePostingsIterator(ids, freqs).WithScorer(func(docID, freq uint32) float32 {
		return n.weight.Score(freq, seg.FieldLength(n.field, docID))
	})
}

func (n *termNode) explain(seg *indexing.Segment, docID uint32) (scoring.Explanation, bool) {
	pl := seg.Postings(n.field, n.term)
	if pl == nil {
		return scoring.Explanation{}, false
	}
	freq := pl.Freq(docID)
	if freq == 0 {
		return scoring.Explanation{}, false
	}
	return n.weight.Explain(freq, seg.FieldLength(n.field, docID)), true
}

type matchAllNode struct {
	boost float32
}

func (n *matchAllNode) iterator(seg *indexing.Segment) engine.PostingsIterator {
	return engine.NewAllDocsIterator(uint32(seg.DocCount()), n.boost)
}

func (n *matchAllNode) explain(*indexing.Segment, uint32) (scoring.Explanation, bool) {
	return scoring.Explanation{Description: "*:*", Value: n.boost}, true
}

type matchNoneNode struct{}

func (matchNoneNode) iterator(*indexing.Segment) engine.PostingsIterator { return nil }

func (matchNoneNode) explain(*indexing.Segment, uint32) (scoring.Explanation, bool) {
	return scoring.Explanation{}, false
}

type boolNode struct {
	must, filter, should, mustNot []node

	minShould int
	boost     float32
}

// effectiveMinShould applies the default: one should clause when nothing
// else is required.
func (n *boolNode) effectiveMinShould() int {
	if n.minShould > 0 {
		return n.minShould
	}
	if len(n.should) > 0 && len(n.must) == 0 && len(n.filter) == 0 {
		return 1
	}
	return 0
}

func (n *boolNode) iterator(seg *indexing.Segment) engine.PostingsIterator {
	var required []engine.PostingsIterator
	for _, c := range n.must {
		it := c.iterator(seg)
		if it == nil {
			return nil
		}
		required = append(required, it)
	}
	for _, c := range n.filter {
		it := c.iterator(seg)
		if it == nil {
			return nil
		}
		required = append(required, &scaledIterator{PostingsIterator: it, factor: 0})
	}

	var optional []engine.PostingsIterator
	for _, c := range n.should {
		if it := c.iterator(seg); it != nil {
			optional = append(optional, it)
		}
	}

	minShould := n.effectiveMinShould()
	if len(optional) < minShould {
		return nil
	}

	var result engine.PostingsIterator
	switch {
	case minShould > 0:
		var shouldIt engine.PostingsIterator = engine.NewDisjunctionIterator(optional)
		if minShould > 1 {
			shouldIt = &minShouldIterator{DisjunctionIterator: shouldIt.(*engine.DisjunctionIterator), min: minShould}
		}
		result = combine(append(required, shouldIt))
	case len(required) > 0:
		result = combine(required)
		if len(optional) > 0 {
			result = engine.NewReqOptIterator(result, engine.NewDisjunctionIterator(optional))
		}
	default:
		// Only must_not clauses: every doc matches with a zero score.
		result = engine.NewAllDocsIterator(uint32(seg.DocCount()), 0)
	}

	var excluded []engine.PostingsIterator
	for _, c := range n.mustNot {
		if it := c.iterator(seg); it != nil {
			excluded = append(excluded, it)
		}
	}
	if len(excluded) > 0 {
		result = engine.NewExclusionIterator(result, combineOr(excluded))
	}

	if n.boost != 1 {
		result = &scaledIterator{PostingsIterator: result, factor: n.boost}
	}
	return result
}

func (n *boolNode) explain(seg *indexing.Segment, docID uint32) (scoring.Explanation, bool) {
	var details []scoring.Explanation
	for _, c := range n.must {
		exp, ok := c.explain(seg, docID)
		if !ok {
			return scoring.Explanation{}, false
		}
		details = append(details, exp)
	}
	for _, c := range n.filter {
		if _, ok := c.explain(seg, docID); !ok {
			return scoring.Explanation{}, false
		}
	}
	matched := 0
	for _, c := range n.should {
		if exp, ok := c.explain(seg, docID); ok {
			matched++
			details = append(details, exp)
		}
	}
	if matched < n.effectiveMinShould() {
		return scoring.Explanation{}, false
	}
	for _, c := range n.mustNot {
		if _, ok := c.explain(seg, docID); ok {
			return scoring.Explanation{}, false
		}
	}

	exp := scoring.Sum("sum of:", details)
	if n.boost != 1 {
		exp = scoring.Explanation{
			Description: fmt.Sprintf("product of boost %g and:", n.boost),
			Value:       exp.Value * n.boost,
			Details:     []scoring.Explanation{exp},
		}
	}
	return exp, true
}

func combine(its []engine.PostingsIterator) engine.PostingsIterator {
	if len(its) == 1 {
		return its[0]
	}
	return engine.NewConjunctionIterator(its)
}

func combineOr(its []engine.PostingsIterator) engine.PostingsIterator {
	if len(its) == 1 {
		return its[0]
	}
	return engine.NewDisjunctionIterator(its)
}

// scaledIterator multiplies the score of the wrapped iterator.
type scaledIterator struct {
	engine.PostingsIterator
	factor float32
}

func (s *scaledIterator) Score() float32 {
	if s.factor == 0 {
		return 0
	}
	return s.factor * s.PostingsIterator.Score()
}

// minShouldIterator skips docs matched by fewer than min children.
type minShouldIterator struct {
	*engine.DisjunctionIterator
	min int
}

func (m *minShouldIterator) Next() bool {
	for m.DisjunctionIterator.Next() {
		if m.Matched() >= m.min {
			return true
		}
	}
	return false
}

func (m *minShouldIterator) Advance(target uint32) bool {
	if !m.DisjunctionIterator.Advance(target) {
		return false
	}
	if m.Matched() >= m.min {
		return true
	}
	return m.Next()
}
