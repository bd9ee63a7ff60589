package engine

// ExclusionIterator matches documents of include that are not in exclude.
type ExclusionIterator struct {
	include     PostingsIterator
	exclude     PostingsIterator
	excludeDone bool
}

// NewExclusionIterator creates an iterator for include AND NOT exclude.
func NewExclusionIterator(include, exclude PostingsIterator) *ExclusionIterator {
	return &ExclusionIterator{include: include, exclude: exclude}
}

func (e *ExclusionIterator) Next() bool {
	for e.include.Next() {
		if !e.excluded(e.include.DocID()) {
			return true
		}
	}
	return false
}

func (e *ExclusionIterator) DocID() uint32  { return e.include.DocID() }
func (e *ExclusionIterator) Freq() uint32   { return e.include.Freq() }
func (e *ExclusionIterator) Score() float32 { return e.include.Score() }
func (e *ExclusionIterator) Cost() int64    { return e.include.Cost() }

func (e *ExclusionIterator) Advance(target uint32) bool {
	if !e.include.Advance(target) {
		return false
	}
	if !e.excluded(e.include.DocID()) {
		return true
	}
	return e.Next()
}

func (e *ExclusionIterator) excluded(doc uint32) bool {
	if e.excludeDone {
		return false
	}
	if !e.exclude.Advance(doc) {
		e.excludeDone = true
		return false
	}
	return e.exclude.DocID() == doc
}

// ReqOptIterator matches the documents of req; opt only adds to the score
// of documents it also matches.
type ReqOptIterator struct {
	req     PostingsIterator
	opt     PostingsIterator
	optDone bool
}

// NewReqOptIterator creates an iterator for req with optional scoring from opt.
func NewReqOptIterator(req, opt PostingsIterator) *ReqOptIterator {
	return &ReqOptIterator{req: req, opt: opt}
}

func (r *ReqOptIterator) Next() bool            { return r.req.Next() }
func (r *ReqOptIterator) DocID() uint32         { return r.req.DocID() }
func (r *ReqOptIterator) Freq() uint32          { return r.req.Freq() }
func (r *ReqOptIterator) Cost() int64           { return r.req.Cost() }
func (r *ReqOptIterator) Advance(t uint32) bool { return r.req.Advance(t) }

func (r *ReqOptIterator) Score() float32 {
	score := r.req.Score()
	if r.optDone {
		return score
	}
	doc := r.req.DocID()
	if !r.opt.Advance(doc) {
		r.optDone = true
		return score
	}
	if r.opt.DocID() == doc {
		score += r.opt.Score()
	}
	return score
}
