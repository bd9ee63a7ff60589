package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ViSearch/internal/analysis"
	"ViSearch/internal/engine"
	"ViSearch/internal/index"
	"ViSearch/internal/indexing"
	"ViSearch/internal/scoring"
)

// DefaultTimeout bounds query execution when the searcher sets none.
const DefaultTimeout = 30 * time.Second

// Hit is one matching document.
type Hit struct {
	ID          string
	Score       float32
	Source      map[string]any
	Explanation *scoring.Explanation
}

// Result is the outcome of a search.
type Result struct {
	Total    int
	MaxScore float32
	Hits     []Hit
	TimedOut bool
	Took     time.Duration
}

// Searcher executes queries over a fixed set of segments.
type Searcher struct {
	schema    *index.Schema
	analyzers analysis.Lookup
	segments  []*indexing.Segment

	Timeout    time.Duration
	MaxClauses int
}

// NewSearcher creates a searcher over segments, oldest first. Match
// queries are analyzed with analyzers resolved through analyzers.
func NewSearcher(schema *index.Schema, analyzers analysis.Lookup, segments []*indexing.Segment) *Searcher {
	return &Searcher{
		schema:     schema,
		analyzers:  analyzers,
		segments:   segments,
		Timeout:    DefaultTimeout,
		MaxClauses: engine.DefaultMaxClauses,
	}
}

// Search runs req and returns the requested page of hits.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*Result, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Query == nil {
		req.Query = &MatchAllQuery{}
	}

	ec := engine.NewExecutionContext(ctx, s.Timeout, s.MaxClauses)

	expanded, err := s.expand(req.Query, ec)
	if err != nil {
		return nil, err
	}
	root := s.compile(Rewrite(expanded))

	k := req.From + req.Size
	if k == 0 {
		k = 1
	}
	collector := engine.NewTopKCollector(k)
	res := &Result{}

collect:
	for i, seg := range s.segments {
		it := root.iterator(seg)
		if it == nil {
			continue
		}
		for it.Next() {
			if err := ec.CheckLimits(); err != nil {
				if errors.Is(err, engine.ErrQueryTimeout) {
					res.TimedOut = true
					break collect
				}
				return nil, err
			}
			doc := it.DocID()
			if seg.IsDeleted(doc) {
				continue
			}
			collector.CollectDoc(engine.ScoredDoc{Segment: i, DocID: doc, Score: it.Score()})
		}
	}

	res.Total = collector.Total()
	res.MaxScore = collector.MaxScore()

	top := collector.Results()
	if req.Size == 0 || req.From >= len(top) {
		top = nil
	} else {
		top = top[req.From:]
	}

	res.Hits = make([]Hit, 0, len(top))
	for _, sd := range top {
		seg := s.segments[sd.Segment]
		hit := Hit{ID: seg.ExternalID(sd.DocID), Score: sd.Score}
		if req.Source {
			src, err := seg.Source(sd.DocID)
			if err != nil {
				return nil, err
			}
			hit.Source = src
		}
		if req.Explain {
			exp, _ := root.explain(seg, sd.DocID)
			hit.Explanation = &exp
		}
		res.Hits = append(res.Hits, hit)
	}

	res.Took = time.Since(start)
	return res, nil
}

// expand replaces match queries with term and bool queries over the
// analyzed terms.
func (s *Searcher) expand(q Query, ec *engine.ExecutionContext) (Query, error) {
	switch v := q.(type) {
	case *MatchQuery:
		return s.expandMatch(v, ec)
	case *TermQuery:
		if err := ec.AddClauses(1); err != nil {
			return nil, err
		}
		return v, nil
	case *BooleanQuery:
		out := &BooleanQuery{
			Clauses:            make([]BooleanClause, 0, len(v.Clauses)),
			MinimumShouldMatch: v.MinimumShouldMatch,
			Boost:              v.Boost,
		}
		for _, c := range v.Clauses {
			sub, err := s.expand(c.Query, ec)
			if err != nil {
				return nil, err
			}
			out.Clauses = append(out.Clauses, BooleanClause{Occur: c.Occur, Query: sub})
		}
		return out, nil
	default:
		return q, nil
	}
}

func (s *Searcher) expandMatch(q *MatchQuery, ec *engine.ExecutionContext) (Query, error) {
	field, ok := s.schema.Field(q.Field)
	if !ok || !field.Indexed {
		return &MatchNoneQuery{}, nil
	}
	if field.Type == index.FieldTypeKeyword {
		if err := ec.AddClauses(1); err != nil {
			return nil, err
		}
		return &TermQuery{Field: q.Field, Term: q.Text, Boost: q.Boost}, nil
	}

	name := q.Analyzer
	if name == "" {
		name = s.schema.SearchAnalyzer(field)
	}
	analyzer, err := s.analyzers.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	var terms []string
	seen := make(map[string]bool)
	for _, tok := range analyzer.Analyze(q.Field, q.Text) {
		if !seen[tok.Term] {
			seen[tok.Term] = true
			terms = append(terms, tok.Term)
		}
	}
	if err := ec.AddClauses(len(terms)); err != nil {
		return nil, err
	}

	switch len(terms) {
	case 0:
		return &MatchNoneQuery{}, nil
	case 1:
		return &TermQuery{Field: q.Field, Term: terms[0], Boost: q.Boost}, nil
	}

	occur := BooleanShould
	if q.Operator == OperatorAnd {
		occur = BooleanMust
	}
	bq := &BooleanQuery{Boost: q.Boost}
	for _, term := range terms {
		bq.Clauses = append(bq.Clauses, BooleanClause{Occur: occur, Query: &TermQuery{Field: q.Field, Term: term}})
	}
	return bq, nil
}

// compile binds a rewritten query to collection statistics.
func (s *Searcher) compile(q Query) node {
	switch v := q.(type) {
	case *TermQuery:
		return &termNode{field: v.Field, term: v.Term, weight: s.weight(v)}
	case *MatchAllQuery:
		return &matchAllNode{boost: boostOrOne(v.Boost)}
	case *BooleanQuery:
		bn := &boolNode{boost: boostOrOne(v.Boost), minShould: v.MinimumShouldMatch}
		for _, c := range v.Clauses {
			child := s.compile(c.Query)
			switch c.Occur {
			case BooleanMust:
				bn.must = append(bn.must, child)
			case BooleanFilter:
				bn.filter = append(bn.filter, child)
			case BooleanShould:
				bn.should = append(bn.should, child)
			case BooleanMustNot:
				bn.mustNot = append(bn.mustNot, child)
			}
		}
		return bn
	default:
		return matchNoneNode{}
	}
}

func (s *Searcher) weight(q *TermQuery) *scoring.TermWeight {
	var stats scoring.FieldStats
	var docFreq int64
	for _, seg := range s.segments {
		fs := seg.FieldStats(q.Field)
		stats.DocCount += int64(seg.DocCount())
		stats.FieldDocCount += int64(fs.DocCount)
		stats.SumLength += int64(fs.SumLength)
		docFreq += int64(seg.DocFreq(q.Field, q.Term))
	}
	return scoring.NewFieldScorer(stats).Weight(q.Field, q.Term, docFreq, boostOrOne(q.Boost))
}
