package scoring

import (
	"fmt"
	"math"
)

// Default BM25 parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// BM25Scorer computes BM25 relevance scores for one field.
// Statistics are taken across every segment of the searched snapshot so a
// doc scores the same whichever segment holds it.
type BM25Scorer struct {
	K1 float32
	B  float32

	DocCount  int64
	AvgDocLen float32
}

// NewBM25Scorer creates a scorer with default parameters and the given stats.
func NewBM25Scorer(docCount int64, avgDocLen float32) *BM25Scorer {
	return &BM25Scorer{
		K1:        DefaultK1,
		B:         DefaultB,
		DocCount:  docCount,
		AvgDocLen: avgDocLen,
	}
}

// FieldStats are the collection-wide statistics of one field.
type FieldStats struct {
	// DocCount is the number of docs searched.
	DocCount int64
	// FieldDocCount is the number of docs with a value for the field.
	FieldDocCount int64
	// SumLength is the total token count of the field.
	SumLength int64
}

// NewFieldScorer creates a scorer whose average length is that of docs
// holding the field.
func NewFieldScorer(stats FieldStats) *BM25Scorer {
	var avg float32
	if stats.FieldDocCount > 0 {
		avg = float32(float64(stats.SumLength) / float64(stats.FieldDocCount))
	}
	return NewBM25Scorer(stats.DocCount, avg)
}

// IDF computes the Inverse Document Frequency for a term.
//
//	IDF(qi) = ln(1 + (N - n(qi) + 0.5) / (n(qi) + 0.5))
func (s *BM25Scorer) IDF(docFreq int64) float32 {
	n := float64(docFreq)
	N := float64(s.DocCount)
	return float32(math.Log(1 + (N-n+0.5)/(n+0.5)))
}

// lengthRatio is dl/avgdl, or 1 when the field has no length statistics.
func (s *BM25Scorer) lengthRatio(docLen uint32) float32 {
	if s.AvgDocLen <= 0 {
		return 1
	}
	return float32(docLen) / s.AvgDocLen
}

// Score computes the BM25 score for a single term in a document.
//
//	score = IDF × (tf × (k1 + 1)) / (tf + k1 × (1 - b + b × dl / avgdl))
func (s *BM25Scorer) Score(termFreq uint32, docLen uint32, idf float32) float32 {
	tf := float32(termFreq)

	numerator := tf * (s.K1 + 1)
	denominator := tf + s.K1*(1-s.B+s.B*s.lengthRatio(docLen))

	if denominator == 0 {
		return 0
	}
	return idf * numerator / denominator
}

// ScoreMultiTerm computes the total BM25 score for multiple query terms.
func (s *BM25Scorer) ScoreMultiTerm(terms []QueryTerm, docLen uint32) float32 {
	var total float32
	for _, qt := range terms {
		if qt.TermFreq == 0 {
			continue
		}
		idf := s.IDF(qt.DocFreq)
		termScore := s.Score(qt.TermFreq, docLen, idf)
		termScore *= qt.Boost
		total += termScore
	}
	return total
}

// QueryTerm holds per-term scoring inputs.
type QueryTerm struct {
	Term     string
	TermFreq uint32
	DocFreq  int64
	Boost    float32
}

// TermWeight is a query term bound to a scorer, with its IDF computed once.
type TermWeight struct {
	Field   string
	Term    string
	DocFreq int64
	Boost   float32
	IDF     float32

	scorer *BM25Scorer
}

// Weight precomputes the IDF of a term for repeated scoring.
func (s *BM25Scorer) Weight(field, term string, docFreq int64, boost float32) *TermWeight {
	if boost == 0 {
		boost = 1
	}
	return &TermWeight{
		Field:   field,
		Term:    term,
		DocFreq: docFreq,
		Boost:   boost,
		IDF:     s.IDF(docFreq),
		scorer:  s,
	}
}

// Score computes the boosted score of the term in a doc.
func (w *TermWeight) Score(termFreq, docLen uint32) float32 {
	return w.Boost * w.scorer.Score(termFreq, docLen, w.IDF)
}

// Explain describes the score of the term in a doc.
func (w *TermWeight) Explain(termFreq, docLen uint32) Explanation {
	exp := w.scorer.Explain(w.Field, w.Term, termFreq, docLen, w.DocFreq)
	if w.Boost != 1 {
		exp.Value *= w.Boost
		exp.Details = append(exp.Details, Explanation{Description: "boost", Value: w.Boost})
	}
	return exp
}

// Explanation provides a human-readable breakdown of a score.
type Explanation struct {
	Description string        `json:"description"`
	Value       float32       `json:"value"`
	Details     []Explanation `json:"details,omitempty"`
}

// Sum combines explanations of clauses whose scores are added.
func Sum(description string, details []Explanation) Explanation {
	exp := Explanation{Description: description, Details: details}
	for _, d := range details {
		exp.Value += d.Value
	}
	return exp
}

// Explain returns a detailed breakdown of the BM25 score for a single term.
func (s *BM25Scorer) Explain(field, term string, termFreq uint32, docLen uint32, docFreq int64) Explanation {
	idf := s.IDF(docFreq)
	score := s.Score(termFreq, docLen, idf)

	tf := float32(termFreq)
	ratio := s.lengthRatio(docLen)
	tfNorm := tf * (s.K1 + 1) / (tf + s.K1*(1-s.B+s.B*ratio))

	return Explanation{
		Description: fmt.Sprintf("weight(%s:%s) [BM25]", field, term),
		Value:       score,
		Details: []Explanation{
			{
				Description: fmt.Sprintf("idf(docFreq=%d, N=%d)", docFreq, s.DocCount),
				Value:       idf,
			},
			{
				Description: fmt.Sprintf("tf(freq=%d, norm=%.4f)", termFreq, tfNorm),
				Value:       tfNorm,
			},
			{
				Description: fmt.Sprintf("dl=%d, avgdl=%.1f", docLen, s.AvgDocLen),
				Value:       s.B * ratio,
			},
		},
	}
}
