package benchmark

import (
	"context"
	"testing"

	"ViSearch/internal/engine"
	"ViSearch/internal/indexing"
	"ViSearch/internal/query"
	"ViSearch/internal/scoring"
)

// evenPostings returns count postings on even doc IDs.
func evenPostings(count int) ([]uint32, []uint32) {
	ids := make([]uint32, count)
	freqs := make([]uint32, count)
	for i := range ids {
		ids[i] = uint32(i * 2)
		freqs[i] = uint32(1 + i%5)
	}
	return ids, freqs
}

func BenchmarkQuery_ScoredPostings_10K(b *testing.B) {
	ids, freqs := evenPostings(10_000)
	w := scoring.NewFieldScorer(benchStats).Weight("title", "công nghệ", int64(len(ids)), 1)
	score := func(_, freq uint32) float32 { return w.Score(freq, 20) }

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it := engine.NewSlicePostingsIterator(ids, freqs).WithScorer(score)
		c := engine.NewTopKCollector(10)
		for it.Next() {
			c.Collect(it.DocID(), it.Score())
		}
		_ = c.Results()
	}
}

func BenchmarkQuery_Conjunction(b *testing.B) {
	all, freqs := make([]uint32, 10_000), make([]uint32, 10_000)
	for i := range all {
		all[i] = uint32(i)
		freqs[i] = 1
	}
	even, evenFreqs := evenPostings(10_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		conj := engine.NewConjunctionIterator([]engine.PostingsIterator{
			engine.NewSlicePostingsIterator(all, freqs),
			engine.NewSlicePostingsIterator(even, evenFreqs),
		})
		for conj.Next() {
			_ = conj.DocID()
		}
	}
}

func BenchmarkQuery_Disjunction(b *testing.B) {
	even, freqs := evenPostings(5_000)
	odd := make([]uint32, len(even))
	for i, id := range even {
		odd[i] = id + 1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		disj := engine.NewDisjunctionIterator([]engine.PostingsIterator{
			engine.NewSlicePostingsIterator(even, freqs),
			engine.NewSlicePostingsIterator(odd, freqs),
		})
		for disj.Next() {
			_ = disj.Score()
		}
	}
}

func BenchmarkQuery_Advance(b *testing.B) {
	ids, freqs := evenPostings(100_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it := engine.NewSlicePostingsIterator(ids, freqs)
		for target := uint32(0); target < 200_000; target += 1000 {
			if !it.Advance(target) {
				break
			}
		}
	}
}

// Full match query: Vietnamese analysis of the query text, expansion to
// word terms, BM25 and top-k over a flushed segment.
func BenchmarkQuery_Match(b *testing.B) {
	registry := benchRegistry(b)
	w := indexing.NewWriter(benchSchema(), registry)
	for j := 0; j < 1000; j++ {
		doc := smallDoc(j)
		if j%3 == 0 {
			doc = largeDoc(j)
		}
		if err := w.AddDocument(doc); err != nil {
			b.Fatal(err)
		}
	}
	seg := w.Flush("seg_000001").Segment
	searcher := query.NewSearcher(benchSchema(), registry, []*indexing.Segment{seg})

	for _, op := range []string{query.OperatorOr, query.OperatorAnd} {
		b.Run(op, func(b *testing.B) {
			req := query.SearchRequest{
				Query: &query.MatchQuery{Field: "body", Text: "tìm kiếm công nghệ thông tin", Operator: op},
				Size:  10,
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := searcher.Search(context.Background(), req); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
