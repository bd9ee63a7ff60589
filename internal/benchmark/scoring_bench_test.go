package benchmark

import (
	"testing"

	"ViSearch/internal/scoring"
)

var benchStats = scoring.FieldStats{DocCount: 100_000, FieldDocCount: 98_000, SumLength: 2_450_000}

func BenchmarkScoring_Weight(b *testing.B) {
	s := scoring.NewFieldScorer(benchStats)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Weight("title", "công nghệ", 500, 1)
	}
}

func BenchmarkScoring_TermWeightScore(b *testing.B) {
	w := scoring.NewFieldScorer(benchStats).Weight("title", "công nghệ", 500, 1)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.Score(uint32(1+i%5), uint32(10+i%40))
	}
}

func BenchmarkScoring_MultiTerm(b *testing.B) {
	s := scoring.NewFieldScorer(benchStats)
	terms := []scoring.QueryTerm{
		{Term: "công nghệ", TermFreq: 3, DocFreq: 500, Boost: 1},
		{Term: "thông tin", TermFreq: 1, DocFreq: 2_000, Boost: 1},
		{Term: "việt nam", TermFreq: 2, DocFreq: 9_000, Boost: 1.5},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.ScoreMultiTerm(terms, 25)
	}
}

func BenchmarkScoring_Explain(b *testing.B) {
	w := scoring.NewFieldScorer(benchStats).Weight("title", "công nghệ", 500, 1)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.Explain(3, 20)
	}
}
