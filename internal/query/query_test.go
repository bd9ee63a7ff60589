package query

import (
	"testing"
)

func TestQueryTypes(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want QueryType
	}{
		{"TermQuery", &TermQuery{Field: "title", Term: "hello"}, QueryTypeTerm},
		{"MatchQuery", &MatchQuery{Field: "foo", Text: "công nghệ"}, QueryTypeMatch},
		{"BooleanQuery", &BooleanQuery{}, QueryTypeBoolean},
		{"MatchAllQuery", &MatchAllQuery{}, QueryTypeMatchAll},
		{"MatchNoneQuery", &MatchNoneQuery{}, QueryTypeMatchNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Type(); got != tt.want {
				t.Errorf("Type() = %d, want %d", got, tt.want)
			}
			if tt.want.String() == "unknown" {
				t.Errorf("%s has no name", tt.name)
			}
		})
	}
}

func TestRewrite_FlattenAND(t *testing.T) {
	// AND(AND(a, b), c) → AND(a, b, c)
	inner := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanMust, Query: &TermQuery{Field: "f", Term: "a"}},
			{Occur: BooleanMust, Query: &TermQuery{Field: "f", Term: "b"}},
		},
	}
	outer := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanMust, Query: inner},
			{Occur: BooleanMust, Query: &TermQuery{Field: "f", Term: "c"}},
		},
	}

	result := Rewrite(outer)
	bq, ok := result.(*BooleanQuery)
	if !ok {
		t.Fatalf("expected BooleanQuery, got %T", result)
	}
	if len(bq.Clauses) != 3 {
		t.Errorf("expected 3 clauses, got %d", len(bq.Clauses))
	}
}

func TestRewrite_FlattenOR(t *testing.T) {
	// OR(OR(a, b), c) → OR(a, b, c)
	inner := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "a"}},
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "b"}},
		},
	}
	outer := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanShould, Query: inner},
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "c"}},
		},
	}

	result := Rewrite(outer)
	bq, ok := result.(*BooleanQuery)
	if !ok {
		t.Fatalf("expected BooleanQuery, got %T", result)
	}
	if len(bq.Clauses) != 3 {
		t.Errorf("expected 3 clauses, got %d", len(bq.Clauses))
	}
}

func TestRewrite_RemoveMatchAllFromAND(t *testing.T) {
	// AND(a, MatchAll) → a
	q := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanMust, Query: &TermQuery{Field: "f", Term: "a"}},
			{Occur: BooleanMust, Query: &MatchAllQuery{}},
		},
	}

	result := Rewrite(q)
	if _, ok := result.(*TermQuery); !ok {
		t.Errorf("expected TermQuery, got %T", result)
	}
}

func TestRewrite_ShortCircuitMatchNone(t *testing.T) {
	// AND(a, MatchNone) → MatchNone
	q := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanMust, Query: &TermQuery{Field: "f", Term: "a"}},
			{Occur: BooleanMust, Query: &MatchNoneQuery{}},
		},
	}

	result := Rewrite(q)
	if _, ok := result.(*MatchNoneQuery); !ok {
		t.Errorf("expected MatchNoneQuery, got %T", result)
	}
}

func TestRewrite_AllMatchAll(t *testing.T) {
	// AND(MatchAll, MatchAll) → MatchAll
	q := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanMust, Query: &MatchAllQuery{}},
			{Occur: BooleanMust, Query: &MatchAllQuery{}},
		},
	}

	result := Rewrite(q)
	if _, ok := result.(*MatchAllQuery); !ok {
		t.Errorf("expected MatchAllQuery, got %T", result)
	}
}

func TestRewrite_LeafQuery(t *testing.T) {
	// Leaf queries pass through unchanged.
	q := &TermQuery{Field: "f", Term: "hello"}
	result := Rewrite(q)
	if result != q {
		t.Error("leaf query should pass through unchanged")
	}
}

func TestRewrite_NoFlattenMustNot(t *testing.T) {
	// NOT(AND(a, b)) should NOT be flattened.
	inner := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanMust, Query: &TermQuery{Field: "f", Term: "a"}},
			{Occur: BooleanMust, Query: &TermQuery{Field: "f", Term: "b"}},
		},
	}
	outer := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanMustNot, Query: inner},
		},
	}

	result := Rewrite(outer)
	bq, ok := result.(*BooleanQuery)
	if !ok {
		t.Fatalf("expected BooleanQuery, got %T", result)
	}
	if len(bq.Clauses) != 1 {
		t.Errorf("expected 1 clause (not flattened), got %d", len(bq.Clauses))
	}
}

func TestRewrite_EmptyBoolMatchesAll(t *testing.T) {
	result := Rewrite(&BooleanQuery{Boost: 2})
	ma, ok := result.(*MatchAllQuery)
	if !ok {
		t.Fatalf("expected MatchAllQuery, got %T", result)
	}
	if ma.Boost != 2 {
		t.Errorf("boost = %f, want 2", ma.Boost)
	}
}

func TestRewrite_MustNotMatchAll(t *testing.T) {
	q := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "a"}},
			{Occur: BooleanMustNot, Query: &MatchAllQuery{}},
		},
	}
	if _, ok := Rewrite(q).(*MatchNoneQuery); !ok {
		t.Errorf("expected MatchNoneQuery, got %T", Rewrite(q))
	}
}

func TestRewrite_DropsUnmatchableShould(t *testing.T) {
	// OR(MatchNone, MatchNone) → MatchNone
	q := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanShould, Query: &MatchNoneQuery{}},
			{Occur: BooleanShould, Query: &MatchNoneQuery{}},
		},
	}
	if _, ok := Rewrite(q).(*MatchNoneQuery); !ok {
		t.Errorf("expected MatchNoneQuery, got %T", Rewrite(q))
	}

	// OR(a, MatchNone) → a
	a := &TermQuery{Field: "f", Term: "a"}
	q = &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanShould, Query: a},
			{Occur: BooleanShould, Query: &MatchNoneQuery{}},
		},
	}
	if got := Rewrite(q); got != a {
		t.Errorf("expected the remaining term query, got %T", got)
	}
}

func TestRewrite_MatchAllKeptWithOptionalClauses(t *testing.T) {
	// must(MatchAll) + should(a) still matches every doc.
	q := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanMust, Query: &MatchAllQuery{}},
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "a"}},
		},
	}
	bq, ok := Rewrite(q).(*BooleanQuery)
	if !ok {
		t.Fatalf("expected BooleanQuery, got %T", Rewrite(q))
	}
	if len(bq.Clauses) != 2 {
		t.Errorf("expected 2 clauses, got %d", len(bq.Clauses))
	}
}

func TestRewrite_MinimumShouldMatchTooHigh(t *testing.T) {
	q := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "a"}},
		},
		MinimumShouldMatch: 2,
	}
	if _, ok := Rewrite(q).(*MatchNoneQuery); !ok {
		t.Errorf("expected MatchNoneQuery, got %T", Rewrite(q))
	}
}

func TestRewrite_NoFlattenBoosted(t *testing.T) {
	inner := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "a"}},
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "b"}},
		},
		Boost: 3,
	}
	outer := &BooleanQuery{
		Clauses: []BooleanClause{
			{Occur: BooleanShould, Query: inner},
			{Occur: BooleanShould, Query: &TermQuery{Field: "f", Term: "c"}},
		},
	}
	bq, ok := Rewrite(outer).(*BooleanQuery)
	if !ok {
		t.Fatalf("expected BooleanQuery, got %T", Rewrite(outer))
	}
	if len(bq.Clauses) != 2 {
		t.Errorf("boosted inner bool should stay nested, got %d clauses", len(bq.Clauses))
	}
}
