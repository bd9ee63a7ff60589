package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery_Match(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *MatchQuery
	}{
		{
			name: "short form",
			body: `{"match": {"foo": "công nghệ thông tin"}}`,
			want: &MatchQuery{Field: "foo", Text: "công nghệ thông tin", Operator: OperatorOr},
		},
		{
			name: "long form",
			body: `{"match": {"foo": {"query": "việt nam", "operator": "AND", "boost": 2}}}`,
			want: &MatchQuery{Field: "foo", Text: "việt nam", Operator: OperatorAnd, Boost: 2},
		},
		{
			name: "analyzer override",
			body: `{"match": {"foo": {"query": "x", "analyzer": "vi_analyzer"}}}`,
			want: &MatchQuery{Field: "foo", Text: "x", Operator: OperatorOr, Analyzer: "vi_analyzer"},
		},
		{
			name: "number",
			body: `{"match": {"year": 2024}}`,
			want: &MatchQuery{Field: "year", Text: "2024", Operator: OperatorOr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestParseQuery_Term(t *testing.T) {
	q, err := ParseQuery([]byte(`{"term": {"tag": "tin tức"}}`))
	require.NoError(t, err)
	assert.Equal(t, &TermQuery{Field: "tag", Term: "tin tức"}, q)

	q, err = ParseQuery([]byte(`{"term": {"published": {"value": true, "boost": 1.5}}}`))
	require.NoError(t, err)
	assert.Equal(t, &TermQuery{Field: "published", Term: "true", Boost: 1.5}, q)
}

func TestParseQuery_MatchAll(t *testing.T) {
	q, err := ParseQuery([]byte(`{"match_all": {}}`))
	require.NoError(t, err)
	assert.Equal(t, &MatchAllQuery{}, q)

	q, err = ParseQuery([]byte(`{"match_none": {}}`))
	require.NoError(t, err)
	assert.Equal(t, &MatchNoneQuery{}, q)
}

func TestParseQuery_Bool(t *testing.T) {
	body := `{"bool": {
		"must": {"match": {"foo": "công nghệ"}},
		"should": [{"term": {"tag": "a"}}, {"term": {"tag": "b"}}],
		"must_not": [{"term": {"tag": "c"}}],
		"filter": [{"match_all": {}}],
		"minimum_should_match": 1
	}}`
	q, err := ParseQuery([]byte(body))
	require.NoError(t, err)

	bq, ok := q.(*BooleanQuery)
	require.True(t, ok)
	assert.Equal(t, 1, bq.MinimumShouldMatch)

	var occurs []BooleanOp
	for _, c := range bq.Clauses {
		occurs = append(occurs, c.Occur)
	}
	assert.Equal(t, []BooleanOp{BooleanMust, BooleanFilter, BooleanShould, BooleanShould, BooleanMustNot}, occurs)
}

func TestParseQuery_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"empty object", `{}`},
		{"two types", `{"match_all": {}, "match_none": {}}`},
		{"unknown type", `{"fuzzy": {"f": "x"}}`},
		{"match two fields", `{"match": {"a": "x", "b": "y"}}`},
		{"match missing query", `{"match": {"a": {"operator": "and"}}}`},
		{"match bad operator", `{"match": {"a": {"query": "x", "operator": "xor"}}}`},
		{"match unknown option", `{"match": {"a": {"query": "x", "fuzziness": 2}}}`},
		{"match object value", `{"match": {"a": {"query": {"x": 1}}}}`},
		{"term missing value", `{"term": {"a": {"boost": 1}}}`},
		{"term null", `{"term": {"a": null}}`},
		{"bool unknown clause", `{"bool": {"must_maybe": []}}`},
		{"bool negative msm", `{"bool": {"minimum_should_match": -1}}`},
		{"bool bad clause", `{"bool": {"must": [{"nope": {}}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery([]byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestParseQuery_DepthLimit(t *testing.T) {
	body := `{"match_all": {}}`
	for i := 0; i <= MaxBooleanDepth+1; i++ {
		body = `{"bool": {"must": [` + body + `]}}`
	}
	_, err := ParseQuery([]byte(body))
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestParseSearchRequest(t *testing.T) {
	req, err := ParseSearchRequest(nil)
	require.NoError(t, err)
	assert.Equal(t, &MatchAllQuery{}, req.Query)
	assert.Equal(t, DefaultSize, req.Size)
	assert.True(t, req.Source)

	req, err = ParseSearchRequest([]byte(`{"query": {"match": {"foo": "x"}}, "from": 5, "size": 3, "explain": true, "_source": false}`))
	require.NoError(t, err)
	assert.Equal(t, 5, req.From)
	assert.Equal(t, 3, req.Size)
	assert.True(t, req.Explain)
	assert.False(t, req.Source)
	assert.IsType(t, &MatchQuery{}, req.Query)

	for _, body := range []string{
		`{"size": -1}`,
		`{"from": 9999, "size": 2}`,
		`{"query": {"bogus": {}}}`,
		`{"unknown": 1}`,
	} {
		_, err := ParseSearchRequest([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidQuery, body)
	}
}
