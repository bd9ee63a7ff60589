package query

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// SearchRequest is a decoded search body.
type SearchRequest struct {
	Query   Query
	From    int
	Size    int
	Explain bool
	// Source controls whether hits carry their _source.
	Source bool
}

type rawSearchRequest struct {
	Query   json.RawMessage `json:"query"`
	From    *int            `json:"from"`
	Size    *int            `json:"size"`
	Explain bool            `json:"explain"`
	Source  *bool           `json:"_source"`
}

// ParseSearchRequest decodes a search body. An empty body matches all docs.
func ParseSearchRequest(data []byte) (SearchRequest, error) {
	req := SearchRequest{
		Query:  &MatchAllQuery{},
		Size:   DefaultSize,
		Source: true,
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}

	var raw rawSearchRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	if len(raw.Query) > 0 {
		q, err := ParseQuery(raw.Query)
		if err != nil {
			return req, err
		}
		req.Query = q
	}
	if raw.From != nil {
		req.From = *raw.From
	}
	if raw.Size != nil {
		req.Size = *raw.Size
	}
	if raw.Source != nil {
		req.Source = *raw.Source
	}
	req.Explain = raw.Explain

	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// Validate checks paging bounds.
func (r SearchRequest) Validate() error {
	if r.From < 0 || r.Size < 0 {
		return fmt.Errorf("%w: from and size must not be negative", ErrInvalidQuery)
	}
	if r.From+r.Size > MaxResultWindow {
		return fmt.Errorf("%w: from + size must be at most %d", ErrInvalidQuery, MaxResultWindow)
	}
	return nil
}

// ParseQuery decodes a query DSL object such as {"match": {"foo": "text"}}.
func ParseQuery(data []byte) (Query, error) {
	return parseQuery(data, 0)
}

func parseQuery(data []byte, depth int) (Query, error) {
	if depth > MaxBooleanDepth {
		return nil, fmt.Errorf("%w: bool nesting exceeds %d", ErrInvalidQuery, MaxBooleanDepth)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one query type, got %d", ErrInvalidQuery, len(obj))
	}

	for kind, body := range obj {
		switch kind {
		case "match":
			return parseMatch(body)
		case "term":
			return parseTerm(body)
		case "match_all":
			return parseMatchAll(body)
		case "match_none":
			return &MatchNoneQuery{}, nil
		case "bool":
			return parseBool(body, depth)
		default:
			return nil, fmt.Errorf("%w: unknown query type %q", ErrInvalidQuery, kind)
		}
	}
	return nil, nil
}

// singleField decodes {"field": value} into its field name and raw value.
func singleField(kind string, data []byte) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrInvalidQuery, kind, err)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("%w: %s expects exactly one field", ErrInvalidQuery, kind)
	}
	for field, v := range obj {
		return field, v, nil
	}
	return "", nil, nil
}

func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func parseMatch(data []byte) (Query, error) {
	field, v, err := singleField("match", data)
	if err != nil {
		return nil, err
	}
	q := &MatchQuery{Field: field, Operator: OperatorOr}

	if !isObject(v) {
		if q.Text, err = scalarText(v); err != nil {
			return nil, fmt.Errorf("%w: match: %v", ErrInvalidQuery, err)
		}
		return q, nil
	}

	var opts struct {
		Query    json.RawMessage `json:"query"`
		Operator string          `json:"operator"`
		Analyzer string          `json:"analyzer"`
		Boost    float32         `json:"boost"`
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return nil, fmt.Errorf("%w: match: %v", ErrInvalidQuery, err)
	}
	if len(opts.Query) == 0 {
		return nil, fmt.Errorf("%w: match: [query] is required", ErrInvalidQuery)
	}
	if q.Text, err = scalarText(opts.Query); err != nil {
		return nil, fmt.Errorf("%w: match: %v", ErrInvalidQuery, err)
	}
	switch op := strings.ToLower(opts.Operator); op {
	case "", OperatorOr:
	case OperatorAnd:
		q.Operator = OperatorAnd
	default:
		return nil, fmt.Errorf("%w: match: unknown operator %q", ErrInvalidQuery, opts.Operator)
	}
	q.Analyzer = opts.Analyzer
	q.Boost = opts.Boost
	return q, nil
}

func parseTerm(data []byte) (Query, error) {
	field, v, err := singleField("term", data)
	if err != nil {
		return nil, err
	}
	q := &TermQuery{Field: field}

	if !isObject(v) {
		if q.Term, err = scalarText(v); err != nil {
			return nil, fmt.Errorf("%w: term: %v", ErrInvalidQuery, err)
		}
		return q, nil
	}

	var opts struct {
		Value json.RawMessage `json:"value"`
		Boost float32         `json:"boost"`
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return nil, fmt.Errorf("%w: term: %v", ErrInvalidQuery, err)
	}
	if len(opts.Value) == 0 {
		return nil, fmt.Errorf("%w: term: [value] is required", ErrInvalidQuery)
	}
	if q.Term, err = scalarText(opts.Value); err != nil {
		return nil, fmt.Errorf("%w: term: %v", ErrInvalidQuery, err)
	}
	q.Boost = opts.Boost
	return q, nil
}

func parseMatchAll(data []byte) (Query, error) {
	var opts struct {
		Boost float32 `json:"boost"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return nil, fmt.Errorf("%w: match_all: %v", ErrInvalidQuery, err)
	}
	return &MatchAllQuery{Boost: opts.Boost}, nil
}

func parseBool(data []byte, depth int) (Query, error) {
	var raw struct {
		Must               json.RawMessage `json:"must"`
		Should             json.RawMessage `json:"should"`
		MustNot            json.RawMessage `json:"must_not"`
		Filter             json.RawMessage `json:"filter"`
		MinimumShouldMatch int             `json:"minimum_should_match"`
		Boost              float32         `json:"boost"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: bool: %v", ErrInvalidQuery, err)
	}
	if raw.MinimumShouldMatch < 0 {
		return nil, fmt.Errorf("%w: bool: minimum_should_match must not be negative", ErrInvalidQuery)
	}

	bq := &BooleanQuery{MinimumShouldMatch: raw.MinimumShouldMatch, Boost: raw.Boost}
	for _, part := range []struct {
		occur BooleanOp
		data  json.RawMessage
	}{
		{BooleanMust, raw.Must},
		{BooleanFilter, raw.Filter},
		{BooleanShould, raw.Should},
		{BooleanMustNot, raw.MustNot},
	} {
		if len(part.data) == 0 {
			continue
		}
		items, err := clauseList(part.data)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			sub, err := parseQuery(item, depth+1)
			if err != nil {
				return nil, err
			}
			bq.Clauses = append(bq.Clauses, BooleanClause{Occur: part.occur, Query: sub})
		}
	}
	if len(bq.Clauses) > MaxBooleanClauses {
		return nil, fmt.Errorf("%w: bool has more than %d clauses", ErrInvalidQuery, MaxBooleanClauses)
	}
	return bq, nil
}

// clauseList accepts a single query object or an array of them.
func clauseList(data []byte) ([]json.RawMessage, error) {
	if isObject(data) {
		return []json.RawMessage{data}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: bool: %v", ErrInvalidQuery, err)
	}
	return items, nil
}

// scalarText renders a JSON string, number or bool the way keyword values are indexed.
func scalarText(data []byte) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("expected a string, number or boolean, got %s", bytes.TrimSpace(data))
	}
}
