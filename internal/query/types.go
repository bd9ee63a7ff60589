package query

// TermQuery matches documents containing the exact term. The term is not analyzed.
type TermQuery struct {
	Field string
	Term  string
	Boost float32
}

func (q *TermQuery) Type() QueryType { return QueryTypeTerm }

// Match operators.
const (
	OperatorOr  = "or"
	OperatorAnd = "and"
)

// MatchQuery analyzes Text with the field's search analyzer and matches
// documents containing any (or, with OperatorAnd, all) of the resulting terms.
type MatchQuery struct {
	Field    string
	Text     string
	Operator string
	// Analyzer overrides the field's search analyzer when set.
	Analyzer string
	Boost    float32
}

func (q *MatchQuery) Type() QueryType { return QueryTypeMatch }

// BooleanOp defines the boolean operator.
type BooleanOp int

const (
	BooleanMust    BooleanOp = iota // AND
	BooleanShould                   // OR
	BooleanMustNot                  // NOT
	BooleanFilter                   // AND, not scored
)

// BooleanClause is a single clause within a BooleanQuery.
type BooleanClause struct {
	Occur BooleanOp
	Query Query
}

// BooleanQuery combines sub-queries with boolean logic.
type BooleanQuery struct {
	Clauses []BooleanClause
	// MinimumShouldMatch is the number of should clauses a doc must match.
	// Zero means one when there are no must or filter clauses, else none.
	MinimumShouldMatch int
	Boost              float32
}

func (q *BooleanQuery) Type() QueryType { return QueryTypeBoolean }

// MatchAllQuery matches all documents.
type MatchAllQuery struct {
	Boost float32
}

func (q *MatchAllQuery) Type() QueryType { return QueryTypeMatchAll }

// MatchNoneQuery matches no documents.
type MatchNoneQuery struct{}

func (q *MatchNoneQuery) Type() QueryType { return QueryTypeMatchNone }

func boostOrOne(b float32) float32 {
	if b == 0 {
		return 1
	}
	return b
}
