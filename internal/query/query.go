package query

import "errors"

// QueryType identifies the kind of query node.
type QueryType int

const (
	QueryTypeTerm QueryType = iota
	QueryTypeMatch
	QueryTypeBoolean
	QueryTypeMatchAll
	QueryTypeMatchNone
)

func (t QueryType) String() string {
	switch t {
	case QueryTypeTerm:
		return "term"
	case QueryTypeMatch:
		return "match"
	case QueryTypeBoolean:
		return "bool"
	case QueryTypeMatchAll:
		return "match_all"
	case QueryTypeMatchNone:
		return "match_none"
	default:
		return "unknown"
	}
}

// Query is the interface for all query AST nodes.
type Query interface {
	Type() QueryType
}

// Boolean operator limits.
const (
	MaxBooleanClauses = 1024
	MaxBooleanDepth   = 10
)

// Paging limits.
const (
	DefaultSize     = 10
	MaxResultWindow = 10000
)

var ErrInvalidQuery = errors.New("invalid query")
