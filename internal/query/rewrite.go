package query

// Rewrite applies optimization rules to a query AST until a fixed point is reached.
// Rules: flatten nested booleans, remove MatchAll from AND, short-circuit MatchNone in AND,
// propagate NOT(MatchAll) → MatchNone, drop clauses that can never match.
func Rewrite(q Query) Query {
	for {
		rewritten := rewriteOnce(q)
		if queryEqual(rewritten, q) {
			return rewritten
		}
		q = rewritten
	}
}

func rewriteOnce(q Query) Query {
	switch v := q.(type) {
	case *BooleanQuery:
		return rewriteBoolean(v)
	default:
		return q
	}
}

func rewriteBoolean(q *BooleanQuery) Query {
	if len(q.Clauses) == 0 {
		return &MatchAllQuery{Boost: q.Boost}
	}

	// Recursively rewrite children first.
	clauses := make([]BooleanClause, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		rewritten := rewriteOnce(c.Query)

		if inner, ok := rewritten.(*BooleanQuery); ok {
			if canFlatten(q, c.Occur, inner) {
				for _, ic := range inner.Clauses {
					clauses = append(clauses, BooleanClause{Occur: c.Occur, Query: ic.Query})
				}
				continue
			}
		}

		clauses = append(clauses, BooleanClause{Occur: c.Occur, Query: rewritten})
	}

	hadShould := false
	filtered := make([]BooleanClause, 0, len(clauses))
	for _, c := range clauses {
		switch c.Query.(type) {
		case *MatchNoneQuery:
			switch c.Occur {
			case BooleanMust, BooleanFilter:
				return &MatchNoneQuery{}
			case BooleanShould:
				hadShould = true
			}
			continue
		case *MatchAllQuery:
			if c.Occur == BooleanMustNot {
				return &MatchNoneQuery{}
			}
		}
		if c.Occur == BooleanShould {
			hadShould = true
		}
		filtered = append(filtered, c)
	}

	// Remove MatchAll from AND while another required clause remains.
	required := 0
	for _, c := range filtered {
		if isRequired(c.Occur) {
			if _, ok := c.Query.(*MatchAllQuery); !ok {
				required++
			}
		}
	}
	// With none left, keep a single MatchAll.
	seenMatchAll := false
	kept := filtered[:0]
	for _, c := range filtered {
		if _, ok := c.Query.(*MatchAllQuery); ok && isRequired(c.Occur) {
			if required > 0 || seenMatchAll {
				continue
			}
			seenMatchAll = true
		}
		kept = append(kept, c)
	}
	filtered = kept

	var should, hasRequired int
	for _, c := range filtered {
		if c.Occur == BooleanShould {
			should++
		}
		if isRequired(c.Occur) {
			hasRequired++
		}
	}

	minShould := q.MinimumShouldMatch
	if minShould == 0 && hasRequired == 0 && hadShould {
		minShould = 1
	}
	if minShould > should {
		return &MatchNoneQuery{}
	}

	if len(filtered) == 0 {
		return &MatchAllQuery{Boost: q.Boost}
	}

	// Single scoring clause remaining: unwrap.
	if len(filtered) == 1 && boostOrOne(q.Boost) == 1 {
		c := filtered[0]
		if c.Occur == BooleanMust || (c.Occur == BooleanShould && minShould <= 1) {
			return c.Query
		}
	}

	return &BooleanQuery{
		Clauses:            filtered,
		MinimumShouldMatch: q.MinimumShouldMatch,
		Boost:              q.Boost,
	}
}

func isRequired(op BooleanOp) bool {
	return op == BooleanMust || op == BooleanFilter
}

// canFlatten returns true if an inner boolean can be flattened into the outer clause.
// AND(AND(a,b)) → AND(a,b) and OR(OR(a,b)) → OR(a,b).
func canFlatten(outer *BooleanQuery, occur BooleanOp, inner *BooleanQuery) bool {
	if occur == BooleanMustNot || boostOrOne(inner.Boost) != 1 {
		return false
	}
	if occur == BooleanShould && (outer.MinimumShouldMatch > 1 || inner.MinimumShouldMatch > 1) {
		return false
	}
	for _, c := range inner.Clauses {
		if c.Occur != occur {
			return false
		}
	}
	return true
}

// queryEqual checks structural equality for fixed-point detection.
func queryEqual(a, b Query) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *BooleanQuery:
		bv := b.(*BooleanQuery)
		if len(av.Clauses) != len(bv.Clauses) || av.Boost != bv.Boost ||
			av.MinimumShouldMatch != bv.MinimumShouldMatch {
			return false
		}
		for i := range av.Clauses {
			if av.Clauses[i].Occur != bv.Clauses[i].Occur {
				return false
			}
			if !queryEqual(av.Clauses[i].Query, bv.Clauses[i].Query) {
				return false
			}
		}
		return true
	case *MatchAllQuery:
		return av.Boost == b.(*MatchAllQuery).Boost
	case *MatchNoneQuery:
		return true
	}
	// For leaf nodes, pointer equality is sufficient after one pass.
	return a == b
}
