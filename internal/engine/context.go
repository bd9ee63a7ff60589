package engine

import (
	"context"
	"errors"
	"time"
)

var (
	ErrQueryTimeout   = errors.New("query execution timeout")
	ErrTooManyClauses = errors.New("too many query clauses")
	ErrQueryCanceled  = errors.New("query canceled")
)

// DefaultMaxClauses is the leaf clause limit used when none is configured.
const DefaultMaxClauses = 1024

// ExecutionContext tracks execution limits and timeout for a query.
type ExecutionContext struct {
	ctx context.Context

	Deadline time.Time

	MaxClauses int
	Clauses    int

	// checkCounter amortizes time checks.
	checkCounter  int
	checkInterval int

	TimedOut      bool
	LimitExceeded bool
}

// NewExecutionContext creates a context with the given timeout and clause
// limit. The deadline is the earlier of ctx's deadline and now+timeout.
func NewExecutionContext(ctx context.Context, timeout time.Duration, maxClauses int) *ExecutionContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxClauses <= 0 {
		maxClauses = DefaultMaxClauses
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return &ExecutionContext{
		ctx:           ctx,
		Deadline:      deadline,
		MaxClauses:    maxClauses,
		checkInterval: 128,
	}
}

// AddClauses records n more leaf clauses and fails once the limit is passed.
func (ec *ExecutionContext) AddClauses(n int) error {
	ec.Clauses += n
	if ec.Clauses > ec.MaxClauses {
		ec.LimitExceeded = true
		return ErrTooManyClauses
	}
	return nil
}

// CheckLimits checks whether the query has run out of time or was canceled.
// Time checks are amortized to avoid calling time.Now() on every iteration.
func (ec *ExecutionContext) CheckLimits() error {
	ec.checkCounter++
	if ec.checkCounter%ec.checkInterval != 0 {
		return nil
	}
	if ec.ctx.Err() != nil {
		return ErrQueryCanceled
	}
	if time.Now().After(ec.Deadline) {
		ec.TimedOut = true
		return ErrQueryTimeout
	}
	return nil
}
