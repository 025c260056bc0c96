package lp

import (
	"context"
	"errors"
)

var (
	// ErrInfeasible means no point satisfies every constraint.
	ErrInfeasible = errors.New("linear program is infeasible")

	// ErrUnbounded means the objective improves without limit.
	ErrUnbounded = errors.New("linear program is unbounded")

	// ErrNumerical means the solver failed for numerical reasons.
	ErrNumerical = errors.New("linear program solver failed")
)

// Solver optimizes a Model. Implementations must return ErrInfeasible and
// ErrUnbounded (possibly wrapped) for those outcomes and must be safe for
// concurrent use.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, m *Model) (*Solution, error)

func (f SolverFunc) Solve(ctx context.Context, m *Model) (*Solution, error) {
	return f(ctx, m)
}
