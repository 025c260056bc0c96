package lp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
	golp "gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultTolerance is the reduced-cost tolerance handed to the simplex method.
const DefaultTolerance = 1e-10

// SimplexSolver solves models with gonum's simplex implementation.
// Each call builds its own matrices, so a single value can serve concurrent calls.
type SimplexSolver struct {
	Tolerance float64
}

// NewSimplexSolver creates a solver with the given tolerance (0 selects DefaultTolerance)
func NewSimplexSolver(tolerance float64) *SimplexSolver {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &SimplexSolver{Tolerance: tolerance}
}

// Solve converts m to standard form (one slack or surplus column per inequality,
// objective negated for maximization) and runs the simplex method.
func (s *SimplexSolver) Solve(ctx context.Context, m *Model) (sol *Solution, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNumerical, err)
	}

	n := m.NumVars()

	// Variables absent from every row cannot be bounded by the constraints.
	active := make([]int, 0, n)
	for j := 0; j < n; j++ {
		if columnIsZero(m, j) {
			if improves(m.Sense, m.Objective[j]) {
				return nil, fmt.Errorf("%w: variable %d is unconstrained", ErrUnbounded, j)
			}
			continue
		}
		active = append(active, j)
	}

	rows := make([]Constraint, 0, len(m.Constraints))
	for _, c := range m.Constraints {
		if rowIsZero(c, active) {
			if !zeroRowHolds(c) {
				return nil, fmt.Errorf("%w: constraint %q cannot hold", ErrInfeasible, c.Name)
			}
			if c.Op == Equal {
				continue
			}
		}
		rows = append(rows, c)
	}

	values := make([]float64, n)
	if len(rows) == 0 {
		return &Solution{Values: values, Objective: m.Evaluate(values)}, nil
	}

	slacks := 0
	for _, c := range rows {
		if c.Op != Equal {
			slacks++
		}
	}
	cols := len(active) + slacks
	if cols < len(rows) {
		return nil, fmt.Errorf("%w: %d rows exceed %d columns", ErrNumerical, len(rows), cols)
	}

	A := mat.NewDense(len(rows), cols, nil)
	b := make([]float64, len(rows))
	c := make([]float64, cols)
	for k, j := range active {
		c[k] = m.Objective[j]
		if m.Sense == Maximize {
			c[k] = -c[k]
		}
	}
	slack := len(active)
	for i, row := range rows {
		for k, j := range active {
			A.Set(i, k, row.Coeffs[j])
		}
		b[i] = row.RHS
		switch row.Op {
		case LessEq:
			A.Set(i, slack, 1)
			slack++
		case GreaterEq:
			A.Set(i, slack, -1)
			slack++
		}
	}

	// gonum panics on shape problems; surface those as solver failures.
	defer func() {
		if r := recover(); r != nil {
			sol = nil
			err = fmt.Errorf("%w: %v", ErrNumerical, r)
		}
	}()

	_, x, err := golp.Simplex(c, A, b, s.Tolerance, nil)
	if err != nil {
		return nil, classify(err)
	}

	for k, j := range active {
		v := x[k]
		if v < 0 {
			v = 0
		}
		values[j] = v
	}
	return &Solution{Values: values, Objective: m.Evaluate(values)}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, golp.ErrInfeasible):
		return fmt.Errorf("%w: %v", ErrInfeasible, err)
	case errors.Is(err, golp.ErrUnbounded):
		return fmt.Errorf("%w: %v", ErrUnbounded, err)
	case strings.Contains(err.Error(), golp.ErrInfeasible.Error()):
		// Phase I failures wrap the sentinel as text only.
		return fmt.Errorf("%w: %v", ErrInfeasible, err)
	default:
		return fmt.Errorf("%w: %v", ErrNumerical, err)
	}
}

func improves(sense Sense, coeff float64) bool {
	if sense == Maximize {
		return coeff > 0
	}
	return coeff < 0
}

func columnIsZero(m *Model, j int) bool {
	for _, c := range m.Constraints {
		if c.Coeffs[j] != 0 {
			return false
		}
	}
	return true
}

func rowIsZero(c Constraint, active []int) bool {
	for _, j := range active {
		if c.Coeffs[j] != 0 {
			return false
		}
	}
	return true
}

// zeroRowHolds reports whether 0 Op RHS is true.
func zeroRowHolds(c Constraint) bool {
	switch c.Op {
	case LessEq:
		return c.RHS >= 0
	case GreaterEq:
		return c.RHS <= 0
	default:
		return c.RHS == 0
	}
}
