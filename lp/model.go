// Package lp describes linear programs over non-negative continuous variables
// and the solvers that optimize them.
package lp

import (
	"fmt"
	"math"
)

// Sense is the optimization direction of a Model.
type Sense int

const (
	Maximize Sense = iota
	Minimize
)

func (s Sense) String() string {
	switch s {
	case Maximize:
		return "maximize"
	case Minimize:
		return "minimize"
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Op is the comparison of a constraint row against its right-hand side.
type Op int

const (
	LessEq Op = iota
	GreaterEq
	Equal
)

func (o Op) String() string {
	switch o {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "=="
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Constraint is the row Σ Coeffs[j]·x[j] Op RHS.
type Constraint struct {
	Name   string
	Coeffs []float64
	Op     Op
	RHS    float64
}

// Model is a linear program. Every variable is bounded to [0, +Inf).
type Model struct {
	Sense       Sense
	Objective   []float64
	Constraints []Constraint
}

// NumVars returns the number of decision variables.
func (m *Model) NumVars() int {
	return len(m.Objective)
}

// Validate checks dimensions and that every coefficient is finite.
func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("model cannot be nil")
	}
	n := m.NumVars()
	for j, v := range m.Objective {
		if !finite(v) {
			return fmt.Errorf("objective coefficient %d is not finite", j)
		}
	}
	for _, c := range m.Constraints {
		if len(c.Coeffs) != n {
			return fmt.Errorf("constraint %q has %d coefficients, want %d", c.Name, len(c.Coeffs), n)
		}
		if !finite(c.RHS) {
			return fmt.Errorf("constraint %q right-hand side is not finite", c.Name)
		}
		for j, v := range c.Coeffs {
			if !finite(v) {
				return fmt.Errorf("constraint %q coefficient %d is not finite", c.Name, j)
			}
		}
	}
	return nil
}

// Evaluate returns the objective value of x.
func (m *Model) Evaluate(x []float64) float64 {
	var sum float64
	for j, c := range m.Objective {
		sum += c * x[j]
	}
	return sum
}

// Solution is the optimal point found by a Solver.
type Solution struct {
	// Values holds one entry per model variable, in variable order.
	Values    []float64
	Objective float64
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
