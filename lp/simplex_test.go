package lp

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

const eps = 1e-6

func mealModel(calories, protein, carbs, sodium float64) *Model {
	// chicken, rice
	return &Model{
		Sense:     Maximize,
		Objective: []float64{100, 100},
		Constraints: []Constraint{
			{Name: "calories", Coeffs: []float64{165, 130}, Op: LessEq, RHS: calories},
			{Name: "protein", Coeffs: []float64{31, 2.7}, Op: GreaterEq, RHS: protein},
			{Name: "carbs", Coeffs: []float64{0, 28}, Op: LessEq, RHS: carbs},
			{Name: "sodium", Coeffs: []float64{74, 1}, Op: LessEq, RHS: sodium},
		},
	}
}

func TestSimplexMealOptimum(t *testing.T) {
	sol, err := NewSimplexSolver(0).Solve(context.Background(), mealModel(800, 40, 100, 1000))
	if err != nil {
		t.Fatalf("Solve() failed: %v", err)
	}

	rice := 100.0 / 28
	chicken := (800 - 130*rice) / 165
	if math.Abs(sol.Values[0]-chicken) > eps || math.Abs(sol.Values[1]-rice) > eps {
		t.Errorf("Values = %v, want [%v %v]", sol.Values, chicken, rice)
	}
	if want := 100 * (chicken + rice); math.Abs(sol.Objective-want) > 1e-4 {
		t.Errorf("Objective = %v, want %v", sol.Objective, want)
	}
}

func TestSimplexMinimize(t *testing.T) {
	// minimize x + y subject to x + 2y >= 4, 3x + y >= 6
	m := &Model{
		Sense:     Minimize,
		Objective: []float64{1, 1},
		Constraints: []Constraint{
			{Name: "a", Coeffs: []float64{1, 2}, Op: GreaterEq, RHS: 4},
			{Name: "b", Coeffs: []float64{3, 1}, Op: GreaterEq, RHS: 6},
		},
	}

	sol, err := NewSimplexSolver(0).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve() failed: %v", err)
	}
	if math.Abs(sol.Values[0]-1.6) > eps || math.Abs(sol.Values[1]-1.2) > eps {
		t.Errorf("Values = %v, want [1.6 1.2]", sol.Values)
	}
	if math.Abs(sol.Objective-2.8) > eps {
		t.Errorf("Objective = %v, want 2.8", sol.Objective)
	}
}

func TestSimplexEquality(t *testing.T) {
	m := &Model{
		Sense:     Maximize,
		Objective: []float64{1, 2},
		Constraints: []Constraint{
			{Name: "sum", Coeffs: []float64{1, 1}, Op: Equal, RHS: 3},
			{Name: "cap", Coeffs: []float64{0, 1}, Op: LessEq, RHS: 2},
		},
	}

	sol, err := NewSimplexSolver(0).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve() failed: %v", err)
	}
	if math.Abs(sol.Values[0]-1) > eps || math.Abs(sol.Values[1]-2) > eps {
		t.Errorf("Values = %v, want [1 2]", sol.Values)
	}
}

func TestSimplexInfeasible(t *testing.T) {
	_, err := NewSimplexSolver(0).Solve(context.Background(), mealModel(50, 40, 100, 1000))
	if !errors.Is(err, ErrInfeasible) {
		t.Errorf("Expected ErrInfeasible, got %v", err)
	}
}

func TestSimplexUnbounded(t *testing.T) {
	m := &Model{
		Sense:     Maximize,
		Objective: []float64{1, 1},
		Constraints: []Constraint{
			{Name: "floor", Coeffs: []float64{1, 1}, Op: GreaterEq, RHS: 1},
		},
	}

	_, err := NewSimplexSolver(0).Solve(context.Background(), m)
	if !errors.Is(err, ErrUnbounded) {
		t.Errorf("Expected ErrUnbounded, got %v", err)
	}
}

func TestSimplexUnconstrainedVariable(t *testing.T) {
	m := mealModel(800, 40, 100, 1000)
	m.Objective = append(m.Objective, 50)
	for i := range m.Constraints {
		m.Constraints[i].Coeffs = append(m.Constraints[i].Coeffs, 0)
	}

	_, err := NewSimplexSolver(0).Solve(context.Background(), m)
	if !errors.Is(err, ErrUnbounded) {
		t.Errorf("Expected ErrUnbounded for a free variable with positive weight, got %v", err)
	}
}

func TestSimplexZeroWeightUnconstrainedVariable(t *testing.T) {
	m := mealModel(800, 40, 100, 1000)
	m.Objective = append(m.Objective, 0)
	for i := range m.Constraints {
		m.Constraints[i].Coeffs = append(m.Constraints[i].Coeffs, 0)
	}

	sol, err := NewSimplexSolver(0).Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("Solve() failed: %v", err)
	}
	if len(sol.Values) != 3 || sol.Values[2] != 0 {
		t.Errorf("Free variable should be pinned to zero, got %v", sol.Values)
	}
}

func TestSimplexNoVariables(t *testing.T) {
	solver := NewSimplexSolver(0)

	feasible := &Model{
		Sense:     Maximize,
		Objective: []float64{},
		Constraints: []Constraint{
			{Name: "calories", Coeffs: []float64{}, Op: LessEq, RHS: 800},
			{Name: "protein", Coeffs: []float64{}, Op: GreaterEq, RHS: 0},
		},
	}
	sol, err := solver.Solve(context.Background(), feasible)
	if err != nil {
		t.Fatalf("Solve() failed: %v", err)
	}
	if len(sol.Values) != 0 || sol.Objective != 0 {
		t.Errorf("Expected empty zero solution, got %+v", sol)
	}

	infeasible := &Model{
		Sense:     Maximize,
		Objective: []float64{},
		Constraints: []Constraint{
			{Name: "protein", Coeffs: []float64{}, Op: GreaterEq, RHS: 40},
		},
	}
	if _, err := solver.Solve(context.Background(), infeasible); !errors.Is(err, ErrInfeasible) {
		t.Errorf("Expected ErrInfeasible, got %v", err)
	}
}

func TestSimplexInvalidModel(t *testing.T) {
	m := mealModel(800, 40, 100, 1000)
	m.Constraints[0].Coeffs = []float64{1}

	if _, err := NewSimplexSolver(0).Solve(context.Background(), m); !errors.Is(err, ErrNumerical) {
		t.Errorf("Expected ErrNumerical, got %v", err)
	}

	m = mealModel(math.Inf(1), 40, 100, 1000)
	if _, err := NewSimplexSolver(0).Solve(context.Background(), m); !errors.Is(err, ErrNumerical) {
		t.Errorf("Expected ErrNumerical for infinite bound, got %v", err)
	}
}

func TestSimplexCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewSimplexSolver(0).Solve(ctx, mealModel(800, 40, 100, 1000)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Abs(b))
}

func TestSimplexReproducible(t *testing.T) {
	solver := NewSimplexSolver(0)
	want, err := solver.Solve(context.Background(), mealModel(800, 40, 100, 1000))
	if err != nil {
		t.Fatalf("Solve() failed: %v", err)
	}

	check := func(sol *Solution) {
		if !closeTo(sol.Objective, want.Objective) {
			t.Errorf("Objective = %v, want %v", sol.Objective, want.Objective)
		}
		if len(sol.Values) != len(want.Values) {
			t.Errorf("Values = %v, want %v", sol.Values, want.Values)
			return
		}
		for i := range sol.Values {
			if !closeTo(sol.Values[i], want.Values[i]) {
				t.Errorf("Values[%d] = %v, want %v", i, sol.Values[i], want.Values[i])
			}
		}
	}

	for i := 0; i < 8; i++ {
		sol, err := solver.Solve(context.Background(), mealModel(800, 40, 100, 1000))
		if err != nil {
			t.Fatalf("Solve() failed: %v", err)
		}
		check(sol)
	}

	results := make([]*Solution, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sol, err := solver.Solve(context.Background(), mealModel(800, 40, 100, 1000))
			if err != nil {
				t.Errorf("Solve() failed: %v", err)
				return
			}
			results[i] = sol
		}(i)
	}
	wg.Wait()

	for _, sol := range results {
		if sol != nil {
			check(sol)
		}
	}
}

func TestModelEvaluate(t *testing.T) {
	m := mealModel(800, 40, 100, 1000)
	if got := m.Evaluate([]float64{2, 3}); got != 500 {
		t.Errorf("Evaluate() = %v, want 500", got)
	}
}
