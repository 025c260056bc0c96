package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/lp"
)

func TestBuildModel(t *testing.T) {
	m := BuildModel([]catalog.FoodRecord{chicken, rice}, scenarioTargets)

	want := &lp.Model{
		Sense:     lp.Maximize,
		Objective: []float64{100, 100},
		Constraints: []lp.Constraint{
			{Name: RowCalories, Coeffs: []float64{165, 130}, Op: lp.LessEq, RHS: 800},
			{Name: RowProtein, Coeffs: []float64{31, 2.7}, Op: lp.GreaterEq, RHS: 40},
			{Name: RowCarbs, Coeffs: []float64{0, 28}, Op: lp.LessEq, RHS: 100},
			{Name: RowSodium, Coeffs: []float64{74, 1}, Op: lp.LessEq, RHS: 1000},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("BuildModel() mismatch (-want +got):\n%s", diff)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Built model is invalid: %v", err)
	}
}

func TestBuildModelEmptyCatalog(t *testing.T) {
	m := BuildModel(nil, scenarioTargets)
	if m.NumVars() != 0 {
		t.Errorf("Expected no variables, got %d", m.NumVars())
	}
	if len(m.Constraints) != 4 {
		t.Errorf("Expected 4 constraints, got %d", len(m.Constraints))
	}
}
