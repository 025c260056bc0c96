package planner

import (
	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/lp"
)

// Constraint row names of a meal model.
const (
	RowCalories = "calories"
	RowProtein  = "protein"
	RowCarbs    = "carbs"
	RowSodium   = "sodium"
)

// BuildModel turns a catalog and targets into a linear program with one
// servings variable per record (in record order) that maximizes total grams.
func BuildModel(records []catalog.FoodRecord, t NutrientTargets) *lp.Model {
	n := len(records)
	mass := make([]float64, n)
	calories := make([]float64, n)
	protein := make([]float64, n)
	carbs := make([]float64, n)
	sodium := make([]float64, n)

	for i, r := range records {
		mass[i] = float64(r.ServingSize)
		calories[i] = r.Calories
		protein[i] = r.Protein
		carbs[i] = r.Carbs
		sodium[i] = r.Sodium
	}

	return &lp.Model{
		Sense:     lp.Maximize,
		Objective: mass,
		Constraints: []lp.Constraint{
			{Name: RowCalories, Coeffs: calories, Op: lp.LessEq, RHS: t.Calories},
			{Name: RowProtein, Coeffs: protein, Op: lp.GreaterEq, RHS: t.Protein},
			{Name: RowCarbs, Coeffs: carbs, Op: lp.LessEq, RHS: t.Carbs},
			{Name: RowSodium, Coeffs: sodium, Op: lp.LessEq, RHS: t.Sodium},
		},
	}
}
