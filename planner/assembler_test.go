package planner

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/lp"
)

var (
	chicken = catalog.FoodRecord{Index: 0, Name: "Chicken", Allergens: []string{"None"}, ServingSize: 100, Calories: 165, Protein: 31, Carbs: 0, Sodium: 74}
	rice    = catalog.FoodRecord{Index: 1, Name: "Rice", Allergens: []string{"None"}, ServingSize: 100, Calories: 130, Protein: 2.7, Carbs: 28, Sodium: 1}
)

var scenarioTargets = NutrientTargets{Calories: 800, Protein: 40, Carbs: 100, Sodium: 1000}

func solution(values ...float64) *lp.Solution {
	var obj float64
	for _, v := range values {
		obj += 100 * v
	}
	return &lp.Solution{Values: values, Objective: obj}
}

func TestAssembleRepairsRoundedMeal(t *testing.T) {
	riceServings := 100.0 / 28
	chickenServings := (800 - 130*riceServings) / 165

	meal, err := Assemble(solution(chickenServings, riceServings), []catalog.FoodRecord{chicken, rice}, scenarioTargets)
	if err != nil {
		t.Fatalf("Assemble() failed: %v", err)
	}

	counts := map[string]int{}
	for _, item := range meal.Items {
		counts[item.Name] = item.Count
	}
	if diff := cmp.Diff(map[string]int{"Chicken": 2, "Rice": 3}, counts); diff != "" {
		t.Errorf("Counts mismatch (-want +got):\n%s", diff)
	}

	if !meal.Adjusted {
		t.Error("Rounding rice up breaks the carb limit, meal should be adjusted")
	}
	if meal.TotalCalories != 720 {
		t.Errorf("TotalCalories = %v, want 720", meal.TotalCalories)
	}
	if math.Abs(meal.TotalProtein-70.1) > 1e-9 {
		t.Errorf("TotalProtein = %v, want 70.1", meal.TotalProtein)
	}
	if meal.TotalCarbs != 84 || meal.TotalSodium != 151 {
		t.Errorf("TotalCarbs, TotalSodium = %v, %v, want 84, 151", meal.TotalCarbs, meal.TotalSodium)
	}
	if meal.TotalGrams != 500 {
		t.Errorf("TotalGrams = %d, want 500", meal.TotalGrams)
	}
	if meal.ObjectiveGrams != 561 {
		t.Errorf("ObjectiveGrams = %d, want 561", meal.ObjectiveGrams)
	}
}

func TestAssembleThreshold(t *testing.T) {
	meal, err := Assemble(solution(0.49, 1.2), []catalog.FoodRecord{chicken, rice}, NutrientTargets{Calories: 1000, Protein: 0, Carbs: 1000, Sodium: 1000})
	if err != nil {
		t.Fatalf("Assemble() failed: %v", err)
	}
	if len(meal.Items) != 1 || meal.Items[0].Name != "Rice" || meal.Items[0].Count != 1 {
		t.Fatalf("Expected one serving of rice, got %+v", meal.Items)
	}
	if meal.Adjusted {
		t.Error("Meal within targets should not be adjusted")
	}
	if meal.Items[0].Index != 1 || meal.Items[0].Solved != 1.2 {
		t.Errorf("Item should keep its catalog index and solved value, got %+v", meal.Items[0])
	}
}

func TestAssembleEmptyMeal(t *testing.T) {
	meal, err := Assemble(solution(0.1, 0), []catalog.FoodRecord{chicken, rice}, NutrientTargets{Calories: 10, Carbs: 10, Sodium: 10})
	if err != nil {
		t.Fatalf("Assemble() failed: %v", err)
	}
	if meal.Items == nil || len(meal.Items) != 0 {
		t.Errorf("Expected empty non-nil items, got %#v", meal.Items)
	}
	if meal.TotalGrams != 0 || meal.TotalCalories != 0 {
		t.Errorf("Empty meal should have zero totals, got %+v", meal)
	}
}

func TestAssembleAddsProteinAfterRoundingDown(t *testing.T) {
	egg := catalog.FoodRecord{Name: "Egg", Allergens: []string{"Eggs"}, ServingSize: 50, Calories: 100, Protein: 10}
	targets := NutrientTargets{Calories: 1000, Protein: 15, Carbs: 1000, Sodium: 1000}

	meal, err := Assemble(solution(1.4), []catalog.FoodRecord{egg}, targets)
	if err != nil {
		t.Fatalf("Assemble() failed: %v", err)
	}
	if len(meal.Items) != 1 || meal.Items[0].Count != 2 {
		t.Fatalf("Expected 2 eggs, got %+v", meal.Items)
	}
	if !meal.Adjusted || meal.TotalProtein != 20 {
		t.Errorf("Expected adjusted meal with 20g protein, got %+v", meal)
	}
	if diff := cmp.Diff([]catalog.Allergen{catalog.Eggs}, meal.Items[0].Allergens); diff != "" {
		t.Errorf("Allergens mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleNoWholeServingMeal(t *testing.T) {
	egg := catalog.FoodRecord{Name: "Egg", Allergens: []string{"Eggs"}, ServingSize: 50, Calories: 100, Protein: 10}
	targets := NutrientTargets{Calories: 150, Protein: 15, Carbs: 1000, Sodium: 1000}

	_, err := Assemble(solution(1.4), []catalog.FoodRecord{egg}, targets)
	if !errors.Is(err, ErrInfeasible) {
		t.Errorf("Expected ErrInfeasible, got %v", err)
	}
}

func TestAssembleSearchesWhenGreedyRepairFails(t *testing.T) {
	tuna := catalog.FoodRecord{Index: 0, Name: "Tuna", Allergens: []string{"Fish"}, ServingSize: 216, Calories: 53, Protein: 24, Carbs: 3, Sodium: 176}
	pasta := catalog.FoodRecord{Index: 1, Name: "Pasta", Allergens: []string{"Wheat"}, ServingSize: 240, Calories: 159, Protein: 6, Carbs: 30, Sodium: 52}
	targets := NutrientTargets{Calories: 1195, Protein: 49, Carbs: 147, Sodium: 425}

	// Rounding gives 1 tuna and 5 pasta, which breaks the sodium limit.
	// Dropping one pasta leaves protein 1g short and no single serving fits.
	meal, err := Assemble(solution(0.996, 4.80), []catalog.FoodRecord{tuna, pasta}, targets)
	if err != nil {
		t.Fatalf("Assemble() failed: %v", err)
	}

	counts := map[string]int{}
	for _, item := range meal.Items {
		counts[item.Name] = item.Count
	}
	if diff := cmp.Diff(map[string]int{"Tuna": 2, "Pasta": 1}, counts); diff != "" {
		t.Errorf("Counts mismatch (-want +got):\n%s", diff)
	}
	if !meal.Adjusted {
		t.Error("Meal should be marked adjusted")
	}
	if meal.TotalGrams != 672 || meal.TotalProtein != 54 || meal.TotalSodium != 404 {
		t.Errorf("Totals = %d g, %v protein, %v sodium, want 672, 54, 404", meal.TotalGrams, meal.TotalProtein, meal.TotalSodium)
	}
}

func TestAssembleRejectsUncountableServings(t *testing.T) {
	_, err := Assemble(solution(6.06e22), []catalog.FoodRecord{chicken}, NutrientTargets{Calories: 1e25, Carbs: 1e25, Sodium: 1e25})
	if !errors.Is(err, ErrSolverFailure) {
		t.Errorf("Expected ErrSolverFailure, got %v", err)
	}
}

func TestAssembleInvalidAllergen(t *testing.T) {
	cheese := catalog.FoodRecord{Name: "Cheese", Allergens: []string{"Milk", "Bogus"}, ServingSize: 30, Calories: 110, Protein: 7}

	_, err := Assemble(solution(1), []catalog.FoodRecord{cheese}, NutrientTargets{Calories: 1000, Carbs: 10, Sodium: 10})
	if !errors.Is(err, ErrInvalidAllergenTag) {
		t.Errorf("Expected ErrInvalidAllergenTag, got %v", err)
	}
}

func TestAssembleMismatchedSolution(t *testing.T) {
	_, err := Assemble(solution(1), []catalog.FoodRecord{chicken, rice}, scenarioTargets)
	if !errors.Is(err, ErrSolverFailure) {
		t.Errorf("Expected ErrSolverFailure, got %v", err)
	}
	if _, err := Assemble(nil, nil, scenarioTargets); !errors.Is(err, ErrSolverFailure) {
		t.Errorf("Expected ErrSolverFailure for nil solution, got %v", err)
	}
}

func TestAssembleMassConsistency(t *testing.T) {
	oats := catalog.FoodRecord{Name: "Oats", Allergens: []string{"Vegan"}, ServingSize: 234, Calories: 158, Protein: 6, Carbs: 27, Sodium: 115}
	meal, err := Assemble(solution(2.2, 0.7, 1.6), []catalog.FoodRecord{chicken, rice, oats}, NutrientTargets{Calories: 2000, Protein: 10, Carbs: 200, Sodium: 2000})
	if err != nil {
		t.Fatalf("Assemble() failed: %v", err)
	}

	grams := 0
	for _, item := range meal.Items {
		if item.Count < 1 {
			t.Errorf("Item %s has count %d", item.Name, item.Count)
		}
		grams += item.ServingSize * item.Count
	}
	if meal.TotalGrams != grams {
		t.Errorf("TotalGrams = %d, sum of items = %d", meal.TotalGrams, grams)
	}
}
