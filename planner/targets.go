package planner

import (
	"fmt"
	"math"
)

// NutrientTargets bounds one meal. Calories, Carbs and Sodium are inclusive
// upper bounds; Protein is an inclusive lower bound.
type NutrientTargets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Sodium   float64 `json:"sodium"`
}

// MaxNutrientTarget caps every target. Larger values are far outside any
// single meal and push solved servings beyond what can be counted.
const MaxNutrientTarget = 1e6

// Validate rejects negative, non-finite and oversized targets
func (t NutrientTargets) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"calories", t.Calories},
		{"protein", t.Protein},
		{"carbs", t.Carbs},
		{"sodium", t.Sodium},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidNutrientTarget, f.name, f.value)
		}
		if f.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %g", ErrInvalidNutrientTarget, f.name, f.value)
		}
		if f.value > MaxNutrientTarget {
			return fmt.Errorf("%w: %s must be <= %g, got %g", ErrInvalidNutrientTarget, f.name, MaxNutrientTarget, f.value)
		}
	}
	return nil
}
