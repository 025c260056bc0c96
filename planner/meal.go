package planner

import "github.com/liamcoop/mealplan/catalog"

// FoodItem is a catalog food selected into a meal. Nutrient fields are per serving.
type FoodItem struct {
	Name        string             `json:"name"`
	ServingSize int                `json:"serving_size"`
	Count       int                `json:"count"`
	Calories    float64            `json:"calories"`
	Protein     float64            `json:"protein"`
	Carbs       float64            `json:"carbs"`
	Sodium      float64            `json:"sodium"`
	Allergens   []catalog.Allergen `json:"allergens"`

	// Index is the catalog row of the food.
	Index int `json:"-"`
	// Solved is the continuous servings value the solver chose.
	Solved float64 `json:"-"`
}

// Grams returns the mass of all servings of the item.
func (f FoodItem) Grams() int {
	return f.ServingSize * f.Count
}

// Meal is the result of one plan. Totals are sums over Items of the
// per-serving value times Count, so total_grams is the mass actually served
// after rounding and can differ from ObjectiveGrams.
type Meal struct {
	Items         []FoodItem `json:"items"`
	TotalCalories float64    `json:"total_calories"`
	TotalProtein  float64    `json:"total_protein"`
	TotalCarbs    float64    `json:"total_carbs"`
	TotalSodium   float64    `json:"total_sodium"`
	TotalGrams    int        `json:"total_grams"`

	// ObjectiveGrams is the solver's continuous optimum rounded to the nearest gram.
	ObjectiveGrams int `json:"objective_grams"`
	// Adjusted is set when counts were moved off their rounded values to keep
	// the meal within its targets.
	Adjusted bool `json:"adjusted"`
}
