package planner

import (
	"fmt"
	"math"

	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/lp"
)

// ServingThreshold is the smallest solved value kept in a meal. Anything below
// is solver noise and is dropped rather than rounded up.
const ServingThreshold = 0.5

// MaxServings bounds a solved value before it is rounded to a count.
const MaxServings = math.MaxInt32

// feasibilityTolerance is relative to the target.
const feasibilityTolerance = 1e-6

type pick struct {
	record    catalog.FoodRecord
	solved    float64
	count     int
	allergens []catalog.Allergen
}

type totals struct {
	calories, protein, carbs, sodium float64
}

func (t totals) plus(r catalog.FoodRecord, n int) totals {
	k := float64(n)
	return totals{
		calories: t.calories + r.Calories*k,
		protein:  t.protein + r.Protein*k,
		carbs:    t.carbs + r.Carbs*k,
		sodium:   t.sodium + r.Sodium*k,
	}
}

func slack(target float64) float64 {
	return feasibilityTolerance * math.Max(1, math.Abs(target))
}

// upperViolations lists the upper-bounded rows that t exceeds.
func upperViolations(t totals, tg NutrientTargets) []string {
	var rows []string
	if t.calories > tg.Calories+slack(tg.Calories) {
		rows = append(rows, RowCalories)
	}
	if t.carbs > tg.Carbs+slack(tg.Carbs) {
		rows = append(rows, RowCarbs)
	}
	if t.sodium > tg.Sodium+slack(tg.Sodium) {
		rows = append(rows, RowSodium)
	}
	return rows
}

func proteinShort(t totals, tg NutrientTargets) bool {
	return t.protein < tg.Protein-slack(tg.Protein)
}

func contributes(r catalog.FoodRecord, rows []string) bool {
	for _, row := range rows {
		switch row {
		case RowCalories:
			if r.Calories > 0 {
				return true
			}
		case RowCarbs:
			if r.Carbs > 0 {
				return true
			}
		case RowSodium:
			if r.Sodium > 0 {
				return true
			}
		}
	}
	return false
}

// Assemble turns a solution over records into a Meal. Values below
// ServingThreshold are dropped, the rest are rounded to whole servings, and the
// rounded counts are then adjusted until the meal meets every target again.
func Assemble(sol *lp.Solution, records []catalog.FoodRecord, targets NutrientTargets) (*Meal, error) {
	if sol == nil || len(sol.Values) != len(records) {
		return nil, fmt.Errorf("%w: solution does not match catalog", ErrSolverFailure)
	}

	var picks []pick
	for i, v := range sol.Values {
		if math.IsNaN(v) || v < ServingThreshold {
			continue
		}
		if v > MaxServings {
			return nil, fmt.Errorf("%w: %g servings of %q", ErrSolverFailure, v, records[i].Name)
		}
		rec := records[i]
		allergens, err := catalog.ParseAllergens(rec.Allergens)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", rec.Name, err)
		}
		picks = append(picks, pick{
			record:    rec,
			solved:    v,
			count:     int(math.Round(v)),
			allergens: allergens,
		})
	}

	adjusted, err := repair(picks, targets)
	if err != nil {
		return nil, err
	}

	meal := &Meal{
		Items:          []FoodItem{},
		ObjectiveGrams: int(math.Round(sol.Objective)),
		Adjusted:       adjusted,
	}
	for _, p := range picks {
		if p.count < 1 {
			continue
		}
		r := p.record
		item := FoodItem{
			Name:        r.Name,
			ServingSize: r.ServingSize,
			Count:       p.count,
			Calories:    r.Calories,
			Protein:     r.Protein,
			Carbs:       r.Carbs,
			Sodium:      r.Sodium,
			Allergens:   p.allergens,
			Index:       r.Index,
			Solved:      p.solved,
		}
		k := float64(p.count)
		meal.TotalCalories += r.Calories * k
		meal.TotalProtein += r.Protein * k
		meal.TotalCarbs += r.Carbs * k
		meal.TotalSodium += r.Sodium * k
		meal.TotalGrams += item.Grams()
		meal.Items = append(meal.Items, item)
	}

	return meal, nil
}

func sum(picks []pick) totals {
	var t totals
	for _, p := range picks {
		t = t.plus(p.record, p.count)
	}
	return t
}

// repair moves rounded counts back inside the targets. The greedy pass runs
// first; when it cannot reach a valid meal, the kept items are searched
// exhaustively within a small window around their solved values.
func repair(picks []pick, tg NutrientTargets) (bool, error) {
	adjusted, err := greedyRepair(picks, tg)
	if err == nil {
		return adjusted, nil
	}
	counts, ok := searchCounts(picks, tg)
	if !ok {
		return true, err
	}
	for i := range picks {
		picks[i].count = counts[i]
	}
	return true, nil
}

// greedyRepair fixes upper bounds first by taking servings from the item
// rounded up the most; the protein floor is then restored by adding servings
// of the highest-protein kept item that fits under every upper bound. Only
// items that passed the threshold are ever touched.
func greedyRepair(picks []pick, tg NutrientTargets) (bool, error) {
	adjusted := false

	for {
		violated := upperViolations(sum(picks), tg)
		if len(violated) == 0 {
			break
		}
		k := -1
		best := math.Inf(-1)
		for i, p := range picks {
			if p.count == 0 || !contributes(p.record, violated) {
				continue
			}
			if excess := float64(p.count) - p.solved; excess > best {
				best = excess
				k = i
			}
		}
		if k < 0 {
			return adjusted, fmt.Errorf("%w: rounded meal exceeds %v", ErrInfeasible, violated)
		}
		picks[k].count--
		adjusted = true
	}

	for {
		current := sum(picks)
		if !proteinShort(current, tg) {
			break
		}
		k := -1
		best := 0.0
		for i, p := range picks {
			if p.record.Protein <= best {
				continue
			}
			if len(upperViolations(current.plus(p.record, 1), tg)) > 0 {
				continue
			}
			best = p.record.Protein
			k = i
		}
		if k < 0 {
			return adjusted, fmt.Errorf("%w: no whole-serving meal reaches the protein target", ErrInfeasible)
		}
		picks[k].count++
		adjusted = true
	}

	return adjusted, nil
}

const (
	// searchSlack widens each item's count range past ceil(solved).
	searchSlack = 2
	// maxSearchSpace caps the number of count combinations searchCounts visits.
	maxSearchSpace = 1 << 20
)

// searchCounts returns the heaviest counts, one per pick and each within
// [0, ceil(solved)+searchSlack], that meet every target. Nutrient values are
// non-negative, so a branch is cut once it breaks an upper bound.
func searchCounts(picks []pick, tg NutrientTargets) ([]int, bool) {
	limits := make([]int, len(picks))
	space := 1.0
	for i, p := range picks {
		limits[i] = int(math.Ceil(p.solved)) + searchSlack
		space *= float64(limits[i] + 1)
	}
	if space > maxSearchSpace {
		return nil, false
	}

	current := make([]int, len(picks))
	var best []int
	bestGrams := -1

	var walk func(i int, t totals, grams int)
	walk = func(i int, t totals, grams int) {
		if i == len(picks) {
			if !proteinShort(t, tg) && grams > bestGrams {
				bestGrams = grams
				best = append(best[:0], current...)
			}
			return
		}
		r := picks[i].record
		for n := 0; n <= limits[i]; n++ {
			next := t.plus(r, n)
			if len(upperViolations(next, tg)) > 0 {
				break
			}
			current[i] = n
			walk(i+1, next, grams+r.ServingSize*n)
		}
		current[i] = 0
	}
	walk(0, totals{}, 0)

	return best, best != nil
}
