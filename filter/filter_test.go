package filter

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/liamcoop/mealplan/catalog"
)

var (
	chicken = catalog.FoodRecord{Name: "Chicken Breast", Allergens: []string{"None"}, ServingSize: 100, Calories: 165, Protein: 31, Carbs: 0, Sodium: 74}
	yogurt  = catalog.FoodRecord{Name: "Greek Yogurt", Allergens: []string{"milk", "Vegetarian"}, ServingSize: 170, Calories: 100, Protein: 17, Carbs: 6, Sodium: 61}
)

func newCompiler(t *testing.T) *Compiler {
	t.Helper()
	c, err := NewCompiler()
	if err != nil {
		t.Fatalf("NewCompiler() failed: %v", err)
	}
	return c
}

func TestFilterMatch(t *testing.T) {
	c := newCompiler(t)

	testCases := []struct {
		name       string
		expression string
		food       catalog.FoodRecord
		want       bool
	}{
		{"low sodium selects", `food.sodium < 100.0`, chicken, true},
		{"high protein rejects", `food.protein > 20.0`, yogurt, false},
		{"allergen by canonical name", `"Milk" in food.allergens`, yogurt, true},
		{"none has no allergens", `size(food.allergens) == 0`, chicken, true},
		{"serving size is an int", `food.serving_size >= 150`, yogurt, true},
		{"name match", `food.name.startsWith("Chicken")`, chicken, true},
		{"combined", `food.calories <= 120.0 && !("Milk" in food.allergens)`, yogurt, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := c.Compile(tc.expression)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", tc.expression, err)
			}
			got, err := f.Match(tc.food)
			if err != nil {
				t.Fatalf("Match() failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Match(%s) = %v, want %v", tc.food.Name, got, tc.want)
			}
		})
	}
}

func TestCompileRejectsBadExpressions(t *testing.T) {
	c := newCompiler(t)

	for _, expr := range []string{
		`food.calories >`,
		`1 + 2`,
		`"text"`,
		`unknown.field == 1`,
	} {
		if _, err := c.Compile(expr); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("Compile(%q) expected ErrInvalidFilter, got %v", expr, err)
		}
	}
}

func TestMatchRejectsNonBooleanResult(t *testing.T) {
	c := newCompiler(t)

	f, err := c.Compile(`food.calories`)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if _, err := f.Match(chicken); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter, got %v", err)
	}
}

func TestMatchMissingField(t *testing.T) {
	c := newCompiler(t)

	f, err := c.Compile(`food.fiber > 1.0`)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if _, err := f.Match(chicken); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter for a missing field, got %v", err)
	}
}

func TestMatchUnknownAllergen(t *testing.T) {
	c := newCompiler(t)

	f, err := c.Compile(`true`)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	bad := chicken
	bad.Allergens = []string{"Bogus"}
	if _, err := f.Match(bad); !errors.Is(err, catalog.ErrInvalidAllergenTag) {
		t.Errorf("Expected ErrInvalidAllergenTag, got %v", err)
	}
}

func TestCompileCaching(t *testing.T) {
	c := newCompiler(t)

	first, err := c.Compile(`food.sodium < 100.0`)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	second, err := c.Compile(`food.sodium < 100.0`)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if first != second {
		t.Error("Compiling the same expression twice should reuse the program")
	}
}

func TestCompilerConcurrentUse(t *testing.T) {
	c := newCompiler(t)
	exprs := []string{`food.sodium < 100.0`, `food.protein > 10.0`, `"Milk" in food.allergens`}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := c.Compile(exprs[i%len(exprs)])
			if err != nil {
				t.Errorf("Compile() failed: %v", err)
				return
			}
			if _, err := f.Match(yogurt); err != nil {
				t.Errorf("Match() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestCompileRejectsLongExpressions(t *testing.T) {
	c := newCompiler(t)

	expr := "true" + strings.Repeat(" && true", MaxExpressionLength/8)
	if _, err := c.Compile(expr); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter for a %d character expression, got %v", len(expr), err)
	}
}
