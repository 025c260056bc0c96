// Package filter compiles CEL predicates that select which catalog foods a
// meal plan may use. Expressions see a single variable, food, with the fields
// name, allergens, serving_size, calories, protein, carbs and sodium:
//
//	food.sodium < 200.0 && !("Milk" in food.allergens)
package filter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/mealplan/catalog"
)

// ErrInvalidFilter is returned for expressions that do not compile to a boolean.
var ErrInvalidFilter = errors.New("invalid food filter")

// costLimit stops runaway expressions.
const costLimit = 100000

// maxCachedPrograms bounds the compiled program cache.
const maxCachedPrograms = 256

// MaxExpressionLength is the longest filter accepted.
const MaxExpressionLength = 1000

// Filter is a compiled food predicate
type Filter struct {
	Expression string
	program    cel.Program
}

// Compiler compiles filter expressions and caches the resulting programs.
// Safe for concurrent use.
type Compiler struct {
	env      *cel.Env
	programs map[string]*Filter // expression -> compiled filter
	mu       sync.RWMutex
}

// NewCompiler creates a compiler with the food environment
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("food", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Compiler{
		env:      env,
		programs: make(map[string]*Filter),
	}, nil
}

// Compile returns the filter for expression, compiling it on first use.
func (c *Compiler) Compile(expression string) (*Filter, error) {
	if len(expression) > MaxExpressionLength {
		return nil, fmt.Errorf("%w: expression length %d exceeds maximum of %d characters", ErrInvalidFilter, len(expression), MaxExpressionLength)
	}

	c.mu.RLock()
	f, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return f, nil
	}

	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile error: %v", ErrInvalidFilter, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: expression must be boolean, got %s", ErrInvalidFilter, out)
	}

	prog, err := c.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: program creation error: %v", ErrInvalidFilter, err)
	}

	f = &Filter{Expression: expression, program: prog}

	c.mu.Lock()
	if len(c.programs) >= maxCachedPrograms {
		c.programs = make(map[string]*Filter)
	}
	c.programs[expression] = f
	c.mu.Unlock()

	return f, nil
}

// Match reports whether the filter selects r. Evaluation errors and
// non-boolean results are returned as ErrInvalidFilter.
func (f *Filter) Match(r catalog.FoodRecord) (bool, error) {
	allergens, err := catalog.ParseAllergens(r.Allergens)
	if err != nil {
		return false, err
	}
	names := make([]string, len(allergens))
	for i, a := range allergens {
		names[i] = a.String()
	}

	out, _, err := f.program.Eval(map[string]any{
		"food": map[string]any{
			"name":         r.Name,
			"allergens":    names,
			"serving_size": int64(r.ServingSize),
			"calories":     r.Calories,
			"protein":      r.Protein,
			"carbs":        r.Carbs,
			"sodium":       r.Sodium,
		},
	})
	if err != nil {
		return false, fmt.Errorf("%w: evaluating %q for %q: %v", ErrInvalidFilter, f.Expression, r.Name, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T for %q", ErrInvalidFilter, f.Expression, out.Value(), r.Name)
	}
	return matched, nil
}
