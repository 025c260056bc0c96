// Package planner turns a food catalog and nutrient targets into a meal: it
// builds the linear program, solves it and assembles whole servings from the
// solution.
package planner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/filter"
	"github.com/liamcoop/mealplan/internal/logger"
	"github.com/liamcoop/mealplan/lp"
)

// Request is one meal plan call.
type Request struct {
	Targets NutrientTargets
	// ExcludeAllergens removes every food tagged with one of these allergens.
	ExcludeAllergens []catalog.Allergen
	// Filter is an optional CEL expression; foods it rejects are not used.
	Filter string
}

// EngineConfig holds optional engine settings.
type EngineConfig struct {
	// Workers bounds concurrent solves. Zero means GOMAXPROCS.
	Workers int
	// Cache, when set, is used to load the catalog.
	Cache *catalog.Cache
	// Metrics, when set, records plan outcomes.
	Metrics *Metrics
}

// Engine plans meals against one catalog source. Safe for concurrent use.
type Engine struct {
	source  catalog.Source
	solver  lp.Solver
	cache   *catalog.Cache
	metrics *Metrics
	filters *filter.Compiler
	slots   *semaphore.Weighted
}

// NewEngine creates an engine that reads foods from source and solves with solver.
func NewEngine(source catalog.Source, solver lp.Solver, config EngineConfig) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("catalog source is required")
	}
	if solver == nil {
		return nil, fmt.Errorf("solver is required")
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	filters, err := filter.NewCompiler()
	if err != nil {
		return nil, err
	}

	return &Engine{
		source:  source,
		solver:  solver,
		cache:   config.Cache,
		metrics: config.Metrics,
		filters: filters,
		slots:   semaphore.NewWeighted(int64(workers)),
	}, nil
}

// Catalog returns the current foods of the engine's source.
func (e *Engine) Catalog(ctx context.Context) ([]catalog.FoodRecord, error) {
	if e.cache != nil {
		return e.cache.Load(ctx, e.source)
	}
	return e.source.Load(ctx)
}

// Invalidate forces the next call to reload the catalog.
func (e *Engine) Invalidate() {
	if e.cache != nil {
		e.cache.Invalidate(e.source.Identity())
	}
}

// Plan computes the heaviest meal of whole servings that stays within the
// calorie, carb and sodium limits of req while reaching its protein target.
func (e *Engine) Plan(ctx context.Context, req Request) (*Meal, error) {
	meal, err := e.plan(ctx, req)
	e.metrics.observePlan(err)

	switch {
	case err == nil:
		logger.PlansServed.Add(1)
		logger.Debug("Meal planned",
			"items", len(meal.Items),
			"total_grams", meal.TotalGrams,
			"objective_grams", meal.ObjectiveGrams,
			"adjusted", meal.Adjusted)
	case errors.Is(err, ErrInfeasible):
		logger.PlansInfeasible.Add(1)
		logger.Debug("No feasible meal", "targets", req.Targets, "error", err)
	}
	return meal, err
}

func (e *Engine) plan(ctx context.Context, req Request) (*Meal, error) {
	if err := req.Targets.Validate(); err != nil {
		return nil, err
	}

	var pred *filter.Filter
	if req.Filter != "" {
		var err error
		if pred, err = e.filters.Compile(req.Filter); err != nil {
			return nil, err
		}
	}

	records, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if err := catalog.ValidateAllergens(records); err != nil {
		return nil, err
	}

	candidates, err := selectFoods(records, req.ExcludeAllergens, pred)
	if err != nil {
		return nil, err
	}
	e.metrics.observeCandidates(len(candidates))

	model := BuildModel(candidates, req.Targets)
	sol, err := e.solve(ctx, model)
	if err != nil {
		return nil, err
	}

	return Assemble(sol, candidates, req.Targets)
}

// selectFoods drops foods carrying an excluded allergen or rejected by pred.
// Records keep their catalog Index.
func selectFoods(records []catalog.FoodRecord, exclude []catalog.Allergen, pred *filter.Filter) ([]catalog.FoodRecord, error) {
	if len(exclude) == 0 && pred == nil {
		return records, nil
	}

	banned := make(map[catalog.Allergen]bool, len(exclude))
	for _, a := range exclude {
		banned[a] = true
	}

	kept := make([]catalog.FoodRecord, 0, len(records))
	for _, r := range records {
		if len(banned) > 0 {
			tags, err := catalog.ParseAllergens(r.Allergens)
			if err != nil {
				return nil, fmt.Errorf("item %q: %w", r.Name, err)
			}
			if hasAny(tags, banned) {
				continue
			}
		}
		if pred != nil {
			ok, err := pred.Match(r)
			if err != nil {
				return nil, fmt.Errorf("item %q: %w", r.Name, err)
			}
			if !ok {
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept, nil
}

func hasAny(tags []catalog.Allergen, banned map[catalog.Allergen]bool) bool {
	for _, t := range tags {
		if banned[t] {
			return true
		}
	}
	return false
}

type solveResult struct {
	sol *lp.Solution
	err error
}

// solve runs the model on a worker slot. When ctx ends first the solve keeps
// running in the background and its result is dropped.
func (e *Engine) solve(ctx context.Context, model *lp.Model) (*lp.Solution, error) {
	if err := e.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	done := make(chan solveResult, 1)
	go func() {
		defer e.slots.Release(1)
		start := time.Now()
		sol, err := e.solver.Solve(ctx, model)
		e.metrics.observeSolve(time.Since(start))
		done <- solveResult{sol: sol, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.sol, solverError(r.err)
	}
}

// solverError maps solver failures onto planner error kinds.
func solverError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lp.ErrInfeasible), errors.Is(err, lp.ErrUnbounded):
		return fmt.Errorf("%w: %w", ErrInfeasible, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrSolverFailure, err)
	}
}
