package planner

import (
	"context"
	"errors"

	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/filter"
)

// Error kinds returned by Engine.Plan. Callers test them with errors.Is.
var (
	ErrCatalogUnavailable    = catalog.ErrCatalogUnavailable
	ErrMalformedRecord       = catalog.ErrMalformedRecord
	ErrInvalidAllergenTag    = catalog.ErrInvalidAllergenTag
	ErrInvalidFilter         = filter.ErrInvalidFilter
	ErrInvalidNutrientTarget = errors.New("invalid nutrient target")

	// ErrInfeasible covers both infeasible and unbounded programs: no meal
	// satisfies the constraints with this catalog.
	ErrInfeasible = errors.New("no meal satisfies these constraints with this catalog")

	// ErrSolverFailure is a numerical failure inside the solver.
	ErrSolverFailure = errors.New("meal solver failed")
)

// Stable names for each error kind, used by transport layers.
const (
	KindCatalogUnavailable    = "CatalogUnavailable"
	KindMalformedRecord       = "MalformedCatalogRecord"
	KindInvalidNutrientTarget = "InvalidNutrientTarget"
	KindInfeasible            = "Infeasible"
	KindInvalidAllergenTag    = "InvalidAllergenTag"
	KindInvalidFilter         = "InvalidFilter"
	KindSolverFailure         = "SolverFailure"
	KindCanceled              = "Canceled"
	KindInternal              = "Internal"
)

// Kind names the error kind of err, or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidNutrientTarget):
		return KindInvalidNutrientTarget
	case errors.Is(err, ErrInvalidFilter):
		return KindInvalidFilter
	case errors.Is(err, ErrInvalidAllergenTag):
		return KindInvalidAllergenTag
	case errors.Is(err, ErrMalformedRecord):
		return KindMalformedRecord
	case errors.Is(err, ErrCatalogUnavailable):
		return KindCatalogUnavailable
	case errors.Is(err, ErrInfeasible):
		return KindInfeasible
	case errors.Is(err, ErrSolverFailure):
		return KindSolverFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
