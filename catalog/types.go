package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCatalogUnavailable is returned when a catalog source cannot be opened or read.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrMalformedRecord is returned when a row fails schema or type validation.
	ErrMalformedRecord = errors.New("malformed catalog record")

	// ErrInvalidAllergenTag is returned when an allergen token is not a known Allergen.
	ErrInvalidAllergenTag = errors.New("invalid allergen tag")
)

// FoodRecord is one row of a nutrient catalog.
// Nutrient values are per serving; ServingSize is in grams.
type FoodRecord struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	Allergens   []string `json:"allergens"`
	ServingSize int      `json:"serving_size"`
	Calories    float64  `json:"calories"`
	Protein     float64  `json:"protein"`
	Carbs       float64  `json:"carbs"`
	Sodium      float64  `json:"sodium"`
}

// RowError describes a single rejected row. Row is 1-based and counts the header.
type RowError struct {
	Row    int
	Reason string
}

// MalformedError collects every rejected row of one load.
type MalformedError struct {
	Rows []RowError
}

func (e *MalformedError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, fmt.Sprintf("row %d: %s", r.Row, r.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrMalformedRecord, strings.Join(parts, "; "))
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedRecord
}

func (e *MalformedError) add(row int, format string, args ...any) {
	e.Rows = append(e.Rows, RowError{Row: row, Reason: fmt.Sprintf(format, args...)})
}

// cloneRecords returns a deep copy so callers can never mutate shared catalog data.
func cloneRecords(records []FoodRecord) []FoodRecord {
	if records == nil {
		return nil
	}
	out := make([]FoodRecord, len(records))
	for i, r := range records {
		out[i] = r
		if r.Allergens != nil {
			out[i].Allergens = append([]string(nil), r.Allergens...)
		}
	}
	return out
}
