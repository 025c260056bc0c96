package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column names of the catalog schema.
const (
	ColItem        = "item"
	ColAllergens   = "allergens"
	ColServingSize = "serving_size"
	ColCalories    = "calories"
	ColProtein     = "protein"
	ColCarbs       = "carbs"
	ColSodium      = "sodium"
)

var requiredColumns = []string{ColItem, ColAllergens, ColServingSize, ColCalories, ColProtein, ColCarbs, ColSodium}

// ParseCSV reads a catalog with a header row. Columns are located by name, so
// their order does not matter and extra columns are ignored. Every malformed
// row is reported in a single *MalformedError; no row is ever skipped.
func ParseCSV(r io.Reader) ([]FoodRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedRecord, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: header missing columns %s", ErrMalformedRecord, strings.Join(missing, ", "))
	}

	var records []FoodRecord
	bad := &MalformedError{}
	row := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				bad.add(row, "%v", perr.Err)
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}

		rec, reasons := parseRow(fields, cols)
		if len(reasons) > 0 {
			bad.add(row, "%s", strings.Join(reasons, ", "))
			continue
		}
		rec.Index = len(records)
		records = append(records, rec)
	}

	if len(bad.Rows) > 0 {
		return nil, bad
	}
	if records == nil {
		records = []FoodRecord{}
	}
	return records, nil
}

func parseRow(fields []string, cols map[string]int) (FoodRecord, []string) {
	var reasons []string
	get := func(name string) (string, bool) {
		i := cols[name]
		if i >= len(fields) {
			return "", false
		}
		return strings.TrimSpace(fields[i]), true
	}

	var rec FoodRecord

	name, ok := get(ColItem)
	if !ok || name == "" {
		reasons = append(reasons, "item is required")
	}
	rec.Name = name

	tags, ok := get(ColAllergens)
	if !ok {
		reasons = append(reasons, "allergens column missing")
	}
	rec.Allergens = SplitTags(tags)

	if raw, ok := get(ColServingSize); !ok || raw == "" {
		reasons = append(reasons, "serving_size is required")
	} else if n, err := strconv.Atoi(raw); err != nil {
		reasons = append(reasons, fmt.Sprintf("serving_size %q is not an integer", raw))
	} else if n < 0 {
		reasons = append(reasons, fmt.Sprintf("serving_size %d is negative", n))
	} else {
		rec.ServingSize = n
	}

	nutrients := []struct {
		col string
		dst *float64
	}{
		{ColCalories, &rec.Calories},
		{ColProtein, &rec.Protein},
		{ColCarbs, &rec.Carbs},
		{ColSodium, &rec.Sodium},
	}
	for _, n := range nutrients {
		raw, ok := get(n.col)
		if !ok || raw == "" {
			reasons = append(reasons, n.col+" is required")
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s %q is not a number", n.col, raw))
			continue
		}
		if reason := checkNutrient(n.col, v); reason != "" {
			reasons = append(reasons, reason)
			continue
		}
		*n.dst = v
	}

	return rec, reasons
}

func checkNutrient(name string, v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fmt.Sprintf("%s must be finite", name)
	case v < 0:
		return fmt.Sprintf("%s %g is negative", name, v)
	}
	return ""
}

// CSVSource loads a catalog from a CSV file on disk.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a source for the file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Identity() string {
	return "csv:" + s.Path
}

// Version changes whenever the file's size or modification time does.
func (s *CSVSource) Version(ctx context.Context) (string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()), nil
}

func (s *CSVSource) Load(ctx context.Context) ([]FoodRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer f.Close()

	records, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.Path, err)
	}
	return records, nil
}
