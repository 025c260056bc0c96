package catalog

import (
	"fmt"
	"strings"
)

// Allergen is a known dietary tag. The set is closed: tokens that do not map to a
// member are rejected with ErrInvalidAllergenTag.
type Allergen int

const (
	Milk Allergen = iota + 1
	Eggs
	Peanuts
	Soybean
	Wheat
	TreeNut
	Shellfish
	Fish
	Sesame
	Vegan
	Vegetarian
	GlutenFree
	LactoseIntolerance
)

var allergenNames = map[Allergen]string{
	Milk:               "Milk",
	Eggs:               "Eggs",
	Peanuts:            "Peanuts",
	Soybean:            "Soybean",
	Wheat:              "Wheat",
	TreeNut:            "TreeNut",
	Shellfish:          "Shellfish",
	Fish:               "Fish",
	Sesame:             "Sesame",
	Vegan:              "Vegan",
	Vegetarian:         "Vegetarian",
	GlutenFree:         "GlutenFree",
	LactoseIntolerance: "LactoseIntolerance",
}

// noneToken marks a row without tags.
const noneToken = "none"

var allergenByKey = func() map[string]Allergen {
	m := make(map[string]Allergen, len(allergenNames))
	for a, name := range allergenNames {
		m[allergenKey(name)] = a
	}
	return m
}()

// AllAllergens returns every member in declaration order.
func AllAllergens() []Allergen {
	out := make([]Allergen, 0, len(allergenNames))
	for a := Milk; a <= LactoseIntolerance; a++ {
		out = append(out, a)
	}
	return out
}

func (a Allergen) String() string {
	if name, ok := allergenNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Allergen(%d)", int(a))
}

// MarshalText renders the canonical name.
func (a Allergen) MarshalText() ([]byte, error) {
	name, ok := allergenNames[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAllergenTag, int(a))
	}
	return []byte(name), nil
}

// UnmarshalText accepts any spelling ParseAllergen accepts.
func (a *Allergen) UnmarshalText(text []byte) error {
	parsed, err := ParseAllergen(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// allergenKey folds case and drops spaces, dashes and underscores.
func allergenKey(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(token)) {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseAllergen maps a single token to its Allergen.
func ParseAllergen(token string) (Allergen, error) {
	if a, ok := allergenByKey[allergenKey(token)]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAllergenTag, strings.TrimSpace(token))
}

// ParseAllergens resolves a record's tags. "None" tokens are skipped, so a
// row tagged only "None" has no allergens. The first unknown token fails the
// whole list.
func ParseAllergens(tags []string) ([]Allergen, error) {
	out := make([]Allergen, 0, len(tags))
	for _, tag := range tags {
		if allergenKey(tag) == noneToken {
			continue
		}
		a, err := ParseAllergen(tag)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// SplitTags splits a comma-delimited allergen field, trimming whitespace and
// dropping empty tokens.
func SplitTags(field string) []string {
	tags := []string{}
	for _, tok := range strings.Split(field, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		tags = append(tags, tok)
	}
	return tags
}

// ValidateAllergens checks every record's tags so that bad allergen data fails
// a call even when the offending row would not be selected.
func ValidateAllergens(records []FoodRecord) error {
	for _, r := range records {
		if _, err := ParseAllergens(r.Allergens); err != nil {
			return fmt.Errorf("item %q (row %d): %w", r.Name, r.Index, err)
		}
	}
	return nil
}
