package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresSource reads a catalog from the foods table
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a PostgreSQL-backed catalog source
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Identity() string {
	return "postgres:foods"
}

// Version combines the row count with the latest update time
func (s *PostgresSource) Version(ctx context.Context) (string, error) {
	var count int64
	var updated sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(updated_at)
		FROM foods
	`).Scan(&count, &updated)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read catalog version: %v", ErrCatalogUnavailable, err)
	}

	var stamp int64
	if updated.Valid {
		stamp = updated.Time.UTC().UnixNano()
	}
	return fmt.Sprintf("%d-%d", count, stamp), nil
}

// Load returns all foods ordered by catalog position
func (s *PostgresSource) Load(ctx context.Context) ([]FoodRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, allergens, serving_size, calories, protein, carbs, sodium
		FROM foods
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query foods: %v", ErrCatalogUnavailable, err)
	}
	defer rows.Close()

	records := []FoodRecord{}
	bad := &MalformedError{}
	row := 0
	for rows.Next() {
		row++
		var r FoodRecord
		var allergens string
		if err := rows.Scan(&r.Name, &allergens, &r.ServingSize,
			&r.Calories, &r.Protein, &r.Carbs, &r.Sodium); err != nil {
			bad.add(row, "scan: %v", err)
			continue
		}
		if reasons := validateRecord(r); len(reasons) > 0 {
			bad.add(row, "%s", strings.Join(reasons, ", "))
			continue
		}
		r.Allergens = SplitTags(allergens)
		r.Index = len(records)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating foods: %v", ErrCatalogUnavailable, err)
	}
	if len(bad.Rows) > 0 {
		return nil, bad
	}
	return records, nil
}

// SaveAll replaces the catalog with records in a single transaction.
// Used by the import path of cmd/migrate.
func (s *PostgresSource) SaveAll(ctx context.Context, records []FoodRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM foods`); err != nil {
		return fmt.Errorf("failed to clear foods: %w", err)
	}

	now := time.Now()
	for i, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO foods (position, name, allergens, serving_size, calories, protein, carbs, sodium, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, i, r.Name, strings.Join(r.Allergens, ","), r.ServingSize,
			r.Calories, r.Protein, r.Carbs, r.Sodium, now)
		if err != nil {
			return fmt.Errorf("failed to insert food %q: %w", r.Name, err)
		}
	}

	return tx.Commit()
}

func validateRecord(r FoodRecord) []string {
	var reasons []string
	if strings.TrimSpace(r.Name) == "" {
		reasons = append(reasons, "item is required")
	}
	if r.ServingSize < 0 {
		reasons = append(reasons, fmt.Sprintf("serving_size %d is negative", r.ServingSize))
	}
	for _, n := range []struct {
		name string
		v    float64
	}{
		{ColCalories, r.Calories},
		{ColProtein, r.Protein},
		{ColCarbs, r.Carbs},
		{ColSodium, r.Sodium},
	} {
		if reason := checkNutrient(n.name, n.v); reason != "" {
			reasons = append(reasons, reason)
		}
	}
	return reasons
}
