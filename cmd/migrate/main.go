package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/internal/logger"
)

func main() {
	var databaseURL string
	var migrationsPath string
	var command string
	var csvPath string

	flag.StringVar(&databaseURL, "database", "", "Database URL (required)")
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force, import")
	flag.StringVar(&csvPath, "csv", "data/foods.csv", "Catalog CSV loaded by the import command")
	flag.Parse()

	// Check for database URL from flag or environment
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	if databaseURL == "" {
		logger.Fatal("Database URL is required. Use -database flag or DATABASE_URL environment variable")
	}

	if command == "import" {
		if err := importCatalog(context.Background(), databaseURL, csvPath); err != nil {
			logger.Fatal("Failed to import catalog", "error", err)
		}
		return
	}

	logger.Info("Connecting to database", "migrations", migrationsPath)

	// Create migration instance
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		logger.Fatal("Failed to create migration instance", "error", err)
	}
	defer m.Close()

	// Execute command
	switch command {
	case "up":
		logger.Info("Running migrations up")
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Failed to run migrations", "error", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migrations to run (database is up to date)")
		} else {
			logger.Info("Migrations completed")
		}

	case "down":
		logger.Info("Rolling back migrations")
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Failed to rollback migrations", "error", err)
		}
		logger.Info("Rollback completed")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			logger.Fatal("Failed to get version", "error", err)
		}
		logger.Info("Current version", "version", version, "dirty", dirty)

	case "force":
		if len(flag.Args()) < 1 {
			logger.Fatal("Force command requires a version number: -command force <version>")
		}
		var version int
		_, err := fmt.Sscanf(flag.Arg(0), "%d", &version)
		if err != nil {
			logger.Fatal("Invalid version number", "error", err)
		}
		err = m.Force(version)
		if err != nil {
			logger.Fatal("Failed to force version", "error", err)
		}
		logger.Info("Forced version", "version", version)

	default:
		logger.Fatal("Unknown command (use: up, down, version, force, import)", "command", command)
	}
}

// importCatalog replaces the foods table with the rows of a catalog CSV.
// Allergen tags are checked before anything is written.
func importCatalog(ctx context.Context, databaseURL, csvPath string) error {
	records, err := catalog.NewCSVSource(csvPath).Load(ctx)
	if err != nil {
		return err
	}
	if err := catalog.ValidateAllergens(records); err != nil {
		return err
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := catalog.NewPostgresSource(db).SaveAll(ctx, records); err != nil {
		return err
	}
	logger.Info("Catalog imported", "csv", csvPath, "foods", len(records))
	return nil
}
