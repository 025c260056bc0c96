// Package config loads service settings from defaults, an optional .env file
// and the environment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Catalog source kinds.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds the settings of the meal plan server.
type Config struct {
	Port          string
	LogLevel      string
	AuthKey       string
	DatabaseURL   string
	CatalogSource string
	CatalogPath   string
	CatalogTTL    time.Duration
	Workers       int
	Tolerance     float64
}

// Load reads configuration. Values in envFile (when it exists) are exported
// to the environment first; variables already set win over the file.
// Every key can be set as MEALPLAN_<KEY> with dots replaced by underscores,
// and PORT, DATABASE_URL, AUTH_KEY and LOG_LEVEL are also read unprefixed.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("MEALPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("auth_key", "")
	v.SetDefault("database_url", "")
	v.SetDefault("catalog.source", SourceCSV)
	v.SetDefault("catalog.path", "./data/foods.csv")
	v.SetDefault("catalog.ttl", "0s")
	v.SetDefault("solver.workers", runtime.GOMAXPROCS(0))
	v.SetDefault("solver.tolerance", 1e-10)

	for key, env := range map[string]string{
		"port":         "PORT",
		"database_url": "DATABASE_URL",
		"auth_key":     "AUTH_KEY",
		"log_level":    "LOG_LEVEL",
	} {
		if err := v.BindEnv(key, "MEALPLAN_"+env, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Port:          v.GetString("port"),
		LogLevel:      v.GetString("log_level"),
		AuthKey:       v.GetString("auth_key"),
		DatabaseURL:   v.GetString("database_url"),
		CatalogSource: strings.ToLower(v.GetString("catalog.source")),
		CatalogPath:   v.GetString("catalog.path"),
		CatalogTTL:    v.GetDuration("catalog.ttl"),
		Workers:       v.GetInt("solver.workers"),
		Tolerance:     v.GetFloat64("solver.tolerance"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for invalid configuration values.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	switch c.CatalogSource {
	case SourceCSV:
		if c.CatalogPath == "" {
			return fmt.Errorf("catalog.path is required for the csv source")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres source")
		}
	default:
		return fmt.Errorf("catalog.source must be %q or %q, got %q", SourceCSV, SourcePostgres, c.CatalogSource)
	}
	if c.CatalogTTL < 0 {
		return fmt.Errorf("catalog.ttl must be >= 0, got %s", c.CatalogTTL)
	}
	if c.Workers < 1 {
		return fmt.Errorf("solver.workers must be >= 1, got %d", c.Workers)
	}
	if c.Tolerance <= 0 || c.Tolerance >= 1e-3 {
		return fmt.Errorf("solver.tolerance must be in (0, 1e-3), got %g", c.Tolerance)
	}
	return nil
}
