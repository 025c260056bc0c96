package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/mealplan/catalog"
	"github.com/liamcoop/mealplan/internal/config"
	"github.com/liamcoop/mealplan/internal/logger"
	"github.com/liamcoop/mealplan/lp"
	"github.com/liamcoop/mealplan/planner"
)

type Server struct {
	db       *sql.DB
	source   catalog.Source
	engine   *planner.Engine
	authKey  string
	registry *prometheus.Registry
	router   *chi.Mux
}

func NewServer(cfg *config.Config) (*Server, error) {
	var (
		db     *sql.DB
		source catalog.Source
	)

	switch cfg.CatalogSource {
	case config.SourcePostgres:
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		source = catalog.NewPostgresSource(db)
	default:
		source = catalog.NewCSVSource(cfg.CatalogPath)
	}

	return NewServerWithSource(source, db, cfg)
}

// NewServerWithSource builds a server around an already opened catalog source.
// db may be nil when the catalog does not live in Postgres.
func NewServerWithSource(source catalog.Source, db *sql.DB, cfg *config.Config) (*Server, error) {
	cache := catalog.NewCache(catalog.CacheConfig{TTL: cfg.CatalogTTL})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, err := planner.NewEngine(source, lp.NewSimplexSolver(cfg.Tolerance), planner.EngineConfig{
		Workers: cfg.Workers,
		Cache:   cache,
		Metrics: planner.NewMetrics(registry, cache),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	// A bad catalog is reported per request so it can be fixed and reloaded
	// without a restart.
	logger.Info("Loading catalog", "source", source.Identity())
	if records, err := engine.Catalog(context.Background()); err != nil {
		logger.Warn("Catalog not loaded", "source", source.Identity(), "error", err)
	} else {
		logger.Info("Catalog loaded", "source", source.Identity(), "foods", len(records))
	}

	s := &Server{
		db:       db,
		source:   source,
		engine:   engine,
		authKey:  cfg.AuthKey,
		registry: registry,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(countStatus)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/api/v1/mealplan", s.handlePlan)

		r.Route("/api/v1/catalog", func(r chi.Router) {
			r.Get("/", s.handleListCatalog)
			r.Post("/reload", s.handleReloadCatalog)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requireAuth checks the Authorization header when an auth key is configured.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		switch r.Header.Get("Authorization") {
		case "":
			respondError(w, http.StatusUnauthorized, kindUnauthorized, nil)
		case s.authKey:
			next.ServeHTTP(w, r)
		default:
			respondError(w, http.StatusForbidden, kindForbidden, nil)
		}
	})
}

func countStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.CountHTTPStatus(ww.Status())
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "unhealthy",
				Catalog: s.source.Identity(),
				Error:   err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Catalog: s.source.Identity(),
	})
}

// Meal plan handler
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, kindInvalidRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if req.Calories == nil || req.Protein == nil || req.Carbs == nil || req.Sodium == nil {
		respondError(w, http.StatusBadRequest, planner.KindInvalidNutrientTarget,
			errors.New("calories, protein, carbs and sodium are required"))
		return
	}

	exclude := make([]catalog.Allergen, 0, len(req.ExcludeAllergens))
	for _, tag := range req.ExcludeAllergens {
		a, err := catalog.ParseAllergen(tag)
		if err != nil {
			respondError(w, http.StatusBadRequest, kindInvalidRequest, err)
			return
		}
		exclude = append(exclude, a)
	}

	startTime := time.Now()
	meal, err := s.engine.Plan(r.Context(), planner.Request{
		Targets: planner.NutrientTargets{
			Calories: *req.Calories,
			Protein:  *req.Protein,
			Carbs:    *req.Carbs,
			Sodium:   *req.Sodium,
		},
		ExcludeAllergens: exclude,
		Filter:           req.Filter,
	})
	if err != nil {
		kind := planner.Kind(err)
		respondError(w, statusForKind(kind), kind, err)
		return
	}

	logger.Info("Meal planned",
		"request_id", middleware.GetReqID(r.Context()),
		"items", len(meal.Items),
		"total_grams", meal.TotalGrams,
		"duration", time.Since(startTime).String())

	respondJSON(w, http.StatusOK, PlanResponse{Result: meal})
}

// List catalog handler
func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	records, err := s.engine.Catalog(r.Context())
	if err != nil {
		kind := planner.Kind(err)
		respondError(w, statusForKind(kind), kind, err)
		return
	}

	respondJSON(w, http.StatusOK, CatalogResponse{
		Items: records,
		Count: len(records),
	})
}

// Reload catalog handler
func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	s.engine.Invalidate()

	records, err := s.engine.Catalog(r.Context())
	if err != nil {
		kind := planner.Kind(err)
		respondError(w, statusForKind(kind), kind, err)
		return
	}

	logger.Info("Catalog reloaded", "source", s.source.Identity(), "foods", len(records))
	respondJSON(w, http.StatusOK, ReloadResponse{
		Status: "reloaded",
		Count:  len(records),
	})
}

// statusForKind maps planner error kinds to HTTP status codes.
func statusForKind(kind string) int {
	switch kind {
	case planner.KindInvalidNutrientTarget, planner.KindInvalidFilter:
		return http.StatusBadRequest
	case planner.KindInfeasible:
		return http.StatusUnprocessableEntity
	case planner.KindCatalogUnavailable:
		return http.StatusServiceUnavailable
	case planner.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error body carrying only the kind and a request id.
// Details stay in the log under the same id.
func respondError(w http.ResponseWriter, status int, kind string, err error) {
	reqUUID := uuid.NewString()
	if err != nil {
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", "req_uuid", reqUUID, "type", kind, "error", err)
		} else {
			logger.Debug("Request rejected", "req_uuid", reqUUID, "type", kind, "error", err)
		}
	}
	respondJSON(w, status, ErrorResponse{Error: ErrorBody{
		Type:    kind,
		ReqUUID: reqUUID,
	}})
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	// Create server
	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		logger.Error("Logger shutdown error", "error", err)
	}

	logger.Info("Server stopped", "counters", logger.Snapshot())
}
