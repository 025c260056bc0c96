// Package logger is the process-wide structured logger. Output is JSON on
// stdout unless OTEL_ENABLED=true, in which case records are exported over
// OTLP/gRPC. Warnings and errors are sampled; the counters below are not.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
	LevelFatal   = slog.Level(12)
)

const defaultServiceName = "mealplan"

var (
	Logger          *slog.Logger
	errorSampleRate int32 = 1
	programLevel          = new(slog.LevelVar)
	shutdownFunc    func(context.Context) error
)

// Counters are incremented regardless of sampling.
var (
	TotalErrors     atomic.Int64
	TotalWarnings   atomic.Int64
	Total4xxErrors  atomic.Int64
	Total5xxErrors  atomic.Int64
	PlansServed     atomic.Int64
	PlansInfeasible atomic.Int64
)

func init() {
	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = LevelInfo
	}
	programLevel.Set(level)

	// ERROR_SAMPLE_RATE=N logs one in N warnings/errors.
	if sampleStr := os.Getenv("ERROR_SAMPLE_RATE"); sampleStr != "" {
		if rate, err := strconv.Atoi(sampleStr); err == nil && rate > 0 {
			atomic.StoreInt32(&errorSampleRate, int32(rate))
		}
	}

	if strings.ToLower(os.Getenv("OTEL_ENABLED")) != "true" {
		setupJSONLogging()
		return
	}

	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	shutdown, err := setupOTELLogging(context.Background(), serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup OTEL logging, falling back to JSON: %v\n", err)
		setupJSONLogging()
		return
	}
	shutdownFunc = shutdown
}

func setupJSONLogging() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func setupOTELLogging(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	Logger = slog.New(&levelHandler{
		level:   programLevel,
		handler: otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(provider)),
	})
	slog.SetDefault(Logger)

	return provider.Shutdown, nil
}

// levelHandler applies programLevel to a handler that has no level of its own
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// Shutdown flushes the OTLP exporter, if any.
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel sets the minimum log level
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// SetSampleRate logs one in rate warnings and errors. Rates below 1 log everything.
func SetSampleRate(rate int) {
	if rate < 1 {
		rate = 1
	}
	atomic.StoreInt32(&errorSampleRate, int32(rate))
}

// ParseLevel converts a level name to slog.Level. An empty name is INFO.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s (defaulting to INFO)", levelStr)
	}
}

func shouldSample() bool {
	rate := atomic.LoadInt32(&errorSampleRate)
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

func Trace(msg string, args ...any) {
	Logger.Log(context.Background(), LevelTrace, msg, args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn is sampled.
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		Logger.Warn(msg, args...)
	}
}

// Error is sampled.
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		Logger.Error(msg, args...)
	}
}

// Fatal logs, flushes the exporter and exits.
func Fatal(msg string, args ...any) {
	Logger.Log(context.Background(), LevelFatal, msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}

// CountHTTPStatus records a response status in the 4xx/5xx counters.
func CountHTTPStatus(status int) {
	switch {
	case status >= 500:
		Total5xxErrors.Add(1)
		TotalErrors.Add(1)
	case status >= 400:
		Total4xxErrors.Add(1)
		TotalWarnings.Add(1)
	}
}

// Snapshot returns the current counter values keyed by name.
func Snapshot() map[string]int64 {
	return map[string]int64{
		"errors":           TotalErrors.Load(),
		"warnings":         TotalWarnings.Load(),
		"http_4xx":         Total4xxErrors.Load(),
		"http_5xx":         Total5xxErrors.Load(),
		"plans_served":     PlansServed.Load(),
		"plans_infeasible": PlansInfeasible.Load(),
	}
}
