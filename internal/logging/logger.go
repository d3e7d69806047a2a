// Package logging builds the process logger and hands out categorized,
// request-scoped children of it.
//
// The root logger is a zap.Logger whose level lives in a zap.AtomicLevel, so
// the config watcher can raise or lower verbosity without a restart.
package logging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem. Each category is a named child logger.
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup and shutdown
	CategoryAPI      Category = "api"      // HTTP requests
	CategoryValidate Category = "validate" // Request field validation
	CategoryDispatch Category = "dispatch" // Engine dispatch
	CategoryEngine   Category = "engine"   // Engine backend processes
	CategoryCache    Category = "cache"    // Encoding cache
	CategoryHistory  Category = "history"  // Job history store
	CategoryConfig   Category = "config"   // Config loading and reload
)

// Options configures the root logger.
type Options struct {
	Level       string   // debug, info, warn, error
	Format      string   // json, console
	Development bool     // stack traces on warn, caller info, console defaults
	OutputPaths []string // defaults to stderr
}

// New builds the root logger and returns the level handle that controls it.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(opts.Format) {
	case "", "json":
		cfg.Encoding = "json"
	case "console", "text":
		cfg.Encoding = "console"
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, cfg.Level, nil
}

// ParseLevel accepts the usual level names. An empty string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// For returns the child logger of base for a category.
func For(base *zap.Logger, category Category) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.Named(string(category))
}

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

type requestIDKey struct{}

// WithRequestID attaches a correlation id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns base annotated with the request id carried by ctx.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if id := RequestID(ctx); id != "" {
		return base.With(zap.String("req", id))
	}
	return base
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer measures one operation.
type Timer struct {
	logger *zap.Logger
	op     string
	start  time.Time
}

// StartTimer begins timing op.
func StartTimer(logger *zap.Logger, op string) *Timer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timer{logger: logger, op: op, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Debug(t.op+" completed", zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs at warn level when the operation took longer than
// threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.logger.Warn(t.op+" slow", zap.Duration("elapsed", elapsed), zap.Duration("threshold", threshold))
	} else {
		t.logger.Debug(t.op+" completed", zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
