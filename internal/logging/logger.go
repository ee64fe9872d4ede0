// Package logging provides config-driven categorized logging on top of zap.
// Each category is a named child of one root logger and can be switched off
// from the logging section of informes.yaml.
package logging

import (
	"fmt"
	"sync"
	"time"

	"informes/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config and flags
	CategoryReader   Category = "reader"   // Spreadsheet and street table reads
	CategorySnapshot Category = "snapshot" // Browser lifecycle and map capture
	CategoryRender   Category = "render"   // Document layout
	CategoryPipeline Category = "pipeline" // Run orchestration and output writes
	CategoryWatch    Category = "watch"    // File watching and schedules
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	cfg     config.LoggingConfig
	loggers = make(map[Category]*zap.Logger)
)

// Build creates a zap logger from the logging config, writing to stderr and
// to the configured file. verbose forces the debug level.
func Build(c config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	outputs := []string{"stderr"}
	if c.File != "" {
		outputs = append(outputs, c.File)
	}
	return build(c, verbose, outputs)
}

// BuildFileOnly is Build without stderr, for full-screen terminal use. It
// returns a no-op logger when no file is configured.
func BuildFileOnly(c config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	if c.File == "" {
		return zap.NewNop(), nil
	}
	return build(c, verbose, []string{c.File})
}

func build(c config.LoggingConfig, verbose bool, outputs []string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Format != "json" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.Sampling = nil
	zc.OutputPaths = outputs

	level := zapcore.InfoLevel
	if c.Level != "" {
		if err := level.Set(c.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

// Initialize installs l as the root logger and c as the category filter.
// Loggers handed out earlier keep their old root.
func Initialize(l *zap.Logger, c config.LoggingConfig) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	root = l
	cfg = c
	loggers = make(map[Category]*zap.Logger)

	boot := root.Named(string(CategoryBoot))
	if cfg.IsCategoryEnabled(string(CategoryBoot)) {
		boot.Debug("logging initialized",
			zap.String("level", c.Level),
			zap.String("format", c.Format),
			zap.String("file", c.File))
	}
}

// Reset restores the no-op root logger.
func Reset() {
	Initialize(nil, config.LoggingConfig{})
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	l := zap.NewNop()
	if cfg.IsCategoryEnabled(string(category)) {
		l = root.Named(string(category))
	}
	loggers[category] = l
	return l
}

// Sync flushes the root logger.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sync()
}

// Timer logs how long an operation took.
type Timer struct {
	logger    *zap.Logger
	operation string
	start     time.Time
}

// StartTimer starts timing an operation in a category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		logger:    Get(category),
		operation: operation,
		start:     time.Now(),
	}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Debug(t.operation+" finished", zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs at warn level when the operation ran longer than
// threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.logger.Warn(t.operation+" slow",
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
		return elapsed
	}
	t.logger.Debug(t.operation+" finished", zap.Duration("elapsed", elapsed))
	return elapsed
}
