// Package logger provides structured logging for the scheduler,
// wrapping go.uber.org/zap.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Logger wraps a zap.Logger instance.
type Logger struct {
	// Log is the underlying zap logger, valid after Init.
	Log *zap.Logger
}

// New creates a Logger with a no-op zap instance; call Init to activate it.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init configures the underlying zap logger at the given level
// ("Debug", "Info", "Warn", "Error").
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = logger
	return nil
}
