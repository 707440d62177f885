package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/coach"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a JSON file logger. The terminal belongs to the TUI, so
// nothing is ever written to stdout or stderr. An empty path disables
// logging.
func newLogger(path, level string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.Sampling = nil
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// stateLogger reports session state transitions.
func stateLogger(logger *zap.Logger) func(from, to coach.AuthState) {
	return func(from, to coach.AuthState) {
		logger.Info("session state", zap.Stringer("from", from), zap.Stringer("to", to))
	}
}
