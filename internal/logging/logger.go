package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/contract-wizard/internal/config"
)

// FileName is the diagnostic log inside .contractwizard/logs. The terminal is
// owned by the UI, so nothing is written to stderr.
const FileName = "contractwizard.log"

// New builds a JSON zap logger that appends to the project's diagnostic log
// at the configured level.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging: config is required")
	}
	level, err := ParseLevel(cfg.Project.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.LogsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{filepath.Join(cfg.LogsDir(), FileName)}
	zc.ErrorOutputPaths = []string{filepath.Join(cfg.LogsDir(), FileName)}
	zc.Sampling = nil
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel maps a config level name onto a zap level.
func ParseLevel(raw string) (zapcore.Level, error) {
	if raw == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", raw)
	}
	return level, nil
}
