// Package logging builds the single root logger threaded through every
// constructor in the bot. Nothing here is a package-level global; New is
// called once at startup and the *zap.SugaredLogger it returns is passed
// down by construction, the same way the config value is.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger from a textual level ("debug", "info", "warn",
// "error"). Call shape mirrors slog's Info("msg", "k", v, ...): Infow.
func New(level string) (*zap.SugaredLogger, error) {
	if level == "" {
		level = "info"
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.Sugar(), nil
}
