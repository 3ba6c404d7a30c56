package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/pollindex/internal/version"
)

// NewLogger creates a zap logger for the given environment.
// prod writes JSON, local/dev/docker write colored console output.
// levelOverride (if non-empty) overrides the log level: debug, info, warn, error.
// Every entry carries the service name and build version.
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	cfg, err := configFor(env)
	if err != nil {
		return nil, err
	}

	if len(levelOverride) > 0 && levelOverride[0] != "" {
		level, err := zapcore.ParseLevel(levelOverride[0])
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelOverride[0], err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	cfg.InitialFields = map[string]any{
		"service": "pollindex",
		"version": version.Version,
		"env":     env,
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func configFor(env string) (zap.Config, error) {
	switch env {
	case "prod":
		return zap.NewProductionConfig(), nil
	case "local", "dev", "docker":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, nil
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}
}
