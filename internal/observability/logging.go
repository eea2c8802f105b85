// Package observability provides the process-wide loggers.
//
// CLILogger is a human-oriented console logger for command output. Service
// components receive a structured logger built by NewLogger.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the console logger used by CLI commands. It is initialized
// at info level and reconfigured by InitCLI once flags are parsed.
var CLILogger = mustConsoleLogger(zapcore.InfoLevel)

// InitCLI reconfigures the CLI logger with the given level.
func InitCLI(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	CLILogger = mustConsoleLogger(lvl)
	return nil
}

// NewLogger builds a structured logger for long-running components.
// Profile "CONSOLE" produces human-readable output; anything else emits
// JSON suitable for log aggregation.
func NewLogger(level, profile string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if strings.EqualFold(profile, "CONSOLE") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// ParseLevel maps a level string to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func mustConsoleLogger(lvl zapcore.Level) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		// Development config with static options cannot fail to build.
		panic(err)
	}
	return logger
}
