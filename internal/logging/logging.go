// Package logging builds the zap loggers used by the server and the peer CLI.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a LOG_LEVEL value to a zap level. Unknown values fall
// back to def.
func ParseLevel(s string, def zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error", "production", "prod":
		return zapcore.ErrorLevel
	}
	return def
}

// New builds a logger at the given level. Debug level gets the development
// console encoder, everything else the production JSON encoder.
func New(level zapcore.Level) (*zap.Logger, error) {
	var cfg zap.Config
	if level == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// FromEnv reads LOG_LEVEL, defaulting to def.
func FromEnv(def zapcore.Level) (*zap.Logger, error) {
	return New(ParseLevel(os.Getenv("LOG_LEVEL"), def))
}
