// Package dlogger builds the zap logger used by the command line tool.
package dlogger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelDebug logs every git call and file operation.
	LogLevelDebug = "debug"

	// LogLevelInfo logs each step of a bump.
	LogLevelInfo = "info"

	// LogLevelWarn logs warnings and errors only.
	LogLevelWarn = "warn"

	// LogLevelNone sets logger to no logging
	LogLevelNone = "none"
)

// GetLogger returns a zap logger writing to stderr with the specified level.
// Console output is meant for people; json is meant for tools consuming the
// --json output of the CLI.
func GetLogger(logLevel string, json bool) (*zap.Logger, error) {
	if logLevel == LogLevelNone {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	if !json {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zapConfig.EncoderConfig.TimeKey = ""
		zapConfig.EncoderConfig.CallerKey = ""
	}
	zapConfig.DisableStacktrace = true
	zapConfig.Sampling = nil
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	return zapConfig.Build()
}
