// Package logging builds the zap loggers shared by all three Observix
// binaries. Every binary calls Build with its own name and configured
// level so log lines can be told apart in aggregated output.
package logging

import "go.uber.org/zap"

// Build constructs a *zap.Logger for the named component. level is one of
// "debug", "info", "warn", "error"; anything else falls back to "info".
// Debug builds the development encoder (human-readable, stack traces on
// warn+); everything else builds the production JSON encoder.
func Build(component, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(component), nil
}
