package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewConsole builds the interactive zap logger used for CLI-facing output
// (distinct from the category file loggers above, which back the on-disk
// audit trail). Verbose selects debug-level console output.
func NewConsole(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "" // the CLI renders its own human-readable lines
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
