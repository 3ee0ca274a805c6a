package logging

import (
	"go.uber.org/zap"
)

// New builds the process-wide sugared logger. Console encoding keeps the
// output readable next to the styled progress lines.
func New(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Encoding = "console"
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything. Used by tests and as a
// default before the CLI has parsed flags.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
