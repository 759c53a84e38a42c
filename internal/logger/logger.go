package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New builds the process logger. Production mode emits JSON lines;
// anything else gets zap's human-readable development config. The
// sugared logger is handed to components explicitly; nothing in this
// codebase logs through a package global.
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Sugar(), nil
}

// Nop returns a logger that discards everything. Tests pass it to
// constructors that require one.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
