// Package logging builds the zap loggers used across thingstore.
// Libraries take a *zap.SugaredLogger through an option and default to
// Nop; only the CLI constructs a real one.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured log entries.
const (
	FieldNamespace  = "namespace"
	FieldEntity     = "entity"
	FieldHandle     = "handle"
	FieldField      = "field"
	FieldIdentifier = "identifier"
	FieldStrategy   = "strategy"
	FieldBackend    = "backend"
	FieldCount      = "count"
	FieldError      = "error"
)

// Config selects the encoder and level.
type Config struct {
	JSON  bool   `mapstructure:"json" yaml:"json"`
	Level string `mapstructure:"level" yaml:"level"`
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// OrNop returns log, or a Nop logger when log is nil.
func OrNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return Nop()
	}
	return log
}

// New builds a logger writing to stderr. JSON output uses the production
// encoder; otherwise a console encoder without caller or stack noise.
func New(cfg Config) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	if cfg.JSON {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		zc.OutputPaths = []string{"stderr"}
		logger, err := zc.Build()
		if err != nil {
			return nil, err
		}
		return logger.Sugar(), nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), level)
	return zap.New(core).Sugar(), nil
}
