// Package logger wraps zap behind a small package-level API so that the
// rest of the application can log without threading a logger through
// every constructor.  The default logger is replaced at startup once the
// environment is known.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

func init() {
	log = New("dev")
}

// New builds a zap logger for the given environment.  "prod" selects the
// JSON production encoder with ISO8601 timestamps; anything else uses
// the colored development console encoder.  LOG_LEVEL overrides the
// default level when set.
func New(env string) *zap.Logger {
	var cfg zap.Config
	if env == "prod" || env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(lvl)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	l, _ := cfg.Build()
	return l
}

// Get returns the current package logger.
func Get() *zap.Logger { return log }

// Set replaces the package logger.  Call once during startup.
func Set(l *zap.Logger) { log = l }

func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }

// Sync flushes buffered log entries; call on shutdown.
func Sync() error { return log.Sync() }
