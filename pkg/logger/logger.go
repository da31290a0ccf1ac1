// Package logger builds the process-wide zap logger from the application's
// log configuration. Everything below main receives a *zap.Logger through
// its constructor; the package global exists for the few places that run
// before wiring is done.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/config"
)

// Log is the process-wide logger. It is a no-op until Init runs.
var Log = zap.NewNop()

// Init builds the global logger. Every entry carries the service name so
// aggregated logs stay attributable.
func Init(cfg *config.Log, serviceName string) error {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	var zc zap.Config
	if cfg.Format == "text" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = level

	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.Output == "file" && cfg.FilePath != "" {
		zc.OutputPaths = []string{cfg.FilePath}
		zc.ErrorOutputPaths = []string{cfg.FilePath}
	}

	built, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}

	Log = built.With(zap.String("service", serviceName))
	return nil
}

// Sync flushes any buffered log entries
func Sync() error {
	return Log.Sync()
}
