// Package monitoring holds the process-wide diagnostic loggers.
//
// Packages call Logf for operational messages and Debugf for per-frame
// chatter. Both default to the standard logger (Debugf muted) and are
// rebound once at startup, normally to zap via UseZap.
package monitoring

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf receives per-frame trace output. Muted unless SetDebugLogger is called.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebugLogger replaces the debug logger. Passing nil mutes it.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Debugf = func(string, ...interface{}) {}
		return
	}
	Debugf = f
}

// NewZapLogger builds the process logger. debug selects the human-readable
// development encoder at debug level; otherwise JSON at info level.
func NewZapLogger(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// UseZap binds Logf and Debugf to logger and returns a function restoring
// the previous loggers after flushing. Debugf is only bound when the logger
// has debug level enabled.
func UseZap(logger *zap.Logger) (restore func()) {
	prevLog, prevDebug := Logf, Debugf
	sugar := logger.Sugar()

	SetLogger(sugar.Infof)
	if logger.Core().Enabled(zapcore.DebugLevel) {
		SetDebugLogger(sugar.Debugf)
	} else {
		SetDebugLogger(nil)
	}
	return func() {
		_ = logger.Sync()
		Logf, Debugf = prevLog, prevDebug
	}
}
