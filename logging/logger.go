package logging

import (
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used across framegraph. It mirrors the zap sugared logger
// surface so callers can switch between the two freely.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})

	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})

	// Sublogger returns a new logger named "<parent>.<subname>" sharing the parent's appenders.
	Sublogger(subname string) Logger
	// Name returns the dotted name of the logger.
	Name() string
	AddAppender(appender Appender)
	SetLevel(level Level)
	GetLevel() Level
	// Level satisfies zapcore.LevelEnabler style checks.
	Level() zapcore.Level
	Sync() error
}
