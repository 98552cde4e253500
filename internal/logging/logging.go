// Package logging wraps zap with the fixed "[main]" message convention
// spec.md §7 requires: every message carries the same tag, and the
// verbosity level (config verbosity, overridden by "-v" or "-q") decides
// what is visible.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapStderr struct{}

func (zapStderr) Write(p []byte) (int, error) { return os.Stderr.Write(p) }

// Level mirrors the CLI's three-way verbosity knob (spec.md §6: verbose=2,
// default=1, quiet=0).
type Level int

const (
	Quiet   Level = 0
	Default Level = 1
	Verbose Level = 2
)

// Logger is the single logging handle threaded through every component.
type Logger struct {
	z *zap.SugaredLogger
}

// New builds a Logger writing to stderr, with "debug" messages shown only
// at Verbose and "info" suppressed at Quiet.
func New(level Level) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	encoder := zapcore.NewConsoleEncoder(cfg)

	var zapLevel zapcore.Level
	switch level {
	case Quiet:
		zapLevel = zapcore.ErrorLevel
	case Verbose:
		zapLevel = zapcore.DebugLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(zapStderr{})), zapLevel)
	return &Logger{z: zap.New(core).Sugar()}
}

// Main logs at info level with the "[main]" tag spec.md §7 names.
func (l *Logger) Main(msg string, args ...interface{}) {
	l.z.Infof("[main] "+msg, args...)
}

// Debugf logs a diagnostic that is visible only at Verbose. No package in
// this module calls it; the hook runner, resolver and kernel comparator do
// not log.
func (l *Logger) Debugf(msg string, args ...interface{}) {
	l.z.Debugf("[main] "+msg, args...)
}

// Warnf logs a non-fatal, user-visible warning (hook failures, malformed
// hook output).
func (l *Logger) Warnf(msg string, args ...interface{}) {
	l.z.Warnf("[main] "+msg, args...)
}

// Fatalf logs a fatal configuration error. Callers are responsible for the
// exit(1) policy in spec.md §6/§7; this only logs.
func (l *Logger) Fatalf(msg string, args ...interface{}) {
	l.z.Errorf("[main] "+msg, args...)
}

func (l *Logger) Sync() error { return l.z.Sync() }
