// Package logging wraps a go-kit logger with leveled helpers so the
// symbol-file parser, the resolver, and config share one small
// diagnostic surface instead of each taking a bare log.Logger and
// re-deriving level.Debug/Info/... at every call site.
package logging

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is a leveled sink for diagnostic messages. It is never
// required for correctness: every caller that accepts one must behave
// identically with a nil Logger as with New(log.NewNopLogger()).
type Logger struct {
	base log.Logger
}

// New wraps base. A nil base is treated as log.NewNopLogger().
func New(base log.Logger) Logger {
	if base == nil {
		base = log.NewNopLogger()
	}
	return Logger{base: base}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return New(log.NewNopLogger())
}

func (l Logger) Debug(keyvals ...interface{}) {
	level.Debug(l.Base()).Log(keyvals...)
}

func (l Logger) Info(keyvals ...interface{}) {
	level.Info(l.Base()).Log(keyvals...)
}

func (l Logger) Warn(keyvals ...interface{}) {
	level.Warn(l.Base()).Log(keyvals...)
}

func (l Logger) Error(keyvals ...interface{}) {
	level.Error(l.Base()).Log(keyvals...)
}

// With returns a Logger with keyvals appended to every subsequent log
// line, mirroring log.With.
func (l Logger) With(keyvals ...interface{}) Logger {
	return Logger{base: log.With(l.base, keyvals...)}
}

// Base returns the wrapped go-kit logger, for callers that need to
// pass it to a collaborator expecting log.Logger directly.
func (l Logger) Base() log.Logger {
	if l.base == nil {
		return log.NewNopLogger()
	}
	return l.base
}
