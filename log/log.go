// Package log is a small slog-backed structured logger in the go-ethereum
// idiom: a Logger interface, a process-wide Root(), free functions that
// delegate to it, and a terminal handler with level-colored output. It
// covers the subset of go-ethereum's log package this module's ambient
// stack needs (see DESIGN.md).
package log

import (
	"context"
	"log/slog"
	"os"
)

// Level mirrors slog levels with go-ethereum's naming.
type Level = slog.Level

const (
	LevelTrace Level = slog.Level(-8)
	LevelDebug Level = slog.LevelDebug
	LevelInfo  Level = slog.LevelInfo
	LevelWarn  Level = slog.LevelWarn
	LevelError Level = slog.LevelError
	LevelCrit  Level = slog.Level(12)
)

// Logger writes structured log lines with key/value context.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)
	With(ctx ...any) Logger
}

type logger struct {
	inner *slog.Logger
}

// NewLogger wraps an slog.Handler as a Logger.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) write(level Level, msg string, ctx []any) {
	l.inner.Log(context.Background(), level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LevelError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...any) {
	l.write(LevelCrit, msg, ctx)
	os.Exit(1)
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

var root Logger = NewLogger(NewTerminalHandlerWithLevel(os.Stderr, LevelInfo, true))

// Root returns the package-wide default logger.
func Root() Logger { return root }

// SetDefault replaces the package-wide default logger, e.g. with a JSON
// handler in production or a verbose terminal handler under test.
func SetDefault(l Logger) { root = l }

// New returns a child of Root() with the given key/value pairs attached to
// every subsequent line - the same pattern go-ethereum uses for
// per-subsystem loggers (e.g. log.New("module", "triedb")).
func New(ctx ...any) Logger { return root.With(ctx...) }

func Trace(msg string, ctx ...any) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { root.Crit(msg, ctx...) }
