// Package logger provides opinionated slog construction for studybuddy
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	prefix  string
	writers []io.Writer
}

// New builds a *slog.Logger. The default is a text handler at Info level
// writing to stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer = os.Stdout
	switch len(c.writers) {
	case 0:
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	handlerOpts := &slog.HandlerOptions{Level: c.level, AddSource: c.source}

	var l *slog.Logger
	switch {
	case c.json:
		l = slog.New(slog.NewJSONHandler(w, handlerOpts))
	case c.pretty:
		level := log.InfoLevel
		if c.level <= slog.LevelDebug {
			level = log.DebugLevel
		}
		return slog.New(log.NewWithOptions(w, log.Options{
			Level:           level,
			Prefix:          c.prefix,
			ReportTimestamp: true,
			ReportCaller:    c.source,
		}))
	default:
		l = slog.New(slog.NewTextHandler(w, handlerOpts))
	}

	if c.prefix != "" {
		l = l.With("component", c.prefix)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
