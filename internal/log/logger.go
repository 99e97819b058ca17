package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Options configures NewLogger.
type Options struct {
	// Console receives Warn and above, or Debug and above when Verbose is set.
	// Nil disables console output.
	Console io.Writer

	// File, when non-nil, receives Info and above regardless of Verbose.
	File io.Writer

	// Verbose lowers the console level to Debug.
	Verbose bool

	// JSON switches both sinks to JSON output.
	JSON bool

	// Secrets are literal values masked wherever they appear, typically the
	// values of configured request headers.
	Secrets []string
}

// NewLogger creates a slog.Logger that writes to the console and, optionally,
// a log file. Every record passes through a SecureHandler first.
func NewLogger(opts Options) *slog.Logger {
	var handlers []slog.Handler

	if opts.Console != nil {
		level := slog.LevelWarn
		if opts.Verbose {
			level = slog.LevelDebug
		}
		handlers = append(handlers, newHandler(opts.Console, level, opts.JSON))
	}
	if opts.File != nil {
		handlers = append(handlers, newHandler(opts.File, slog.LevelInfo, opts.JSON))
	}

	var inner slog.Handler
	switch len(handlers) {
	case 0:
		inner = slog.NewTextHandler(io.Discard, nil)
	case 1:
		inner = handlers[0]
	default:
		inner = &fanoutHandler{handlers: handlers}
	}
	return slog.New(NewSecureHandler(inner, opts.Secrets...))
}

func newHandler(w io.Writer, level slog.Level, json bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// fanoutHandler sends each record to every handler that accepts its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
