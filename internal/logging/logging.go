// Package logging configures log/slog for dhk. Package-level loggers from L
// may be created in var blocks before Init runs; they follow whatever
// handler Init installs later.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Structured field keys shared across packages.
const (
	KeyComponent   = "component"
	KeyError       = "error"
	KeyDisplayID   = "displayId"
	KeyLegacyIndex = "legacyIndex"
	KeyConfigIndex = "configIndex"
	KeyCode        = "code"
	KeyRequestID   = "requestId"
	KeyDurationMs  = "durationMs"
)

var (
	level      = new(slog.LevelVar)
	root       atomic.Value // handlerBox
	generation atomic.Uint64
)

type handlerBox struct{ h slog.Handler }

// Diagnostics go to stderr so they never mix with command output.
func init() {
	install(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(slog.New(&deferred{}))
}

func install(h slog.Handler) {
	root.Store(handlerBox{h})
	generation.Add(1)
}

// Init installs the handler for format ("json" or "text") at level, writing
// to out (stderr when nil).
func Init(format, lvl string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	level.Set(ParseLevel(lvl))
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		install(slog.NewJSONHandler(out, opts))
	} else {
		install(slog.NewTextHandler(out, opts))
	}
}

// L returns a logger tagged with component.
func L(component string) *slog.Logger {
	return slog.New((&deferred{}).WithAttrs([]slog.Attr{slog.String(KeyComponent, component)}))
}

// WithDisplay adds the display id being worked on.
func WithDisplay(l *slog.Logger, id string) *slog.Logger {
	return l.With(slog.String(KeyDisplayID, id))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// deferred replays its With/WithGroup calls, in order, onto the installed
// root handler. The result is cached until the next install.
type deferred struct {
	steps []func(slog.Handler) slog.Handler
	built atomic.Pointer[built]
}

type built struct {
	gen uint64
	h   slog.Handler
}

func (d *deferred) handler() slog.Handler {
	gen := generation.Load()
	if b := d.built.Load(); b != nil && b.gen == gen {
		return b.h
	}
	h := root.Load().(handlerBox).h
	for _, step := range d.steps {
		h = step(h)
	}
	d.built.Store(&built{gen: gen, h: h})
	return h
}

func (d *deferred) with(step func(slog.Handler) slog.Handler) *deferred {
	steps := make([]func(slog.Handler) slog.Handler, len(d.steps), len(d.steps)+1)
	copy(steps, d.steps)
	return &deferred{steps: append(steps, step)}
}

func (d *deferred) Enabled(_ context.Context, l slog.Level) bool { return l >= level.Level() }

func (d *deferred) Handle(ctx context.Context, r slog.Record) error {
	return d.handler().Handle(ctx, r)
}

func (d *deferred) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return d
	}
	return d.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (d *deferred) WithGroup(name string) slog.Handler {
	if name == "" {
		return d
	}
	return d.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}
