// Package logging builds the structured loggers used by the engine and the
// command line. Records carry a "cat" attribute naming the subsystem
// (memory, list, split, wire, cli); debug records are kept only for the
// enabled categories while warnings and errors always pass.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

const CategoryKey = "cat"

type Config struct {
	Level      string   // debug, info, warn, error
	Format     string   // text or json
	Categories []string // empty enables every category
	Out        io.Writer
}

func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		if supportsColor(out) {
			opts.ReplaceAttr = colorLevel
		}
		inner = slog.NewTextHandler(out, opts)
	case "json":
		inner = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(newCategoryHandler(inner, cfg.Categories)), nil
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

type categoryHandler struct {
	inner   slog.Handler
	enabled map[string]bool
	cat     string // category fixed through WithAttrs
}

func newCategoryHandler(inner slog.Handler, cats []string) *categoryHandler {
	h := &categoryHandler{inner: inner}
	if len(cats) > 0 {
		h.enabled = make(map[string]bool, len(cats))
		for _, c := range cats {
			h.enabled[strings.ToLower(strings.TrimSpace(c))] = true
		}
	}
	return h
}

func (h *categoryHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *categoryHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < slog.LevelWarn && h.enabled != nil {
		cat := h.cat
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == CategoryKey {
				cat = a.Value.String()
				return false
			}
			return true
		})
		if !h.enabled[cat] {
			return nil
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *categoryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	for _, a := range attrs {
		if a.Key == CategoryKey {
			next.cat = a.Value.String()
		}
	}
	next.inner = h.inner.WithAttrs(attrs)
	return &next
}

func (h *categoryHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.inner = h.inner.WithGroup(name)
	return &next
}

const (
	colorYellow = "\x1b[93m"
	colorRed    = "\x1b[91m"
	colorReset  = "\x1b[0m"
)

func colorLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	l, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch {
	case l >= slog.LevelError:
		return slog.String(a.Key, colorRed+l.String()+colorReset)
	case l >= slog.LevelWarn:
		return slog.String(a.Key, colorYellow+l.String()+colorReset)
	}
	return a
}

// supportsColor reports whether w is a terminal that accepts ANSI colours.
func supportsColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}
