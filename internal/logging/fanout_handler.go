package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanoutHandler copies each record to every output (stdout, journal, ring
// buffer) that accepts its level. Outputs filter independently, so a debug
// ffmpeg line can reach the buffer while stdout stays at info.
type fanoutHandler []slog.Handler

// newFanoutHandler returns the single output unwrapped, or a fanout over all
// of them.
func newFanoutHandler(outputs ...slog.Handler) slog.Handler {
	if len(outputs) == 1 {
		return outputs[0]
	}
	return fanoutHandler(outputs)
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every enabled output. A failing output (typically a
// journald socket that went away) does not stop the others.
func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanoutHandler) each(fn func(slog.Handler) slog.Handler) fanoutHandler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
