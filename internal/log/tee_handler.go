package log

import (
	"context"
	"errors"
	"log/slog"
)

var _ slog.Handler = TeeHandler{}

// TeeHandler fans every record out to each handler enabled for its level.
type TeeHandler []slog.Handler

func (s TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range s {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (s TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range s {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (s TeeHandler) WithGroup(name string) slog.Handler {
	return s.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s TeeHandler) each(fn func(slog.Handler) slog.Handler) TeeHandler {
	res := make(TeeHandler, len(s))
	for i, handler := range s {
		res[i] = fn(handler)
	}
	return res
}
