package log

import (
	"context"
	"log/slog"
)

const prefixKey = "_prefix_"

// NewPrefixHandler renders the prefix set by WithPrefix in front of the message
// instead of as an attribute. Nested prefixes are joined with dots.
func NewPrefixHandler(handler slog.Handler) slog.Handler {
	return prefixHandler{handler, ""}
}

func WithPrefix(logger *slog.Logger, prefix string) *slog.Logger {
	return logger.With(slog.String(prefixKey, prefix))
}

var _ slog.Handler = prefixHandler{}

type prefixHandler struct {
	handler slog.Handler
	prefix  string
}

func (s prefixHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.handler.Enabled(ctx, level)
}

func (s prefixHandler) Handle(ctx context.Context, record slog.Record) error {
	if s.prefix != "" {
		record.Message = s.prefix + ": " + record.Message
	}
	return s.handler.Handle(ctx, record)
}

func (s prefixHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := s.prefix
	rest := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key != prefixKey {
			rest = append(rest, attr)
			continue
		}
		if prefix != "" {
			prefix += "."
		}
		prefix += attr.Value.String()
	}
	handler := s.handler
	if len(rest) > 0 {
		handler = handler.WithAttrs(rest)
	}
	return prefixHandler{handler, prefix}
}

func (s prefixHandler) WithGroup(name string) slog.Handler {
	return prefixHandler{s.handler.WithGroup(name), s.prefix}
}
