package log

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mikhailv/fnstream/stream"
)

var _ slog.Handler = Recorder{}

// Recorder is a slog.Handler that also publishes every record as an Entry on a
// stream. Records may come from any goroutine; entries are emitted on the loop.
type Recorder struct {
	handler slog.Handler
	loop    stream.Scheduler
	emit    func(Entry)
	attrs   []slog.Attr
}

func NewRecorder(handler slog.Handler, loop stream.Scheduler) (Recorder, *stream.Stream[Entry], error) {
	var emit func(Entry)
	st, err := stream.New(func(e func(Entry), _ func()) (func(), error) {
		emit = e
		return nil, nil
	})
	if err != nil {
		return Recorder{}, nil, fmt.Errorf("failed to create log stream: %w", err)
	}
	return Recorder{handler: handler, loop: loop, emit: emit}, st, nil
}

func (s Recorder) Enabled(ctx context.Context, level slog.Level) bool {
	return s.handler.Enabled(ctx, level)
}

func (s Recorder) Handle(ctx context.Context, record slog.Record) error {
	entry := NewEntry(record, s.attrs)
	s.loop.Post(func() { s.emit(entry) })
	return s.handler.Handle(ctx, record)
}

func (s Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Recorder{s.handler.WithAttrs(attrs), s.loop, s.emit, append(slices.Clip(s.attrs), attrs...)}
}

func (s Recorder) WithGroup(name string) slog.Handler {
	return Recorder{s.handler.WithGroup(name), s.loop, s.emit, s.attrs}
}
