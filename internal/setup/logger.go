package setup

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mikhailv/fnstream/internal/log"
)

// Logger builds the process logger: text to stdout, plus JSON lines to file
// when file is set. wrapHandler, if any, wraps the resulting handler.
func Logger(debug bool, file string, wrapHandler func(slog.Handler) slog.Handler) (*slog.Logger, io.Closer, error) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}

	var closer io.Closer = nopCloser{}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if file != "" {
		f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closer = f
		handler = log.TeeHandler{handler, slog.NewJSONHandler(f, opts)}
	}
	handler = log.NewPrefixHandler(handler)
	if wrapHandler != nil {
		handler = wrapHandler(handler)
	}
	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
