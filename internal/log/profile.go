package log

import (
	"log/slog"
	"time"
)

// Profile logs msg and returns a func that logs how long the work took.
func Profile(logger *slog.Logger, msg string, args ...any) func() {
	st := time.Now()
	logger.Debug(msg, args...)
	return func() {
		logger.Info(msg+" completed", append(args, "elapsed", time.Since(st))...)
	}
}
