package util

import (
	"context"
	"time"
)

// RunPeriodically calls fn every interval until ctx is done.
func RunPeriodically(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			fn(ctx)
		}
	}
}
