package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// pollLoop runs pass immediately and then on every tick until ctx ends.
// A failed pass is logged and does not stop the loop.
func pollLoop(ctx context.Context, logger *slog.Logger, module string, interval time.Duration, pass func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "poll pass failed",
				"module", module,
				"layer", "adapter",
				"operation", "poll",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func orDefault[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}
