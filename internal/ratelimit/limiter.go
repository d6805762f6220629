// Package ratelimit implements a fixed-window request limiter whose counters
// live in the shared database, so every server instance enforces one budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Window is the length of one counting window.
const Window = time.Hour

// Counter increments the persisted hit count for a key and window.
type Counter interface {
	IncrementRateWindow(ctx context.Context, key string, windowStart time.Time) (int, error)
	PruneRateWindows(ctx context.Context, before time.Time) (int, error)
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the current window closes.
	ResetAt time.Time
}

// RetryAfter returns how long a rejected caller should wait, rounded up to
// whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	if rounded := wait.Truncate(time.Second); rounded < wait {
		return rounded + time.Second
	}
	return wait
}

// Limiter admits at most limit requests per key per Window.
type Limiter struct {
	counter Counter
	limit   int
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Limiter. A limit of zero or less disables limiting.
func New(counter Counter, limit int, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		counter: counter,
		limit:   limit,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it fits in the
// current window. Requests over the limit are still counted.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now().UTC()
	start := now.Truncate(Window)
	d := Decision{Allowed: true, Limit: l.limit, ResetAt: start.Add(Window)}
	if l.limit <= 0 {
		return d, nil
	}

	hits, err := l.counter.IncrementRateWindow(ctx, key, start)
	if err != nil {
		return Decision{}, fmt.Errorf("checking rate limit for %s: %w", key, err)
	}

	d.Remaining = max(l.limit-hits, 0)
	if hits > l.limit {
		d.Allowed = false
		l.logger.Debug("rate limit exceeded",
			zap.String("key", key),
			zap.Int("hits", hits),
			zap.Int("limit", l.limit),
		)
	}
	return d, nil
}

// Prune removes counters for windows that closed before the current one.
func (l *Limiter) Prune(ctx context.Context) (int, error) {
	start := l.now().UTC().Truncate(Window)
	n, err := l.counter.PruneRateWindows(ctx, start)
	if err != nil {
		return 0, fmt.Errorf("pruning rate windows: %w", err)
	}
	return n, nil
}
