package provider

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds how often a failed provider call is repeated.
// The zero value makes exactly one attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	Logger     *slog.Logger
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. The delay doubles after each failed attempt.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := p.Backoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || attempt >= p.MaxRetries || !Retryable(err) {
			return err
		}
		if p.Logger != nil {
			p.Logger.Warn("provider call failed, retrying",
				"op", op, "attempt", attempt+1, "class", ClassifyError(err), "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
