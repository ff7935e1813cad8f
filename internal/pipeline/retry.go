package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
)

// retryPolicy bounds adapter retries. Transient and rate-limited failures
// are retried with exponential backoff; a backend-suggested delay extends
// the computed one, never shortens it.
type retryPolicy struct {
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	sleep       func(context.Context, time.Duration) error
}

func policyFromConfig(cfg config.RetryConfig) retryPolicy {
	return retryPolicy{
		maxAttempts: cfg.MaxAttempts,
		initial:     time.Duration(cfg.InitialBackoffMS) * time.Millisecond,
		max:         time.Duration(cfg.MaxBackoffMS) * time.Millisecond,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs op until success, a permanent failure, attempt exhaustion, or
// context cancellation.
func (p retryPolicy) do(ctx context.Context, op func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initial
	b.MaxInterval = p.max

	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !fault.Retryable(err) {
			return err
		}
		if attempt >= p.maxAttempts {
			return err
		}
		delay := b.NextBackOff()
		if delay > p.max {
			delay = p.max
		}
		if suggested := fault.RetryAfter(err); suggested > delay {
			delay = suggested
		}
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
}
