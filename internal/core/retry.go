package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy configures Retry. MaxRetries counts extra attempts after the
// first one; the delay doubles after every failure up to MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	MaxDelay   time.Duration
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	if attempt > 20 {
		attempt = 20
	}
	d := p.Delay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Retry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs fn until it succeeds, returns a Permanent error, the policy is
// exhausted, or ctx is done. The last error is returned unwrapped from any
// Permanent marker.
func Retry(ctx context.Context, p RetryPolicy, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil || attempt >= p.MaxRetries {
			return err
		}

		wait := p.backoff(attempt)
		if logger != nil {
			logger.Debug("retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
