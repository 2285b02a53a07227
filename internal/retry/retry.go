// Package retry runs a write with a fixed number of attempts and linear
// backoff (attempt x BaseDelay). There is no jitter and no circuit breaker.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// OnRetry is called after each failed attempt that will be retried.
	OnRetry func(attempt int, err error)
	// Sleep defaults to a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default is three attempts with 500ms linear steps.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do calls fn until it succeeds or MaxAttempts is reached. Between attempt n
// and n+1 it waits n*BaseDelay. Context cancellation stops the loop early.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := sleep(ctx, time.Duration(attempt)*p.BaseDelay); err != nil {
			return errors.Join(last, err)
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
