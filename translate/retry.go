package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrExhausted is returned when every attempt of a call failed with a
	// retryable error.
	ErrExhausted = errors.New("retries exhausted")
	// ErrMalformedResponse marks a reply that is not usable JSON.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Outcome classifies the result of one attempt.
type Outcome int

const (
	Success Outcome = iota
	Retryable
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Classify maps an attempt's error to an Outcome. ctx is the caller's
// context: once it is done nothing is retried.
func Classify(ctx context.Context, err error) Outcome {
	if err == nil {
		return Success
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Fatal
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Fatal
	}
	if errors.Is(err, ErrNoAPIKey) {
		return Fatal
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests,
			se.Code == http.StatusRequestTimeout,
			se.Code >= 500:
			return Retryable
		case se.Code >= 400:
			return Fatal
		}
	}
	// Per-request timeouts, transport failures and malformed replies.
	return Retryable
}

// Retry configures the bounded retry loop.
type Retry struct {
	// Attempts is the total number of calls, including the first (default 3).
	Attempts int
	// Delay is the wait before the first retry; it doubles after each retry
	// (default 2s).
	Delay time.Duration
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

func (r Retry) attempts() int {
	if r.Attempts > 0 {
		return r.Attempts
	}
	return 3
}

func (r Retry) delay() time.Duration {
	if r.Delay > 0 {
		return r.Delay
	}
	return 2 * time.Second
}

func (r Retry) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
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

// Do calls fn until it succeeds, fails fatally or runs out of attempts.
func Do[T any](ctx context.Context, r Retry, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := r.attempts()
	wait := r.delay()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		switch Classify(ctx, err) {
		case Success:
			return v, nil
		case Fatal:
			return zero, err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, wait, err)
		}
		if err := r.sleep(ctx, wait); err != nil {
			return zero, err
		}
		wait *= 2
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
