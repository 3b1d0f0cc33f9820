package translate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

// recordSleep returns a Retry that records its waits instead of sleeping.
func recordSleep(waits *[]time.Duration) Retry {
	return Retry{Sleep: func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}}
}

func TestClassify(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want Outcome
	}{
		{"nil", live, nil, Success},
		{"rate limited", live, &StatusError{Code: 429, Err: errors.New("slow down")}, Retryable},
		{"server error", live, &StatusError{Code: 503, Err: errors.New("unavailable")}, Retryable},
		{"request timeout", live, &StatusError{Code: 408, Err: errors.New("timeout")}, Retryable},
		{"unauthorized", live, &StatusError{Code: 401, Err: errors.New("bad key")}, Fatal},
		{"bad request", live, &StatusError{Code: 400, Err: errors.New("bad request")}, Fatal},
		{"wrapped status", live, fmt.Errorf("call: %w", &StatusError{Code: 403, Err: errors.New("forbidden")}), Fatal},
		{"malformed", live, fmt.Errorf("%w: not json", ErrMalformedResponse), Retryable},
		{"transport", live, errors.New("connection reset by peer"), Retryable},
		{"request deadline", live, context.DeadlineExceeded, Retryable},
		{"caller cancelled", cancelled, errors.New("anything"), Fatal},
		{"canceled error", live, context.Canceled, Fatal},
		{"breaker open", live, gobreaker.ErrOpenState, Fatal},
		{"no key", live, fmt.Errorf("Groq: %w", ErrNoAPIKey), Fatal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.ctx, tc.err); got != tc.want {
				t.Errorf("Classify() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	var waits []time.Duration
	calls := 0
	got, err := Do(context.Background(), recordSleep(&waits), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{Code: 503, Err: errors.New("unavailable")}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls", got, calls)
	}
	if want := []time.Duration{2 * time.Second, 4 * time.Second}; !reflect.DeepEqual(waits, want) {
		t.Errorf("waits = %v, want %v", waits, want)
	}
}

func TestDo_Exhausted(t *testing.T) {
	var waits []time.Duration
	calls := 0
	_, err := Do(context.Background(), recordSleep(&waits), func(ctx context.Context) (int, error) {
		calls++
		return 0, &StatusError{Code: 500, Err: errors.New("boom")}
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 500 {
		t.Errorf("last error not wrapped: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(waits) != 2 {
		t.Errorf("waits = %v, want 2 waits", waits)
	}
}

func TestDo_CustomAttemptsAndDelay(t *testing.T) {
	var waits []time.Duration
	r := recordSleep(&waits)
	r.Attempts = 4
	r.Delay = 100 * time.Millisecond

	var retried []int
	r.OnRetry = func(attempt int, wait time.Duration, err error) {
		retried = append(retried, attempt)
	}

	_, err := Do(context.Background(), r, func(ctx context.Context) (int, error) {
		return 0, errors.New("network down")
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v", err)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if !reflect.DeepEqual(waits, want) {
		t.Errorf("waits = %v, want %v", waits, want)
	}
	if !reflect.DeepEqual(retried, []int{1, 2, 3}) {
		t.Errorf("OnRetry attempts = %v", retried)
	}
}

func TestDo_FatalStops(t *testing.T) {
	var waits []time.Duration
	calls := 0
	_, err := Do(context.Background(), recordSleep(&waits), func(ctx context.Context) (int, error) {
		calls++
		return 0, &StatusError{Code: 401, Err: errors.New("invalid key")}
	})
	if err == nil || errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want the fatal error itself", err)
	}
	if calls != 1 || len(waits) != 0 {
		t.Errorf("calls = %d, waits = %v", calls, waits)
	}
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := Retry{Sleep: func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}}
	calls := 0
	_, err := Do(ctx, r, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_DefaultSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := (Retry{}).sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("sleep = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleep did not return on cancellation")
	}
}
