package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/minios-linux/xcfill/batch"
)

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls a translation run.
type Options struct {
	// Provider answers the prompts.
	Provider Provider
	// Retry bounds the attempts of one batch.
	Retry Retry
	// Parallel runs batches concurrently.
	Parallel bool
	// MaxConcurrent is the maximum number of batches in flight (default 3).
	MaxConcurrent int
	// RequestDelay is the delay between launching parallel batches.
	RequestDelay time.Duration
	// BreakerThreshold is the number of consecutive failed batches that
	// opens the circuit breaker (default 5).
	BreakerThreshold int
	// BreakerTimeout is how long the breaker stays open (default 60s).
	BreakerTimeout time.Duration
	// SystemPrompt overrides DefaultSystemPrompt.
	SystemPrompt string
	// DryRun fills tasks in memory without saving them.
	DryRun bool
	// OnProgress is called after each batch, done of total.
	OnProgress func(done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// OnError emits error messages during translation.
	OnError func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 3
}

func (o *Options) effectiveBreakerThreshold() int {
	if o.BreakerThreshold > 0 {
		return o.BreakerThreshold
	}
	return 5
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Result describes one batch.
type Result struct {
	Path     string
	Filled   int
	Rejected int
	// Pending counts slots still blank after the run.
	Pending int
	Err     error
}

// Report collects the batch results in task order.
type Report struct {
	Results []Result
}

// Failed returns the batches that ended with an error.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Filled sums the slots filled across all batches.
func (r *Report) Filled() int {
	n := 0
	for _, res := range r.Results {
		n += res.Filled
	}
	return n
}

// Pending sums the slots left blank across all batches.
func (r *Report) Pending() int {
	n := 0
	for _, res := range r.Results {
		n += res.Pending
	}
	return n
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run fills the blank slots of every task. A failing batch is recorded in
// the report and never stops the others; the returned error is reserved for
// a missing provider or a cancelled context.
func Run(ctx context.Context, tasks []*batch.Task, opts Options) (*Report, error) {
	if opts.Provider == nil {
		return nil, errors.New("no translation provider")
	}

	threshold := uint32(opts.effectiveBreakerThreshold())
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    opts.Provider.Name(),
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			opts.log("%s circuit breaker: %s -> %s", name, from, to)
		},
	})

	report := &Report{Results: make([]Result, len(tasks))}
	var mu sync.Mutex
	done := 0

	runOne := func(ctx context.Context, i int) error {
		report.Results[i] = translateTask(ctx, cb, tasks[i], &opts)
		mu.Lock()
		done++
		n := done
		mu.Unlock()
		if opts.OnProgress != nil {
			opts.OnProgress(n, len(tasks))
		}
		return nil
	}

	indices := make([]int, len(tasks))
	for i := range indices {
		indices[i] = i
	}

	if opts.Parallel {
		_ = runParallelGeneric(ctx, indices, opts.effectiveMaxConcurrent(), opts.RequestDelay, runOne)
	} else {
		for _, i := range indices {
			if ctx.Err() != nil {
				break
			}
			_ = runOne(ctx, i)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func translateTask(ctx context.Context, cb *gobreaker.CircuitBreaker, t *batch.Task, opts *Options) Result {
	res := Result{Path: t.Path}
	if t.Pending() == 0 {
		return res
	}

	_, err := cb.Execute(func() (interface{}, error) {
		fr, err := fillTask(ctx, t, opts)
		res.Filled += fr.Filled
		res.Rejected += fr.Rejected
		return nil, err
	})
	res.Pending = t.Pending()
	if err != nil {
		res.Err = err
		opts.logError("%s: %v", label(t), err)
		return res
	}

	if res.Filled > 0 && !opts.DryRun && t.Path != "" {
		if err := t.Save(); err != nil {
			res.Err = err
			opts.logError("%s: %v", label(t), err)
			return res
		}
	}
	opts.log("%s: %d filled, %d pending", label(t), res.Filled, res.Pending)
	return res
}

// fillTask asks the provider for the pending slots of t and folds the reply
// in, retrying replies that yield nothing usable.
func fillTask(ctx context.Context, t *batch.Task, opts *Options) (FoldResult, error) {
	retry := opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, wait time.Duration, err error) {
			opts.log("%s: attempt %d failed (%v), retrying in %v", label(t), attempt, err, wait)
		}
	}

	return Do(ctx, retry, func(ctx context.Context) (FoldResult, error) {
		req, err := BuildRequest(t, opts.SystemPrompt)
		if err != nil {
			return FoldResult{}, err
		}
		text, err := opts.Provider.Complete(ctx, req)
		if err != nil {
			return FoldResult{}, err
		}
		reply, err := ParseResponse(text)
		if err != nil {
			return FoldResult{}, err
		}
		fr := Fold(t, reply)
		if fr.Filled == 0 {
			return fr, fmt.Errorf("%w: no usable translations", ErrMalformedResponse)
		}
		return fr, nil
	})
}

func label(t *batch.Task) string {
	if t.Path != "" {
		return t.Path
	}
	return fmt.Sprintf("batch of %d strings", len(t.Entries))
}

// ---------------------------------------------------------------------------
// Generic parallel runner
// ---------------------------------------------------------------------------

// runParallelGeneric runs any typed tasks in parallel with concurrency limit and delay.
func runParallelGeneric[T any](ctx context.Context, tasks []T, maxConcurrent int, delay time.Duration, fn func(context.Context, T) error) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

launch:
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		// Delay between launching tasks (skip first)
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				break launch
			case <-time.After(delay):
			}
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(t T) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := fn(ctx, t); err != nil {
				errOnce.Do(func() {
					firstErr = err
				})
			}
		}(task)
	}

	wg.Wait()
	return firstErr
}
