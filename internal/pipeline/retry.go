package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const backoffBase = 100 * time.Millisecond

// SleepFunc is the suspension point used between retries. Production code
// uses Sleep; tests inject a no-op to run backoff logic without wall-clock
// waits.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d or until the context is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ItemError records one item that exhausted its retries.
type ItemError[T any] struct {
	Item     T
	Err      error
	Attempts int
}

type RetryOptions struct {
	MaxRetries int
	Sleep      SleepFunc
}

// ProcessWithRetry runs fn over items sequentially, retrying each item up to
// MaxRetries times with exponential backoff (2^attempt * 100ms). An item that
// eventually succeeds lands in results; an item that exhausts its retries is
// returned in the error list, never thrown — the caller decides how to treat
// partial failure.
func ProcessWithRetry[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error), opts RetryOptions) ([]R, []ItemError[T], error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	results := make([]R, 0, len(items))
	var failures []ItemError[T]

	for _, item := range items {
		var lastErr error
		attempts := 0
		for retry := 0; retry <= opts.MaxRetries; retry++ {
			if err := ctx.Err(); err != nil {
				return results, failures, err
			}
			if retry > 0 {
				delay := backoffBase * (1 << (retry - 1))
				if err := sleep(ctx, delay); err != nil {
					return results, failures, err
				}
			}
			attempts++
			res, err := fn(ctx, item)
			if err == nil {
				results = append(results, res)
				lastErr = nil
				break
			}
			lastErr = err
		}
		if lastErr != nil {
			failures = append(failures, ItemError[T]{Item: item, Err: lastErr, Attempts: attempts})
		}
	}
	return results, failures, nil
}

type BatchOptions struct {
	BatchSize   int
	Concurrency int
	// FailFast aborts the remaining batches on the first item failure.
	// Otherwise failures are collected and processing continues.
	FailFast bool
}

// BatchProcess splits items into batches of BatchSize and, within each batch,
// runs windows of Concurrency items in parallel. A window fully settles
// before the next one starts, which keeps the number of in-flight calls
// bounded and attributable.
func BatchProcess[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error), opts BatchOptions) ([]R, []ItemError[T], error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(items)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var results []R
	var failures []ItemError[T]

	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		batch := items[start:end]

		for w := 0; w < len(batch); w += concurrency {
			wEnd := min(w+concurrency, len(batch))
			window := batch[w:wEnd]

			// One pre-allocated slot per item; goroutines never share slots,
			// and returning nil keeps the group in all-settled mode.
			windowResults := make([]*R, len(window))
			windowErrs := make([]error, len(window))

			eg, egCtx := errgroup.WithContext(ctx)
			for i, item := range window {
				i, item := i, item
				eg.Go(func() error {
					res, err := fn(egCtx, item)
					if err != nil {
						windowErrs[i] = err
						return nil
					}
					windowResults[i] = &res
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return results, failures, err
			}
			if err := ctx.Err(); err != nil {
				return results, failures, err
			}

			for i := range window {
				if windowErrs[i] != nil {
					failures = append(failures, ItemError[T]{Item: window[i], Err: windowErrs[i], Attempts: 1})
					if opts.FailFast {
						return results, failures, fmt.Errorf("batch item failed: %w", windowErrs[i])
					}
					continue
				}
				results = append(results, *windowResults[i])
			}
		}
	}
	return results, failures, nil
}
