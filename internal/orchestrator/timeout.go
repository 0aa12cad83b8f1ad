package orchestrator

import (
	"context"
	"fmt"
	"time"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

// timedInference bounds every Generate call by the per-call timeout.
type timedInference struct {
	next    ports.InferenceClient
	timeout time.Duration
}

var _ ports.InferenceClient = timedInference{}

func (c timedInference) Generate(ctx context.Context, prompt ports.Prompt, opts ports.InferenceOptions) (string, error) {
	return callWithTimeout(ctx, c.timeout, "inference", func(ctx context.Context) (string, error) {
		return c.next.Generate(ctx, prompt, opts)
	})
}

// timedSearch bounds every Query call by the per-call timeout.
type timedSearch struct {
	next    ports.SearchClient
	timeout time.Duration
}

var _ ports.SearchClient = timedSearch{}

func (c timedSearch) Query(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error) {
	return callWithTimeout(ctx, c.timeout, "search", func(ctx context.Context) ([]domain.SearchHit, error) {
		return c.next.Query(ctx, text, maxResults)
	})
}

// callWithTimeout runs fn in its own goroutine and stops waiting once the
// timeout fires or the run is canceled, whether or not fn honors its context.
// A timeout is transient; run cancellation is returned as the context error.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: &domain.FatalError{Op: op, Err: fmt.Errorf("panic: %v", p)}}
			}
		}()
		v, err := fn(callCtx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil {
			return r.val, nil
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if callCtx.Err() != nil {
			return zero, &domain.TransientError{Op: op, Err: fmt.Errorf("call exceeded %s: %w", timeout, r.err)}
		}
		return zero, domain.Classify(op, r.err)
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, &domain.TransientError{Op: op, Err: fmt.Errorf("call exceeded %s: %w", timeout, context.DeadlineExceeded)}
	}
}
