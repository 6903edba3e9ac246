// Package orchestrator runs one fetch task per book per cycle with retries bounded by a shared deadline.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Vodeneev/sharpedge/internal/parser/parsers"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

const (
	DefaultMaxAttempts = 4
	DefaultBackoffUnit = time.Second
	DefaultTimeout     = 45 * time.Second
)

type Options struct {
	MaxAttempts int
	BackoffUnit time.Duration // delay after attempt n is n*n*BackoffUnit
	Timeout     time.Duration // cycle-wide fetch deadline
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BackoffUnit <= 0 {
		o.BackoffUnit = DefaultBackoffUnit
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Backoff returns the delay after the given 1-based attempt.
func (o Options) Backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * o.BackoffUnit
}

// Observer is told about every attempt. err is nil on success.
type Observer interface {
	FetchAttempt(book string, attempt int, took time.Duration, err error)
}

type Success struct {
	Book         string
	Observations []models.RawOddsObservation
	Attempts     int
	Took         time.Duration
}

// Result holds one entry per book, either in Successes or in Failures.
type Result struct {
	Successes []Success
	Failures  []*models.FetchFailure
	Deadline  time.Time
}

// Degraded reports whether at least one book failed.
func (r Result) Degraded() bool {
	return len(r.Failures) > 0
}

type Orchestrator struct {
	adapters []parsers.Adapter
	opts     Options
	observer Observer
}

func New(adapters []parsers.Adapter, opts Options, observer Observer) *Orchestrator {
	return &Orchestrator{adapters: adapters, opts: opts.withDefaults(), observer: observer}
}

func (o *Orchestrator) Books() []string {
	names := make([]string, len(o.adapters))
	for i, a := range o.adapters {
		names[i] = a.Name()
	}
	return names
}

type taskResult struct {
	index   int
	success *Success
	failure *models.FetchFailure
}

// Run fetches every book concurrently and returns no later than the deadline, even when an
// adapter ignores cancellation. Books still running at the deadline are reported as NETWORK failures.
func (o *Orchestrator) Run(ctx context.Context, scope parsers.Scope) Result {
	deadline := time.Now().Add(o.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	results := make(chan taskResult, len(o.adapters))
	for i, a := range o.adapters {
		go func(i int, a parsers.Adapter) {
			success, failure := o.runTask(ctx, a, scope, deadline)
			results <- taskResult{index: i, success: success, failure: failure}
		}(i, a)
	}

	done := make([]*taskResult, len(o.adapters))
	pending := len(o.adapters)
	for pending > 0 {
		select {
		case r := <-results:
			done[r.index] = &r
			pending--
		case <-ctx.Done():
			pending = 0
		}
	}
	// results that landed together with the deadline
drain:
	for {
		select {
		case r := <-results:
			done[r.index] = &r
		default:
			break drain
		}
	}

	res := Result{Deadline: deadline}
	for i, r := range done {
		switch {
		case r == nil:
			book := o.adapters[i].Name()
			slog.Warn("Book did not finish before cycle deadline", "book", book)
			res.Failures = append(res.Failures, &models.FetchFailure{
				Kind:   models.FailureNetwork,
				Book:   book,
				Detail: "cycle deadline exceeded",
				Err:    context.DeadlineExceeded,
			})
		case r.success != nil:
			res.Successes = append(res.Successes, *r.success)
		default:
			res.Failures = append(res.Failures, r.failure)
		}
	}
	return res
}

func (o *Orchestrator) runTask(ctx context.Context, a parsers.Adapter, scope parsers.Scope, deadline time.Time) (*Success, *models.FetchFailure) {
	book := a.Name()
	begin := time.Now()

	for attempt := 1; ; attempt++ {
		start := time.Now()
		obs, err := a.Fetch(ctx, scope)
		took := time.Since(start)
		if o.observer != nil {
			o.observer.FetchAttempt(book, attempt, took, err)
		}

		if err == nil {
			if attempt > 1 {
				slog.Info("Book fetched after retries", "book", book, "attempt", attempt)
			}
			return &Success{Book: book, Observations: obs, Attempts: attempt, Took: time.Since(begin)}, nil
		}

		failure := models.AsFetchFailure(book, err)
		failure.Attempts = attempt
		logFailure(failure, attempt)

		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && failure.Detail == "" {
				failure.Detail = "cycle deadline exceeded"
			}
			return nil, failure
		}
		if !failure.Kind.Retryable() || attempt >= o.opts.MaxAttempts {
			return nil, failure
		}

		// the next attempt must be able to finish, judged by how long this one took
		delay := o.opts.Backoff(attempt)
		if time.Now().Add(delay + took).After(deadline) {
			slog.Warn("Retry skipped, it would overrun the cycle deadline", "book", book, "attempt", attempt, "delay", delay)
			return nil, failure
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, failure
		case <-timer.C:
		}
	}
}

func logFailure(f *models.FetchFailure, attempt int) {
	attrs := []any{"book", f.Book, "kind", f.Kind, "attempt", attempt, "error", f}
	switch f.Kind {
	case models.FailureAuth:
		slog.Error("Book authentication failed, check credentials", attrs...)
	case models.FailureRateLimited:
		slog.Warn("Book rate limited, skipped until next cycle", append(attrs, "retry_after", f.RetryAfter)...)
	default:
		slog.Warn("Book fetch failed", attrs...)
	}
}
