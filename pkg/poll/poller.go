package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jzx17/jobpoll/pkg/types"
)

// StopReason explains why a polling invocation ended
type StopReason string

const (
	ReasonCompleted         StopReason = "completed"
	ReasonAttemptsExhausted StopReason = "attempts_exhausted"
	ReasonTimeExhausted     StopReason = "time_exhausted"
	ReasonCanceled          StopReason = "canceled"
	ReasonTerminalError     StopReason = "terminal_error"
	ReasonInternalError     StopReason = "internal_error"
)

// FetchFunc performs one poll of a job-status endpoint
type FetchFunc[T any] func(ctx context.Context) (T, error)

// call runs one fetch; a panic is returned as an error wrapping types.ErrPanic
// so it consumes the attempt like any other retryable failure.
func (f FetchFunc[T]) call(ctx context.Context) (resp T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			resp, err = zero, fmt.Errorf("%w: fetch: %v", types.ErrPanic, r)
		}
	}()
	return f(ctx)
}

// Job specializes the engine to one backend capability.
//
// Fetch and IsDone are required, ExtractProgress is optional. None of them
// may sleep or retry; all timing belongs to the engine.
type Job[T any] struct {
	Fetch           FetchFunc[T]
	IsDone          func(T) bool
	ExtractProgress func(T) ItemProgress
}

func (j Job[T]) validate() error {
	if j.Fetch == nil {
		return fmt.Errorf("%w: job has no fetch function", types.ErrInvalidConfig)
	}
	if j.IsDone == nil {
		return fmt.Errorf("%w: job has no completion predicate", types.ErrInvalidConfig)
	}
	return nil
}

// Outcome is the result of one polling invocation.
//
// HasResponse is false when no attempt ever produced a response. A response
// that is present but not Done means the job may still be processing.
type Outcome[T any] struct {
	Response    T
	HasResponse bool
	Done        bool
	Attempts    int
	Elapsed     time.Duration
	Reason      StopReason
	Err         error // set for canceled, terminal and internal stops only
}

// Pending reports whether a response was obtained but the job is not done
func (o Outcome[T]) Pending() bool {
	return o.HasResponse && !o.Done
}

// Summary returns the outcome without its response
func (o Outcome[T]) Summary() Summary {
	return Summary{
		Reason:   o.Reason,
		Done:     o.Done,
		Attempts: o.Attempts,
		Elapsed:  o.Elapsed,
		Err:      o.Err,
	}
}

// poller holds the state of a single invocation
type poller[T any] struct {
	job     Job[T]
	cfg     Config
	attempt int
	start   time.Time
	last    T
	hasLast bool
}

// ProcessWithRetry polls job until IsDone accepts a response or a budget runs out.
//
// It waits InitialDelay, then performs at most MaxAttempts fetches. The
// elapsed-time budget is checked before every attempt, so a slow fetch can
// overrun it by one attempt. Fetch errors consume an attempt and polling goes
// on unless the classifier reports them terminal. Budget exhaustion is not an
// error: the last response, if any, is returned. A panicking Fetch is a failed
// attempt. Panics elsewhere in the loop (predicates, callbacks) are recovered
// and reported as ReasonInternalError with no response.
func ProcessWithRetry[T any](ctx context.Context, job Job[T], opts ...Option) (out Outcome[T]) {
	p := &poller[T]{job: job, cfg: NewConfig(opts...)}

	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{
				Attempts: p.attempt,
				Elapsed:  p.elapsed(),
				Reason:   ReasonInternalError,
				Err:      fmt.Errorf("%w: %v", types.ErrPanic, r),
			}
			p.finish(ctx, out.Summary())
		}
	}()

	out = p.run(ctx)
	p.finish(ctx, out.Summary())
	return out
}

// ProcessAsync runs ProcessWithRetry in its own goroutine
func ProcessAsync[T any](ctx context.Context, job Job[T], opts ...Option) <-chan types.Result[Outcome[T]] {
	resultChan := make(chan types.Result[Outcome[T]], 1)
	clock := NewConfig(opts...).Clock

	go func() {
		defer close(resultChan)

		start := clock.Now()
		outcome := ProcessWithRetry(ctx, job, opts...)

		resultChan <- types.Result[Outcome[T]]{
			Value:    outcome,
			Error:    outcome.Err,
			Duration: clock.Since(start),
		}
	}()

	return resultChan
}

func (p *poller[T]) run(ctx context.Context) Outcome[T] {
	if err := p.job.validate(); err != nil {
		return p.outcome(ReasonInternalError, err)
	}

	if !p.wait(ctx, p.cfg.InitialDelay) {
		return p.outcome(ReasonCanceled, ctx.Err())
	}

	p.start = p.cfg.Clock.Now()
	schedule := newDelaySchedule(p.cfg)

	for p.attempt < p.cfg.MaxAttempts {
		elapsed := p.elapsed()
		if elapsed > p.cfg.MaxPollingTime {
			return p.outcome(ReasonTimeExhausted, nil)
		}

		p.attempt++
		progress := AttemptProgress{
			Attempt:        p.attempt,
			MaxAttempts:    p.cfg.MaxAttempts,
			Elapsed:        elapsed,
			MaxPollingTime: p.cfg.MaxPollingTime,
		}

		resp, err := p.job.Fetch.call(ctx)
		if err != nil {
			progress.Status = StatusRetryingAfterError
			progress.Err = err
			p.report(ctx, progress)

			if ctxErr := ctx.Err(); ctxErr != nil {
				return p.outcome(ReasonCanceled, ctxErr)
			}
			if p.cfg.Classifier(err) {
				return p.outcome(ReasonTerminalError, err)
			}
			if !p.backoff(ctx, schedule, types.GetRetryDelay(err)) {
				return p.outcome(ReasonCanceled, ctx.Err())
			}
			continue
		}

		p.last = resp
		p.hasLast = true

		if p.job.ExtractProgress != nil {
			progress = progress.withItems(p.job.ExtractProgress(resp))
		}
		p.report(ctx, progress)

		if p.job.IsDone(resp) {
			out := p.outcome(ReasonCompleted, nil)
			out.Done = true
			return out
		}

		if !p.backoff(ctx, schedule, 0) {
			return p.outcome(ReasonCanceled, ctx.Err())
		}
	}

	return p.outcome(ReasonAttemptsExhausted, nil)
}

// backoff waits the next scheduled delay when attempts remain.
// A server-suggested delay can lengthen the wait up to MaxBackoffDelay.
func (p *poller[T]) backoff(ctx context.Context, schedule backoff.BackOff, hint time.Duration) bool {
	if p.attempt >= p.cfg.MaxAttempts {
		return true
	}

	delay := schedule.NextBackOff()
	if hint > delay {
		delay = min(hint, max(delay, p.cfg.MaxBackoffDelay))
	}

	p.cfg.Events.OnBackoff(ctx, p.cfg.Name, p.attempt, delay)
	return p.wait(ctx, delay)
}

// wait blocks for d or until ctx is done, reporting whether the full delay elapsed
func (p *poller[T]) wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}

	timer := p.cfg.Clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C():
		return true
	}
}

func (p *poller[T]) report(ctx context.Context, progress AttemptProgress) {
	report(ctx, p.cfg.Name, p.cfg.Events, p.cfg.OnProgress, progress)
}

func (p *poller[T]) finish(ctx context.Context, summary Summary) {
	notifyFinish(ctx, p.cfg.Events, p.cfg.Name, summary)
}

func (p *poller[T]) elapsed() time.Duration {
	if p.start.IsZero() {
		return 0
	}
	return p.cfg.Clock.Since(p.start)
}

func (p *poller[T]) outcome(reason StopReason, err error) Outcome[T] {
	return Outcome[T]{
		Response:    p.last,
		HasResponse: p.hasLast,
		Attempts:    p.attempt,
		Elapsed:     p.elapsed(),
		Reason:      reason,
		Err:         err,
	}
}
