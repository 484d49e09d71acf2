package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/jzx17/jobpoll/pkg/types"
)

// Status poller defaults
const (
	DefaultStatusInterval    = 2 * time.Second
	DefaultStatusMaxAttempts = 15
)

// StatusState is the binary job status reported by a status endpoint
type StatusState string

const (
	StatusCompleted  StatusState = "completed"
	StatusProcessing StatusState = "processing"
	StatusFailed     StatusState = "failed"
)

// Terminal reports whether polling can stop on this state
func (s StatusState) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StatusConfig configures the fixed-interval status poller
type StatusConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Name        string
	OnProgress  ProgressFunc
	Events      EventHandler
	Clock       types.Clock
	Classifier  ErrorClassifier
}

// StatusOption is a configuration option for PollStatus
type StatusOption func(*StatusConfig)

// WithStatusInterval sets the constant polling interval
func WithStatusInterval(d time.Duration) StatusOption {
	return func(c *StatusConfig) {
		c.Interval = d
	}
}

// WithStatusMaxAttempts sets the attempt cap
func WithStatusMaxAttempts(n int) StatusOption {
	return func(c *StatusConfig) {
		c.MaxAttempts = n
	}
}

// WithStatusName sets the tag used in events and logs
func WithStatusName(name string) StatusOption {
	return func(c *StatusConfig) {
		c.Name = name
	}
}

// WithStatusProgress sets the progress callback
func WithStatusProgress(fn ProgressFunc) StatusOption {
	return func(c *StatusConfig) {
		c.OnProgress = fn
	}
}

// WithStatusEventHandler sets the event handler
func WithStatusEventHandler(handler EventHandler) StatusOption {
	return func(c *StatusConfig) {
		c.Events = handler
	}
}

// WithStatusClock sets the clock for time operations
func WithStatusClock(clock types.Clock) StatusOption {
	return func(c *StatusConfig) {
		c.Clock = clock
	}
}

// WithStatusErrorClassifier sets the terminal-error classifier
func WithStatusErrorClassifier(classifier ErrorClassifier) StatusOption {
	return func(c *StatusConfig) {
		c.Classifier = classifier
	}
}

func newStatusConfig(opts []StatusOption) StatusConfig {
	cfg := StatusConfig{
		Interval:    DefaultStatusInterval,
		MaxAttempts: DefaultStatusMaxAttempts,
		Name:        "status",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultStatusInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultStatusMaxAttempts
	}
	if cfg.Events == nil {
		cfg.Events = NopEventHandler{}
	}
	if cfg.Clock == nil {
		cfg.Clock = types.NewRealClock()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = types.IsTerminal
	}
	return cfg
}

// StatusOutcome is the result of PollStatus
type StatusOutcome[T any] struct {
	Response    T
	HasResponse bool
	State       StatusState // last observed state, empty if none was observed
	Attempts    int
	TimedOut    bool // the cap was reached while the job was still processing
	Reason      StopReason
	Err         error
}

// PollStatus polls a binary status at a constant interval without backoff.
//
// The first fetch happens immediately. Polling returns as soon as classify
// reports completed or failed. After MaxAttempts fetches without a terminal
// state the outcome is TimedOut with the last response. Fetch errors and
// panics inside fetch consume an attempt; terminal errors stop polling.
func PollStatus[T any](ctx context.Context, fetch FetchFunc[T], classify func(T) StatusState, opts ...StatusOption) (out StatusOutcome[T]) {
	cfg := newStatusConfig(opts)
	start := cfg.Clock.Now()
	reason := ReasonCompleted

	defer func() {
		if r := recover(); r != nil {
			out = StatusOutcome[T]{
				Attempts: out.Attempts,
				Err:      fmt.Errorf("%w: %v", types.ErrPanic, r),
			}
			reason = ReasonInternalError
		}
		out.Reason = reason
		notifyFinish(ctx, cfg.Events, cfg.Name, Summary{
			Reason:   reason,
			Done:     out.State == StatusCompleted,
			Attempts: out.Attempts,
			Elapsed:  cfg.Clock.Since(start),
			Err:      out.Err,
		})
	}()

	ticker := cfg.Clock.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for out.Attempts < cfg.MaxAttempts {
		if out.Attempts > 0 {
			select {
			case <-ctx.Done():
				out.Err = ctx.Err()
				reason = ReasonCanceled
				return out
			case <-ticker.C():
			}
		}

		out.Attempts++
		progress := AttemptProgress{
			Attempt:     out.Attempts,
			MaxAttempts: cfg.MaxAttempts,
			Elapsed:     cfg.Clock.Since(start),
		}

		resp, err := fetch.call(ctx)
		if err != nil {
			progress.Status = StatusRetryingAfterError
			progress.Err = err
			report(ctx, cfg.Name, cfg.Events, cfg.OnProgress, progress)

			if ctxErr := ctx.Err(); ctxErr != nil {
				out.Err = ctxErr
				reason = ReasonCanceled
				return out
			}
			if cfg.Classifier(err) {
				out.Err = err
				reason = ReasonTerminalError
				return out
			}
			continue
		}

		out.Response = resp
		out.HasResponse = true
		out.State = classify(resp)

		progress.Status = string(out.State)
		report(ctx, cfg.Name, cfg.Events, cfg.OnProgress, progress)

		if out.State.Terminal() {
			return out
		}
	}

	out.TimedOut = true
	reason = ReasonAttemptsExhausted
	return out
}

// report delivers one attempt record to the event handler and the progress callback
func report(ctx context.Context, name string, events EventHandler, onProgress ProgressFunc, progress AttemptProgress) {
	events.OnAttempt(ctx, name, progress)
	if onProgress != nil {
		onProgress(progress)
	}
}

// notifyFinish delivers the final summary; a panicking handler cannot change the result
func notifyFinish(ctx context.Context, events EventHandler, name string, summary Summary) {
	defer func() {
		_ = recover()
	}()
	events.OnFinish(ctx, name, summary)
}
