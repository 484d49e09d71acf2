package poll

import (
	"context"
	"time"
)

// Summary describes a finished polling invocation
type Summary struct {
	Reason   StopReason
	Done     bool
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// EventHandler handles polling events.
//
// Handlers are called synchronously from the polling loop, in attempt order.
type EventHandler interface {
	// OnAttempt is called once per executed attempt, successful or not
	OnAttempt(ctx context.Context, name string, progress AttemptProgress)

	// OnBackoff is called before every inter-attempt wait
	OnBackoff(ctx context.Context, name string, attempt int, delay time.Duration)

	// OnFinish is called exactly once when the invocation ends
	OnFinish(ctx context.Context, name string, summary Summary)
}

// NopEventHandler discards all events
type NopEventHandler struct{}

func (NopEventHandler) OnAttempt(context.Context, string, AttemptProgress) {}
func (NopEventHandler) OnBackoff(context.Context, string, int, time.Duration) {}
func (NopEventHandler) OnFinish(context.Context, string, Summary) {}

// Logger interface for logging
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LoggingEventHandler writes events to a Logger
type LoggingEventHandler struct {
	logger Logger
}

// NewLoggingEventHandler creates a logging event handler
func NewLoggingEventHandler(logger Logger) *LoggingEventHandler {
	return &LoggingEventHandler{logger: logger}
}

// OnAttempt logs a detailed line when item counts are known, a basic one otherwise
func (h *LoggingEventHandler) OnAttempt(ctx context.Context, name string, p AttemptProgress) {
	if h.logger == nil {
		return
	}

	elapsed := p.Elapsed.Seconds()
	switch {
	case p.Err != nil:
		h.logger.Warnf("[%s] attempt %d/%d failed after %.1fs: %v", name, p.Attempt, p.MaxAttempts, elapsed, p.Err)
	case p.HasCounts:
		h.logger.Infof("[%s] attempt %d/%d, %.1fs elapsed: %d/%d processed (%d%%) %s",
			name, p.Attempt, p.MaxAttempts, elapsed, p.Processed, p.Total, p.Percent, p.Status)
	default:
		h.logger.Infof("[%s] attempt %d/%d, %.1fs elapsed", name, p.Attempt, p.MaxAttempts, elapsed)
	}
}

// OnBackoff logs the upcoming wait
func (h *LoggingEventHandler) OnBackoff(ctx context.Context, name string, attempt int, delay time.Duration) {
	if h.logger != nil {
		h.logger.Debugf("[%s] waiting %v before attempt %d", name, delay, attempt+1)
	}
}

// OnFinish logs how the invocation ended
func (h *LoggingEventHandler) OnFinish(ctx context.Context, name string, s Summary) {
	if h.logger == nil {
		return
	}

	switch s.Reason {
	case ReasonCompleted:
		h.logger.Infof("[%s] completed after %d attempts in %v", name, s.Attempts, s.Elapsed)
	case ReasonAttemptsExhausted, ReasonTimeExhausted:
		h.logger.Warnf("[%s] %s after %d attempts in %v, job may still be processing", name, s.Reason, s.Attempts, s.Elapsed)
	case ReasonCanceled:
		h.logger.Infof("[%s] canceled after %d attempts", name, s.Attempts)
	default:
		h.logger.Errorf("[%s] %s after %d attempts: %v", name, s.Reason, s.Attempts, s.Err)
	}
}

// MultiEventHandler fans events out to several handlers
type MultiEventHandler []EventHandler

func (m MultiEventHandler) OnAttempt(ctx context.Context, name string, p AttemptProgress) {
	for _, h := range m {
		h.OnAttempt(ctx, name, p)
	}
}

func (m MultiEventHandler) OnBackoff(ctx context.Context, name string, attempt int, delay time.Duration) {
	for _, h := range m {
		h.OnBackoff(ctx, name, attempt, delay)
	}
}

func (m MultiEventHandler) OnFinish(ctx context.Context, name string, s Summary) {
	for _, h := range m {
		h.OnFinish(ctx, name, s)
	}
}
