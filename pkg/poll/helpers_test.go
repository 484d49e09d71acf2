package poll

import (
	"context"
	"sync"
	"time"
)

// recordingHandler captures every event for assertions
type recordingHandler struct {
	mu        sync.Mutex
	attempts  []AttemptProgress
	delays    []time.Duration
	summaries []Summary
}

func (h *recordingHandler) OnAttempt(_ context.Context, _ string, p AttemptProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts = append(h.attempts, p)
}

func (h *recordingHandler) OnBackoff(_ context.Context, _ string, _ int, delay time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delays = append(h.delays, delay)
}

func (h *recordingHandler) OnFinish(_ context.Context, _ string, s Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summaries = append(h.summaries, s)
}

func (h *recordingHandler) Delays() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.delays...)
}

func (h *recordingHandler) Attempts() []AttemptProgress {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]AttemptProgress(nil), h.attempts...)
}

func (h *recordingHandler) Summaries() []Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Summary(nil), h.summaries...)
}

type doneFlag struct {
	Done bool
}

// fastOptions keeps real-clock tests quick
func fastOptions(extra ...Option) []Option {
	return append([]Option{
		WithInitialDelay(0),
		WithRetryDelay(5 * time.Millisecond),
		WithBackoff(false),
		WithMaxPollingTime(5 * time.Second),
	}, extra...)
}
