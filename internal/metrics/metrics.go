// Package metrics exports polling events to Prometheus
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jzx17/jobpoll/pkg/poll"
)

// EventHandler implements poll.EventHandler on Prometheus collectors
type EventHandler struct {
	attempts *prometheus.CounterVec
	errors   *prometheus.CounterVec
	waits    *prometheus.HistogramVec
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ poll.EventHandler = (*EventHandler)(nil)

// NewEventHandler registers the polling collectors with reg
func NewEventHandler(reg prometheus.Registerer) *EventHandler {
	factory := promauto.With(reg)

	return &EventHandler{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpoll_attempts_total",
				Help: "Total number of fetch attempts",
			},
			[]string{"job"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpoll_fetch_errors_total",
				Help: "Total number of failed fetch attempts",
			},
			[]string{"job"},
		),
		waits: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobpoll_backoff_seconds",
				Help:    "Delays waited between attempts",
				Buckets: []float64{.01, .1, .5, 1, 2, 3, 5, 7.5, 10, 30},
			},
			[]string{"job"},
		),
		finished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobpoll_finished_total",
				Help: "Total number of finished polling invocations by stop reason",
			},
			[]string{"job", "reason"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobpoll_duration_seconds",
				Help:    "Elapsed time of finished polling invocations",
				Buckets: []float64{1, 5, 10, 30, 60, 90, 120, 180, 300},
			},
			[]string{"job"},
		),
	}
}

func (h *EventHandler) OnAttempt(_ context.Context, name string, p poll.AttemptProgress) {
	h.attempts.WithLabelValues(name).Inc()
	if p.Err != nil {
		h.errors.WithLabelValues(name).Inc()
	}
}

func (h *EventHandler) OnBackoff(_ context.Context, name string, _ int, delay time.Duration) {
	h.waits.WithLabelValues(name).Observe(delay.Seconds())
}

func (h *EventHandler) OnFinish(_ context.Context, name string, s poll.Summary) {
	h.finished.WithLabelValues(name, string(s.Reason)).Inc()
	h.duration.WithLabelValues(name).Observe(s.Elapsed.Seconds())
}
