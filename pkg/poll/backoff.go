package poll

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// cappedBackOff limits every delay produced by the wrapped schedule
type cappedBackOff struct {
	backoff.BackOff
	maxDelay time.Duration
}

// NextBackOff returns the next delay, never above maxDelay
func (b *cappedBackOff) NextBackOff() time.Duration {
	delay := b.BackOff.NextBackOff()
	if delay == backoff.Stop || delay > b.maxDelay {
		return b.maxDelay
	}
	return delay
}

// newDelaySchedule builds the inter-attempt delay schedule.
//
// With backoff enabled the sequence is RetryDelay, then
// min(previous*BackoffMultiplier, MaxBackoffDelay) for every following wait.
// Without backoff every wait is RetryDelay.
func newDelaySchedule(cfg Config) backoff.BackOff {
	if !cfg.UseBackoff {
		return backoff.NewConstantBackOff(cfg.RetryDelay)
	}

	schedule := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(cfg.RetryDelay),
		backoff.WithMultiplier(cfg.BackoffMultiplier),
		backoff.WithMaxInterval(cfg.MaxBackoffDelay),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	return &cappedBackOff{BackOff: schedule, maxDelay: cfg.MaxBackoffDelay}
}
