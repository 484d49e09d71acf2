package poll

import (
	"math"
	"time"
)

// Status texts reported when an adapter supplies none
const (
	StatusRetryingAfterError = "retrying after error"
	StatusWaiting            = "waiting for job"
)

// AttemptProgress describes one executed attempt
type AttemptProgress struct {
	Attempt        int           // 1-based attempt number
	MaxAttempts    int           // configured attempt budget
	Elapsed        time.Duration // time since the loop started
	MaxPollingTime time.Duration // configured time budget

	HasCounts bool // Processed/Total/Percent are meaningful
	Processed int
	Total     int
	Percent   int // 0..100

	Status string
	Err    error // fetch error of a failed attempt
}

// ItemProgress is what an adapter extracts from a single response
type ItemProgress struct {
	Processed int
	Total     int
	Status    string
}

// ProgressFunc receives progress once per executed attempt
type ProgressFunc func(AttemptProgress)

// Percent returns round(processed/total*100), or 0 when total is not positive
func Percent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(processed) / float64(total) * 100))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// withItems merges adapter progress into the attempt record
func (p AttemptProgress) withItems(items ItemProgress) AttemptProgress {
	p.HasCounts = true
	p.Processed = items.Processed
	p.Total = items.Total
	p.Percent = Percent(items.Processed, items.Total)
	if items.Status != "" {
		p.Status = items.Status
	}
	return p
}
