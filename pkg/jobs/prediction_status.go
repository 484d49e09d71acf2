package jobs

import (
	"context"
	"strings"

	"github.com/jzx17/jobpoll/pkg/poll"
)

// PredictionStatus is one poll of the prediction status endpoint
type PredictionStatus struct {
	JobID   string
	Status  poll.StatusState
	Message string
}

// ClassifyPredictionStatus maps the status field; unknown values count as processing
func ClassifyPredictionStatus(s PredictionStatus) poll.StatusState {
	switch s.Status {
	case poll.StatusCompleted, poll.StatusFailed:
		return s.Status
	default:
		return poll.StatusProcessing
	}
}

// FetchPredictionStatus performs one GET /prediction/{jobID}/status
func FetchPredictionStatus(t Transport, jobID string) poll.FetchFunc[PredictionStatus] {
	path := "/prediction/" + escape(jobID) + "/status"

	return func(ctx context.Context) (PredictionStatus, error) {
		body, err := t.Get(ctx, path)
		if err != nil {
			return PredictionStatus{}, err
		}
		root, err := parseBody(body)
		if err != nil {
			return PredictionStatus{}, err
		}

		return PredictionStatus{
			JobID:   jobID,
			Status:  poll.StatusState(strings.ToLower(strings.TrimSpace(root.Get("status").String()))),
			Message: root.Get("message").String(),
		}, nil
	}
}

// PollPredictionStatus waits for a prediction job at a constant interval.
// Options are applied after the "prediction" name default.
func PollPredictionStatus(ctx context.Context, t Transport, jobID string, opts ...poll.StatusOption) poll.StatusOutcome[PredictionStatus] {
	opts = append([]poll.StatusOption{poll.WithStatusName("prediction")}, opts...)
	return poll.PollStatus(ctx, FetchPredictionStatus(t, jobID), ClassifyPredictionStatus, opts...)
}
