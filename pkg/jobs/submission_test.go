package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jzx17/jobpoll/pkg/jobs"
	"github.com/jzx17/jobpoll/pkg/poll"
	"github.com/jzx17/jobpoll/pkg/types"
)

func newService(transport jobs.Transport, attempts int) *jobs.Service {
	profile := poll.DefaultConfig()
	profile.InitialDelay = 0
	profile.RetryDelay = time.Millisecond
	profile.UseBackoff = false
	profile.MaxAttempts = attempts

	ocr, admission := profile, profile
	ocr.Name = "ocr"
	admission.Name = "admission"

	return jobs.NewService(transport,
		jobs.WithOCRConfig(ocr),
		jobs.WithAdmissionConfig(admission),
		jobs.WithStatusOptions(poll.WithStatusInterval(time.Millisecond), poll.WithStatusMaxAttempts(attempts)))
}

func TestService_AwaitOCR(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(m *MockTransport)
		wantState jobs.ReportState
		wantMsg   string
	}{
		{
			name: "ready",
			setup: func(m *MockTransport) {
				m.EXPECT().Get(gomock.Any(), "/ocr/s1").Return([]byte(`[{"id":"a","scores":[1]}]`), nil)
			},
			wantState: jobs.StateReady,
			wantMsg:   "scores extracted from 1 files",
		},
		{
			name: "partial",
			setup: func(m *MockTransport) {
				m.EXPECT().Get(gomock.Any(), "/ocr/s1").
					Return([]byte(`[{"id":"a","scores":[1]},{"id":"b","scores":[]}]`), nil).Times(2)
			},
			wantState: jobs.StatePartial,
			wantMsg:   "1 of 2 files processed, " + jobs.StillProcessing,
		},
		{
			name: "pending without extracted files",
			setup: func(m *MockTransport) {
				m.EXPECT().Get(gomock.Any(), "/ocr/s1").Return([]byte(`[{"id":"a"}]`), nil).Times(2)
			},
			wantState: jobs.StatePending,
			wantMsg:   "OCR extraction " + jobs.StillProcessing,
		},
		{
			name: "pending after transient errors only",
			setup: func(m *MockTransport) {
				m.EXPECT().Get(gomock.Any(), "/ocr/s1").Return(nil, errors.New("timeout")).Times(2)
			},
			wantState: jobs.StatePending,
			wantMsg:   "OCR extraction " + jobs.StillProcessing,
		},
		{
			name: "failed on terminal error",
			setup: func(m *MockTransport) {
				m.EXPECT().Get(gomock.Any(), "/ocr/s1").Return(nil, types.Terminal(types.ErrUnauthorized))
			},
			wantState: jobs.StateFailed,
			wantMsg:   "OCR extraction could not be checked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			transport := NewMockTransport(ctrl)
			tt.setup(transport)

			_, report := newService(transport, 2).AwaitOCR(context.Background(), "s1", nil)

			assert.Equal(t, tt.wantState, report.State)
			assert.Contains(t, report.Message, tt.wantMsg)
		})
	}
}

func TestService_AwaitAdmission(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)

	gomock.InOrder(
		transport.EXPECT().Get(gomock.Any(), "/admission/s1").Return([]byte(`{"data":[]}`), nil),
		transport.EXPECT().Get(gomock.Any(), "/admission/s1").Return([]byte(`{"data":[{"name":"CS"},{"name":"Math"}]}`), nil),
	)

	var statuses []string
	result, report := newService(transport, 5).AwaitAdmission(context.Background(), "s1",
		func(p poll.AttemptProgress) { statuses = append(statuses, p.Status) })

	assert.Equal(t, jobs.StateReady, report.State)
	assert.Equal(t, "retrieved 2 programs", report.Message)
	assert.Equal(t, 2, report.Attempts)
	assert.Len(t, result.Programs, 2)
	assert.Equal(t, []string{"processing in progress...", "retrieved 2 programs"}, statuses)
}

func TestService_AwaitAdmission_NeverPartial(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)
	transport.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]byte(`{"data":[]}`), nil).Times(2)

	_, report := newService(transport, 2).AwaitAdmission(context.Background(), "s1", nil)

	assert.Equal(t, jobs.StatePending, report.State)
	assert.Equal(t, poll.ReasonAttemptsExhausted, report.Reason)
	assert.NoError(t, report.Err)
}

func TestService_AwaitOCR_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	transport.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) ([]byte, error) {
		cancel()
		return []byte(`[{"id":"a"}]`), nil
	})

	_, report := newService(transport, 5).AwaitOCR(ctx, "s1", nil)

	assert.Equal(t, jobs.StatePending, report.State)
	assert.Equal(t, poll.ReasonCanceled, report.Reason)
}

func TestService_AwaitPredictionStatus(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantState jobs.ReportState
		wantMsg   string
	}{
		{"completed", `{"status":"completed"}`, jobs.StateReady, "prediction completed"},
		{"failed", `{"status":"failed","message":"no grades"}`, jobs.StateFailed, "prediction failed: no grades"},
		{"still processing", `{"status":"processing"}`, jobs.StatePending, "prediction " + jobs.StillProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			transport := NewMockTransport(ctrl)
			transport.EXPECT().Get(gomock.Any(), "/prediction/p1/status").Return([]byte(tt.body), nil).AnyTimes()

			status, report := newService(transport, 2).AwaitPredictionStatus(context.Background(), "p1", nil)

			assert.Equal(t, tt.wantState, report.State)
			assert.Equal(t, tt.wantMsg, report.Message)
			assert.Equal(t, "p1", status.JobID)
		})
	}
}

func TestService_AwaitPredictionStatus_Unauthorized(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)
	transport.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, types.Terminal(types.ErrUnauthorized))

	_, report := newService(transport, 3).AwaitPredictionStatus(context.Background(), "p1", nil)

	require.Error(t, report.Err)
	assert.Equal(t, jobs.StateFailed, report.State)
}
