package jobs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jzx17/jobpoll/pkg/jobs"
	"github.com/jzx17/jobpoll/pkg/poll"
)

func TestAdmissionJob_DoneShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantDone bool
		wantLen  int
	}{
		{"no data field", `{"status":"processing"}`, false, 0},
		{"null data", `{"data":null}`, false, 0},
		{"empty list", `{"data":[]}`, false, 0},
		{"list", `{"data":[{"program_name":"CS","university":"ETH","probability":0.82}]}`, true, 1},
		{"empty page", `{"data":{"content":[],"totalElements":0}}`, false, 0},
		{"page", `{"data":{"content":[{"name":"Math"},{"name":"Physics"}],"totalElements":2}}`, true, 2},
		{"nested list", `{"data":{"recommendations":[{"programName":"Law"}]}}`, true, 1},
		{"string data", `{"status":"processing","data":"processing"}`, false, 0},
		{"numeric data", `{"data":0}`, false, 0},
		{"boolean data", `{"data":false}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			transport := jobsTransport(ctrl, tt.body)

			job := jobs.AdmissionJob(transport, "s1")
			resp, err := job.Fetch(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantDone, job.IsDone(resp))
			assert.Len(t, resp.Programs, tt.wantLen)
		})
	}
}

func jobsTransport(ctrl *gomock.Controller, body string) *MockTransport {
	transport := NewMockTransport(ctrl)
	transport.EXPECT().Get(gomock.Any(), "/admission/s1").Return([]byte(body), nil)
	return transport
}

func TestAdmissionProgress(t *testing.T) {
	pending := jobs.AdmissionProgress(jobs.AdmissionResult{})
	assert.Equal(t, poll.ItemProgress{Processed: 0, Total: 1, Status: "processing in progress..."}, pending)

	ready := jobs.AdmissionProgress(jobs.AdmissionResult{Programs: []jobs.Program{{Name: "CS"}, {Name: "Math"}}})
	assert.Equal(t, poll.ItemProgress{Processed: 1, Total: 1, Status: "retrieved 2 programs"}, ready)
}

func TestAdmissionJob_ParsesPrograms(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := jobsTransport(ctrl, `{"data":[{"program_name":"CS","university":"ETH","probability":0.82},"Architecture"]}`)

	out := poll.ProcessWithRetry(context.Background(), jobs.AdmissionJob(transport, "s1"), fast()...)

	require.True(t, out.Done)
	require.Len(t, out.Response.Programs, 2)
	assert.Equal(t, jobs.Program{Name: "CS", University: "ETH", Probability: 0.82}, out.Response.Programs[0])
	assert.Equal(t, "Architecture", out.Response.Programs[1].Name)
}

func TestAdmissionJob_ScalarDataIsStillProcessing(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)
	gomock.InOrder(
		transport.EXPECT().Get(gomock.Any(), "/admission/s2").Return([]byte(`{"data":"processing"}`), nil),
		transport.EXPECT().Get(gomock.Any(), "/admission/s2").Return([]byte(`{"data":[{"name":"Law"}]}`), nil),
	)

	var statuses []string
	out := poll.ProcessWithRetry(context.Background(), jobs.AdmissionJob(transport, "s2"),
		fast(poll.WithProgress(func(p poll.AttemptProgress) {
			assert.NoError(t, p.Err)
			statuses = append(statuses, p.Status)
		}))...)

	require.True(t, out.Done)
	assert.Equal(t, []string{"processing in progress...", "retrieved 1 programs"}, statuses)
}

func TestAdmissionJob_ExhaustionKeepsLastResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)
	transport.EXPECT().Get(gomock.Any(), "/admission/s9").Return([]byte(`{"data":[]}`), nil).Times(3)

	out := poll.ProcessWithRetry(context.Background(), jobs.AdmissionJob(transport, "s9"),
		fast(poll.WithMaxAttempts(3))...)

	assert.False(t, out.Done)
	assert.True(t, out.Pending())
	assert.Equal(t, poll.ReasonAttemptsExhausted, out.Reason)
	assert.NoError(t, out.Err)
}
