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

// fast keeps engine tests in the millisecond range
func fast(extra ...poll.Option) []poll.Option {
	return append([]poll.Option{
		poll.WithInitialDelay(0),
		poll.WithRetryDelay(time.Millisecond),
		poll.WithBackoff(false),
		poll.WithMaxPollingTime(5 * time.Second),
	}, extra...)
}

func doc(id string, scores ...float64) jobs.OCRDocument {
	d := jobs.OCRDocument{FileID: id}
	for _, s := range scores {
		d.Scores = append(d.Scores, jobs.SubjectScore{Score: s})
	}
	return d
}

func TestOCRDone_AllOrNothing(t *testing.T) {
	partial := jobs.OCRResult{Documents: []jobs.OCRDocument{doc("a", 15), doc("b", 12), doc("c")}}

	assert.False(t, jobs.OCRDone(partial))
	progress := jobs.OCRProgress(partial)
	assert.Equal(t, 2, progress.Processed)
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, "pending: c", progress.Status)

	complete := jobs.OCRResult{Documents: []jobs.OCRDocument{doc("a", 15), doc("b", 12)}}
	assert.True(t, jobs.OCRDone(complete))
	assert.Equal(t, "all 2 files processed", jobs.OCRProgress(complete).Status)

	assert.False(t, jobs.OCRDone(jobs.OCRResult{}), "an empty list is not done")
	assert.Equal(t, "waiting for documents", jobs.OCRProgress(jobs.OCRResult{}).Status)
}

func TestOCRJob_NonArrayScoresArePending(t *testing.T) {
	tests := []struct {
		name   string
		scores string
	}{
		{"object", `{}`},
		{"string", `"pending"`},
		{"number", `0`},
		{"true", `true`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			transport := NewMockTransport(ctrl)
			transport.EXPECT().Get(gomock.Any(), "/ocr/s1").
				Return([]byte(`[{"file_id":"a","scores":[15]},{"file_id":"b","scores":`+tt.scores+`}]`), nil)

			job := jobs.OCRJob(transport, "s1")
			resp, err := job.Fetch(context.Background())
			require.NoError(t, err)

			require.Len(t, resp.Documents, 2)
			assert.Empty(t, resp.Documents[1].Scores)
			assert.False(t, resp.Documents[1].Extracted())
			assert.False(t, job.IsDone(resp))
			assert.Equal(t, []string{"b"}, resp.Pending())
		})
	}
}

func TestOCRProgress_TruncatesPending(t *testing.T) {
	result := jobs.OCRResult{Documents: []jobs.OCRDocument{
		doc("f1"), doc("f2", 10), doc("f3"), doc("f4"), doc("f5"), doc("f6"),
	}}

	progress := jobs.OCRProgress(result)
	assert.Equal(t, 1, progress.Processed)
	assert.Equal(t, 6, progress.Total)
	assert.Equal(t, "pending: f1, f3, f4 and 2 more", progress.Status)
}

func TestOCRJob_PollsUntilAllScored(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)

	gomock.InOrder(
		transport.EXPECT().Get(gomock.Any(), "/ocr/student-1").
			Return([]byte(`[]`), nil),
		transport.EXPECT().Get(gomock.Any(), "/ocr/student-1").
			Return([]byte(`[{"file_id":"a.pdf","scores":[{"subject":"math","score":15.5}]},{"file_id":"b.pdf","scores":[]}]`), nil),
		transport.EXPECT().Get(gomock.Any(), "/ocr/student-1").
			Return(nil, types.Retryable(errors.New("connection reset"))),
		transport.EXPECT().Get(gomock.Any(), "/ocr/student-1").
			Return([]byte(`{"data":[{"file_id":"a.pdf","scores":[{"subject":"math","score":15.5}]},{"file_id":"b.pdf","scores":[{"subject":"physics","score":13}]}]}`), nil),
	)

	var progress []poll.AttemptProgress
	out := poll.ProcessWithRetry(context.Background(), jobs.OCRJob(transport, "student-1"),
		fast(poll.WithProgress(func(p poll.AttemptProgress) { progress = append(progress, p) }))...)

	require.True(t, out.Done)
	assert.Equal(t, 4, out.Attempts)
	require.Len(t, out.Response.Documents, 2)
	assert.Equal(t, "physics", out.Response.Documents[1].Scores[0].Subject)
	assert.Equal(t, 13.0, out.Response.Documents[1].Scores[0].Score)

	require.Len(t, progress, 4)
	assert.Equal(t, 0, progress[0].Total)
	assert.Equal(t, 50, progress[1].Percent)
	assert.Equal(t, "pending: b.pdf", progress[1].Status)
	assert.Equal(t, poll.StatusRetryingAfterError, progress[2].Status)
	assert.Equal(t, 100, progress[3].Percent)
}

func TestOCRJob_PagedResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)

	transport.EXPECT().Get(gomock.Any(), "/ocr/s2").
		Return([]byte(`{"content":[{"fileId":"x.png","scores":[17]}],"number":0,"totalElements":1}`), nil)

	out := poll.ProcessWithRetry(context.Background(), jobs.OCRJob(transport, "s2"), fast()...)

	require.True(t, out.Done)
	assert.Equal(t, jobs.KindPaged, out.Response.Kind)
	assert.Equal(t, "x.png", out.Response.Documents[0].FileID)
	assert.Equal(t, 17.0, out.Response.Documents[0].Scores[0].Score)
}

func TestOCRJob_UnauthorizedStopsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)

	transport.EXPECT().Get(gomock.Any(), "/ocr/s3").
		Return(nil, &types.ClassifiedError{Err: types.ErrUnauthorized, Class: types.ClassTerminal, StatusCode: 401}).
		Times(1)

	out := poll.ProcessWithRetry(context.Background(), jobs.OCRJob(transport, "s3"), fast()...)

	assert.Equal(t, poll.ReasonTerminalError, out.Reason)
	assert.Equal(t, 1, out.Attempts)
	assert.ErrorIs(t, out.Err, types.ErrUnauthorized)
}

func TestOCRJob_MalformedBodyIsRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)

	gomock.InOrder(
		transport.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]byte(`<html>`), nil),
		transport.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]byte(`[{"id":"a","scores":[1]}]`), nil),
	)

	out := poll.ProcessWithRetry(context.Background(), jobs.OCRJob(transport, "s4"), fast()...)

	require.True(t, out.Done)
	assert.Equal(t, 2, out.Attempts)
}

func TestOCRJob_EscapesStudentID(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := NewMockTransport(ctrl)

	transport.EXPECT().Get(gomock.Any(), "/ocr/a%2Fb").Return([]byte(`[{"id":"f","scores":[1]}]`), nil)

	out := poll.ProcessWithRetry(context.Background(), jobs.OCRJob(transport, "a/b"), fast()...)
	assert.True(t, out.Done)
}
