package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jzx17/jobpoll/pkg/poll"
)

// StillProcessing is shown whenever polling ends before the backend finished
const StillProcessing = "still processing, please check back later"

// ReportState is the caller-facing state of a polled job
type ReportState string

const (
	// StateReady means the job finished and the result is complete
	StateReady ReportState = "ready"
	// StatePartial means some usable data arrived but the job is not finished
	StatePartial ReportState = "partial"
	// StatePending means nothing usable arrived yet; the job may still finish
	StatePending ReportState = "pending"
	// StateFailed means the backend rejected the request or reported failure
	StateFailed ReportState = "failed"
)

// Report is what a caller shows to the end user
type Report struct {
	State    ReportState
	Message  string
	Reason   poll.StopReason
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Service waits for the backend jobs of a student submission
type Service struct {
	transport Transport
	ocr       poll.Config
	admission poll.Config
	status    []poll.StatusOption
	shared    []poll.Option
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithOCRConfig sets the polling profile used for OCR extraction
func WithOCRConfig(cfg poll.Config) ServiceOption {
	return func(s *Service) {
		s.ocr = cfg
	}
}

// WithAdmissionConfig sets the polling profile used for admission prediction
func WithAdmissionConfig(cfg poll.Config) ServiceOption {
	return func(s *Service) {
		s.admission = cfg
	}
}

// WithStatusOptions sets options for the prediction status poller
func WithStatusOptions(opts ...poll.StatusOption) ServiceOption {
	return func(s *Service) {
		s.status = append(s.status, opts...)
	}
}

// WithPollOptions adds options applied on top of both engine profiles,
// typically an event handler or a clock
func WithPollOptions(opts ...poll.Option) ServiceOption {
	return func(s *Service) {
		s.shared = append(s.shared, opts...)
	}
}

// NewService creates a Service over the given transport
func NewService(t Transport, opts ...ServiceOption) *Service {
	s := &Service{
		transport: t,
		ocr:       profile("ocr"),
		admission: profile("admission"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func profile(name string) poll.Config {
	cfg := poll.DefaultConfig()
	cfg.Name = name
	return cfg
}

func (s *Service) engineOptions(cfg poll.Config, onProgress poll.ProgressFunc) []poll.Option {
	opts := append([]poll.Option{poll.WithConfig(cfg)}, s.shared...)
	if onProgress != nil {
		opts = append(opts, poll.WithProgress(onProgress))
	}
	return opts
}

// AwaitOCR polls OCR extraction for a student.
// A report is partial when some documents already have scores.
func (s *Service) AwaitOCR(ctx context.Context, studentID string, onProgress poll.ProgressFunc) (OCRResult, Report) {
	out := poll.ProcessWithRetry(ctx, OCRJob(s.transport, studentID), s.engineOptions(s.ocr, onProgress)...)

	report := engineReport("OCR extraction", out,
		func(r OCRResult) string {
			return fmt.Sprintf("scores extracted from %d files", len(r.Documents))
		},
		func(r OCRResult) (string, bool) {
			if r.Processed() == 0 {
				return "", false
			}
			return fmt.Sprintf("%d of %d files processed", r.Processed(), len(r.Documents)), true
		})
	return out.Response, report
}

// AwaitAdmission polls the admission prediction for a student
func (s *Service) AwaitAdmission(ctx context.Context, studentID string, onProgress poll.ProgressFunc) (AdmissionResult, Report) {
	out := poll.ProcessWithRetry(ctx, AdmissionJob(s.transport, studentID), s.engineOptions(s.admission, onProgress)...)

	report := engineReport("admission prediction", out,
		func(r AdmissionResult) string {
			return fmt.Sprintf("retrieved %d programs", len(r.Programs))
		},
		func(AdmissionResult) (string, bool) {
			return "", false
		})
	return out.Response, report
}

// AwaitPredictionStatus waits for a prediction job to complete or fail
func (s *Service) AwaitPredictionStatus(ctx context.Context, jobID string, onProgress poll.ProgressFunc) (PredictionStatus, Report) {
	opts := s.status
	if onProgress != nil {
		opts = append(append([]poll.StatusOption{}, opts...), poll.WithStatusProgress(onProgress))
	}
	out := PollPredictionStatus(ctx, s.transport, jobID, opts...)
	return out.Response, statusReport(out)
}

// engineReport maps an engine outcome; exhaustion is never a failure
func engineReport[T any](label string, out poll.Outcome[T], ready func(T) string, partial func(T) (string, bool)) Report {
	report := Report{
		Reason:   out.Reason,
		Attempts: out.Attempts,
		Elapsed:  out.Elapsed,
		Err:      out.Err,
	}

	switch {
	case out.Done:
		report.State = StateReady
		report.Message = ready(out.Response)
	case out.Reason == poll.ReasonTerminalError:
		report.State = StateFailed
		report.Message = fmt.Sprintf("%s could not be checked: %v", label, out.Err)
	case out.HasResponse:
		if msg, ok := partial(out.Response); ok {
			report.State = StatePartial
			report.Message = fmt.Sprintf("%s, %s", msg, StillProcessing)
			break
		}
		fallthrough
	default:
		report.State = StatePending
		report.Message = fmt.Sprintf("%s %s", label, StillProcessing)
	}
	return report
}

func statusReport(out poll.StatusOutcome[PredictionStatus]) Report {
	report := Report{Reason: out.Reason, Attempts: out.Attempts, Err: out.Err}

	switch {
	case out.State == poll.StatusCompleted:
		report.State = StateReady
		report.Message = "prediction completed"
	case out.State == poll.StatusFailed:
		report.State = StateFailed
		report.Message = "prediction failed"
		if out.Response.Message != "" {
			report.Message += ": " + out.Response.Message
		}
	case out.Reason == poll.ReasonTerminalError:
		report.State = StateFailed
		report.Message = fmt.Sprintf("prediction status could not be checked: %v", out.Err)
	default:
		report.State = StatePending
		report.Message = "prediction " + StillProcessing
	}
	return report
}
