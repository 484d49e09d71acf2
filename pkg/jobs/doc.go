// Package jobs plugs the backend's long-running jobs into the polling engine.
//
// Adapters:
//   - OCRJob: document score extraction, done when every uploaded file has scores
//   - AdmissionJob: admission prediction, done when at least one program is recommended
//   - PollPredictionStatus: binary prediction status at a fixed interval
//
// Responses arrive in several list shapes (bare arrays, pages, data envelopes);
// NormalizeCollection reduces them to one Collection before any adapter looks at them.
//
// Service is the caller-facing layer. It turns engine outcomes into a Report
// whose state is ready, partial, pending or failed. Running out of attempts or
// time is reported as pending, never as a failure.
//
// Basic usage example:
//
//	transport := jobs.NewHTTPTransport("http://localhost:8090", jobs.WithRequestTimeout(10*time.Second))
//	svc := jobs.NewService(transport)
//
//	result, report := svc.AwaitOCR(ctx, studentID, func(p poll.AttemptProgress) {
//		fmt.Printf("%d%% %s\n", p.Percent, p.Status)
//	})
//	if report.State == jobs.StateReady {
//		// use result.Documents
//	}
package jobs
