// Package poll coordinates with long-running backend jobs that can only be observed by polling.
//
// Key Features:
//
// 1. Bounded polling engine (ProcessWithRetry):
//   - Initial delay before the first attempt
//   - Attempt budget and elapsed-time budget, whichever is hit first
//   - Exponential backoff with a cap, or a constant delay
//   - Partial results: the last response is returned when budgets run out
//
// 2. Fixed-interval status poller (PollStatus):
//   - Binary completed/processing/failed status
//   - Constant interval, no backoff, fixed attempt cap
//
// 3. Progress and events:
//   - A progress callback invoked once per executed attempt
//   - Pluggable EventHandler (logging, metrics, fan-out)
//
// 4. Error handling:
//   - Fetch errors are retryable unless classified terminal
//   - Cancellation through context at every wait
//   - Panics are recovered and reported, never propagated
//
// Basic usage example:
//
//	job := poll.Job[Report]{
//		Fetch:  func(ctx context.Context) (Report, error) { return client.Report(ctx, id) },
//		IsDone: func(r Report) bool { return r.Ready },
//	}
//
//	outcome := poll.ProcessWithRetry(ctx, job,
//		poll.WithMaxAttempts(10),
//		poll.WithRetryDelay(2*time.Second),
//		poll.WithProgress(func(p poll.AttemptProgress) {
//			fmt.Printf("attempt %d/%d\n", p.Attempt, p.MaxAttempts)
//		}))
//
//	switch {
//	case outcome.Done:
//		// use outcome.Response
//	case outcome.Pending():
//		// partial result, the job is still running
//	default:
//		// no response at all
//	}
//
// Event handling:
//
//	handler := poll.NewLoggingEventHandler(logger)
//	outcome := poll.ProcessWithRetry(ctx, job, poll.WithEventHandler(handler))
//
// Thread safety:
//
// Invocations share no state. Attempts within one invocation are strictly
// sequential and events are delivered in attempt order.
package poll
