// Command jobpoll waits for the backend jobs of a student submission
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jzx17/jobpoll/internal/config"
	"github.com/jzx17/jobpoll/internal/logging"
	"github.com/jzx17/jobpoll/internal/metrics"
	"github.com/jzx17/jobpoll/pkg/jobs"
	"github.com/jzx17/jobpoll/pkg/poll"
)

const usage = `usage: jobpoll [flags] <command> <id>

commands:
  ocr <studentID>         wait for OCR score extraction
  admission <studentID>   wait for admission recommendations
  status <jobID>          wait for a prediction job to settle
  all <studentID>         wait for OCR and admission concurrently

flags:
`

func main() {
	flags := flag.NewFlagSet("jobpoll", flag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	token := flags.String("token", os.Getenv("JOBPOLL_TOKEN"), "bearer token sent to the backend")
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() != 2 {
		flags.Usage()
		os.Exit(2)
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			stdlog.Fatalf("failed to load .env file: %v", err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		stdlog.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	code, err := run(ctx, cfg, logger, *token, flags.Arg(0), flags.Arg(1))
	if err != nil {
		logger.Errorw("jobpoll failed", "error", err)
	}
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, token, command, id string) (int, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	events := poll.MultiEventHandler{
		poll.NewLoggingEventHandler(logger),
		metrics.NewEventHandler(reg),
	}

	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer shutdown()
	}

	transportOpts := []jobs.TransportOption{jobs.WithRequestTimeout(cfg.Backend.RequestTimeout)}
	if token != "" {
		transportOpts = append(transportOpts, jobs.WithHeader("Authorization", "Bearer "+token))
	}
	transport := jobs.NewHTTPTransport(cfg.Backend.URL, transportOpts...)

	svc := jobs.NewService(transport,
		jobs.WithOCRConfig(cfg.Polling.OCR.PollConfig("ocr")),
		jobs.WithAdmissionConfig(cfg.Polling.Admission.PollConfig("admission")),
		jobs.WithStatusOptions(append(cfg.Polling.Status.Options(),
			poll.WithStatusEventHandler(events))...),
		jobs.WithPollOptions(poll.WithEventHandler(events)))

	var reports []jobs.Report

	switch command {
	case "ocr":
		result, report := svc.AwaitOCR(ctx, id, printProgress("ocr"))
		printOCR(result)
		reports = append(reports, printReport("ocr", report))

	case "admission":
		result, report := svc.AwaitAdmission(ctx, id, printProgress("admission"))
		printAdmission(result)
		reports = append(reports, printReport("admission", report))

	case "status":
		_, report := svc.AwaitPredictionStatus(ctx, id, printProgress("prediction"))
		reports = append(reports, printReport("prediction", report))

	case "all":
		var (
			ocr, admission  jobs.Report
			ocrResult       jobs.OCRResult
			admissionResult jobs.AdmissionResult
		)
		// a terminal failure on one side cancels the other
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			ocrResult, ocr = svc.AwaitOCR(gctx, id, printProgress("ocr"))
			if ocr.State == jobs.StateFailed {
				return fmt.Errorf("ocr: %w", ocr.Err)
			}
			return nil
		})
		g.Go(func() error {
			admissionResult, admission = svc.AwaitAdmission(gctx, id, printProgress("admission"))
			if admission.State == jobs.StateFailed {
				return fmt.Errorf("admission: %w", admission.Err)
			}
			return nil
		})
		// the failed report is checked below with the others
		_ = g.Wait()
		printOCR(ocrResult)
		printAdmission(admissionResult)
		reports = append(reports, printReport("ocr", ocr), printReport("admission", admission))

	default:
		return 2, fmt.Errorf("unknown command %q", command)
	}

	for _, r := range reports {
		if r.State == jobs.StateFailed {
			return 1, r.Err
		}
	}
	return 0, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.SugaredLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infow("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func printProgress(name string) poll.ProgressFunc {
	return func(p poll.AttemptProgress) {
		line := fmt.Sprintf("%-10s attempt %d/%d", name, p.Attempt, p.MaxAttempts)
		if p.HasCounts {
			line += fmt.Sprintf("  %3d%% (%d/%d)", p.Percent, p.Processed, p.Total)
		}
		if p.Status != "" {
			line += "  " + p.Status
		}
		fmt.Fprintln(os.Stderr, line)
	}
}

func printReport(name string, r jobs.Report) jobs.Report {
	fmt.Printf("%s: %s - %s (%d attempts, %v)\n", name, r.State, r.Message, r.Attempts, r.Elapsed.Round(time.Millisecond))
	return r
}

func printOCR(r jobs.OCRResult) {
	for _, doc := range r.Documents {
		if !doc.Extracted() {
			fmt.Printf("  %s: pending\n", doc.FileID)
			continue
		}
		for _, s := range doc.Scores {
			fmt.Printf("  %s: %s %.2f\n", doc.FileID, s.Subject, s.Score)
		}
	}
}

func printAdmission(r jobs.AdmissionResult) {
	for _, p := range r.Programs {
		fmt.Printf("  %s, %s (%.0f%%)\n", p.Name, p.University, p.Probability*100)
	}
}
