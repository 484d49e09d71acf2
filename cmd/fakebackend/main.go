// Command fakebackend serves simulated OCR and admission jobs for local runs
package main

import (
	"context"
	"errors"
	"flag"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jzx17/jobpoll/internal/fakebackend"
	"github.com/jzx17/jobpoll/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	token := flag.String("token", "", "require this bearer token")
	retryAfter := flag.Duration("retry-after", 0, "Retry-After advertised on injected 503 responses")
	students := flag.String("seed", "", "comma-separated student ids seeded with the default jobs")
	transient := flag.Int("transient-errors", 0, "503 responses served before each seeded endpoint works")
	level := flag.String("log-level", "debug", "log level")
	flag.Parse()

	logger, err := logging.New(*level)
	if err != nil {
		stdlog.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	backend := fakebackend.New()
	for _, id := range strings.Split(*students, ",") {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		seed := fakebackend.DefaultSeed()
		seed.TransientErrors = *transient
		jobID := backend.Seed(id, seed)
		logger.Infow("seeded student", "student_id", id, "prediction_job_id", jobID)
	}

	server := &http.Server{
		Addr: *addr,
		Handler: fakebackend.NewRouter(backend, logger, fakebackend.Config{
			Token:      *token,
			RetryAfter: *retryAfter,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("shutdown failed", "error", err)
		}
	}()

	logger.Infow("fake backend listening", "addr", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorw("server failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}
