// Package main is the entrypoint for the chronicle-pipeline service.
//
// The service supports two operational modes via the --mode flag:
//   - http: service-to-service HTTP surface (health/ready/metrics plus
//     the batch-trigger endpoint), for deployments driven by a
//     scheduler that calls out over HTTP
//   - batch: one-shot batch run over a time window, for deployments
//     driven by an external cron/scheduler invoking the binary
//     directly (§6 "CLI surface (batch tools)")
//
// Example:
//
//	go run ./cmd/digest-bot --mode=batch --after=2026-07-01T00:00:00Z
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/app"
	"github.com/intoglo/chronicle-pipeline/internal/batch"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
	db "github.com/intoglo/chronicle-pipeline/internal/storage"
)

const (
	modeHTTP  = "http"
	modeBatch = "batch"
	flagMode  = "mode"

	batchLockName = "batch-ingestion"
)

func main() {
	mode := flag.String(flagMode, modeBatch, "Service mode (http, batch)")
	after := flag.String("after", "", "RFC3339 lower bound of the fetch window (required for batch mode)")
	before := flag.String("before", "", "RFC3339 upper bound of the fetch window (defaults to now)")
	maxResults := flag.Int("max-results", 0, "Maximum number of messages to fetch (0 = source default)")
	concurrency := flag.Int("concurrency", 0, "Worker pool concurrency override (0 = config default)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, db.PoolOptions{}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// MailSource and PdfExtractor are external collaborators the
	// pipeline doesn't implement (§1 "Out of scope"); a deployment
	// wires its own and passes it here. Running without one is valid
	// for --mode=http when only the health/ready/metrics surface is
	// needed, but batch mode requires it and will fail fast below.
	application := app.New(cfg, database, nil, nil, &logger)

	flags := batchFlags{after: *after, before: *before, maxResults: *maxResults, concurrency: *concurrency}

	if err := runMode(ctx, application, database, *mode, flags, &logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Error().Err(err).Msg("application error")
		os.Exit(1)
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

type batchFlags struct {
	after       string
	before      string
	maxResults  int
	concurrency int
}

func runMode(ctx context.Context, application *app.App, database *db.DB, mode string, flags batchFlags, logger *zerolog.Logger) error {
	switch mode {
	case modeHTTP:
		return application.RunHTTP(ctx)
	case modeBatch:
		return runBatch(ctx, application, database, flags, logger)
	default:
		return fmt.Errorf("invalid service mode %q", mode)
	}
}

// runBatch guards the run with a TTL lock (§5 "no two overlapping
// batch runs race the same sync watermark") so an overrunning cron
// invocation can't double-process the same window.
func runBatch(ctx context.Context, application *app.App, database *db.DB, flags batchFlags, logger *zerolog.Logger) error {
	req, err := parseBatchRequest(flags)
	if err != nil {
		return fmt.Errorf("parse batch flags: %w", err)
	}

	holderID := fmt.Sprintf("batch-%d", os.Getpid())

	acquired, err := database.TryAcquireLock(ctx, batchLockName, holderID, 0)
	if err != nil {
		return fmt.Errorf("acquire batch lock: %w", err)
	}

	if !acquired {
		logger.Warn().Msg("batch run already in progress, skipping")
		return nil
	}

	defer func() {
		if err := database.ReleaseLock(ctx, batchLockName, holderID); err != nil {
			logger.Error().Err(err).Msg("failed to release batch lock")
		}
	}()

	summary, err := application.RunBatch(ctx, req)
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}

	logger.Info().
		Int("processed", summary.Processed).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("linked", summary.Linked).
		Int64("totalTimeMs", summary.TotalTimeMs).
		Msg("batch run complete")

	if summary.Failed > 0 {
		return fmt.Errorf("batch run completed with %d failed message(s)", summary.Failed)
	}

	return nil
}

func parseBatchRequest(flags batchFlags) (batch.Request, error) {
	if flags.after == "" {
		return batch.Request{}, errors.New("--after is required for batch mode")
	}

	after, err := time.Parse(time.RFC3339, flags.after)
	if err != nil {
		return batch.Request{}, fmt.Errorf("invalid --after: %w", err)
	}

	req := batch.Request{After: after, MaxResults: flags.maxResults, Concurrency: flags.concurrency}

	if flags.before != "" {
		before, err := time.Parse(time.RFC3339, flags.before)
		if err != nil {
			return batch.Request{}, fmt.Errorf("invalid --before: %w", err)
		}

		req.Before = before
	}

	return req, nil
}
