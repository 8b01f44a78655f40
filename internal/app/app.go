// Package app wires the pipeline's collaborators into runnable modes:
// a batch-trigger HTTP surface (§6 "service-to-service HTTP"), a
// one-shot batch CLI driver, and a reanalysis CLI driver (§4.8
// "Partitioned parallel re-extraction").
//
// MailSource and PdfExtractor are external collaborators the spec
// leaves out of scope (§1 "Out of scope") — App accepts them as
// optional dependencies so a deployment can plug in its own mail
// ingestion and PDF-extraction implementations without this package
// needing to know about them.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/api"
	"github.com/intoglo/chronicle-pipeline/internal/batch"
	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/llm"
	"github.com/intoglo/chronicle-pipeline/internal/core/ports"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
	"github.com/intoglo/chronicle-pipeline/internal/platform/observability"
	"github.com/intoglo/chronicle-pipeline/internal/platform/worker"
	"github.com/intoglo/chronicle-pipeline/internal/process/classify"
	"github.com/intoglo/chronicle-pipeline/internal/process/confidence"
	"github.com/intoglo/chronicle-pipeline/internal/process/linker"
	"github.com/intoglo/chronicle-pipeline/internal/process/processor"
	"github.com/intoglo/chronicle-pipeline/internal/process/reanalysis"
	"github.com/intoglo/chronicle-pipeline/internal/process/rules"
)

// senderHistoryAdapter narrows ports.LearningRepository's SenderAccuracy
// to confidence.SenderHistory's Accuracy name (§4.4 "Sender-domain
// historical accuracy" signal).
type senderHistoryAdapter struct {
	repo ports.LearningRepository
}

func (a senderHistoryAdapter) Accuracy(ctx context.Context, senderDomain string, documentType domain.DocumentType) (float64, bool, error) {
	return a.repo.SenderAccuracy(ctx, senderDomain, documentType)
}

// hitCounterAdapter narrows ports.RuleRepository's RecordPatternHit/
// RecordPatternFalsePositive to classify.HitCounter's shorter names.
type hitCounterAdapter struct {
	repo ports.RuleRepository
}

func (a hitCounterAdapter) RecordHit(ctx context.Context, patternID string) {
	a.repo.RecordPatternHit(ctx, patternID)
}

func (a hitCounterAdapter) RecordFalsePositive(ctx context.Context, patternID string) {
	a.repo.RecordPatternFalsePositive(ctx, patternID)
}

// App holds every wired collaborator and exposes the runnable modes.
type App struct {
	cfg       *config.Config
	store     ports.Store
	logger    *zerolog.Logger
	processor *processor.Processor
	ruleCache *rules.Cache
	driver    *batch.Driver
}

// New builds an App over a concrete store. mailSource and pdfExtractor
// may be nil; HTTP-trigger and batch-CLI modes require a non-nil
// mailSource to fetch messages from.
func New(cfg *config.Config, store ports.Store, mailSource ports.MailSource, pdfExtractor ports.PdfExtractor, logger *zerolog.Logger) *App {
	ruleCache := rules.New(store)
	matcher := classify.New(store, logger, hitCounterAdapter{store})
	scorer := confidence.New(senderHistoryAdapter{store})
	shipmentLinker := linker.New(store, store, store, ruleCache)
	llmClient := llm.New(cfg, store, logger)

	proc := processor.New(store, pdfExtractor, matcher, llmClient, ruleCache, scorer, shipmentLinker, logger)

	var driver *batch.Driver
	if mailSource != nil {
		driver = batch.New(mailSource, proc, logger)
	}

	return &App{
		cfg:       cfg,
		store:     store,
		logger:    logger,
		processor: proc,
		ruleCache: ruleCache,
		driver:    driver,
	}
}

// RunHTTP starts the health/ready/metrics server with the batch-trigger
// endpoint mounted on the same port (§11 "HTTP API").
func (a *App) RunHTTP(ctx context.Context) error {
	a.logger.Info().Msg("starting http mode")

	if a.driver == nil {
		return fmt.Errorf("http mode requires a configured mail source")
	}

	handler := api.NewHandler(a.cfg, a.driver, a.logger)
	srv := observability.NewServerWithAPI(a.store, a.cfg.HealthPort, handler, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}

	return nil
}

// RunBatch runs one batch over the given window and returns its
// summary (§6 "CLI surface (batch tools)").
func (a *App) RunBatch(ctx context.Context, req batch.Request) (batch.Summary, error) {
	a.logger.Info().Msg("starting batch mode")

	if a.driver == nil {
		return batch.Summary{}, fmt.Errorf("batch mode requires a configured mail source")
	}

	return a.driver.Run(ctx, req)
}

// RunReanalysis re-extracts the given messages thread-partitioned in
// parallel (§4.8), using the processor itself as the reanalysis.Runner.
func (a *App) RunReanalysis(ctx context.Context, messages []domain.Message, onProgress func(worker.Progress)) reanalysis.Result {
	a.logger.Info().Int("messages", len(messages)).Msg("starting reanalysis")

	svc := reanalysis.New(a.processor, a.cfg.WorkerConcurrency, a.logger)

	return svc.Run(ctx, messages, onProgress)
}
