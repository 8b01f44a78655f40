// Package batch drives a bounded run of the processor over a window of
// messages fetched from a MailSource (§6 "CLI surface (batch tools)"),
// shared by the CLI entrypoints and the HTTP trigger endpoint.
package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/ports"
	"github.com/intoglo/chronicle-pipeline/internal/platform/observability"
	"github.com/intoglo/chronicle-pipeline/internal/platform/worker"
	"github.com/intoglo/chronicle-pipeline/internal/process/processor"
)

// Request is the batch driver's input (§6 "{afterTimestamp,
// beforeTimestamp?, maxResults?, concurrency?}").
type Request struct {
	After       time.Time
	Before      time.Time
	MaxResults  int
	Concurrency int
}

// Summary is the batch driver's output (§6 "{processed, succeeded,
// failed, linked, totalTimeMs}").
type Summary struct {
	Processed   int   `json:"processed"`
	Succeeded   int   `json:"succeeded"`
	Failed      int   `json:"failed"`
	Linked      int   `json:"linked"`
	TotalTimeMs int64 `json:"totalTimeMs"`
}

// Driver fetches messages from a MailSource and runs each through the
// processor over a bounded worker pool (§4.8 "Worker Pool").
type Driver struct {
	source    ports.MailSource
	processor *processor.Processor
	logger    *zerolog.Logger
}

func New(source ports.MailSource, proc *processor.Processor, logger *zerolog.Logger) *Driver {
	return &Driver{source: source, processor: proc, logger: logger}
}

// Run fetches the window, dispatches it across a bounded pool, and
// returns the batch summary. A fatal error here means the batch itself
// could not start (fetch failure); per-message errors are folded into
// Summary.Failed rather than returned.
func (d *Driver) Run(ctx context.Context, req Request) (Summary, error) {
	start := time.Now()

	before := req.Before
	if before.IsZero() {
		before = time.Now()
	}

	messages, err := d.source.FetchMessages(ctx, req.After, before, req.MaxResults)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch messages: %w", err)
	}

	var linked atomic.Int64

	results := worker.RunPool(ctx, messages, worker.PoolConfig{
		Concurrency: req.Concurrency,
		Logger:      d.logger,
		OnProgress: func(p worker.Progress) {
			d.logger.Info().Int("processed", p.Processed).Int("total", p.Total).Bool("done", p.Done).Msg("batch progress")
		},
	}, func(ctx context.Context, _ int, msg domain.Message) error {
		outcome, err := d.processor.Process(ctx, msg)
		if err != nil {
			observability.BatchProcessed.WithLabelValues("failed").Inc()
			return err
		}

		result := "succeeded"
		if outcome.Skipped {
			result = "skipped"
		}

		observability.BatchProcessed.WithLabelValues(result).Inc()

		if outcome.ShipmentID != nil {
			linked.Add(1)
			observability.ShipmentsLinked.WithLabelValues(outcome.LinkedBy).Inc()
		}

		return nil
	})

	summary := Summary{Processed: len(messages), Linked: int(linked.Load())}

	for i, err := range results {
		if err != nil {
			summary.Failed++
			d.logger.Warn().Err(err).Str("message_id", messages[i].MessageID).Msg("batch item failed")

			continue
		}

		summary.Succeeded++
	}

	summary.TotalTimeMs = time.Since(start).Milliseconds()
	observability.BatchDuration.Observe(time.Since(start).Seconds())

	return summary, nil
}
