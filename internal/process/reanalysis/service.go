// Package reanalysis implements the thread-partitioned parallel
// re-extraction service (§4.8 "Partitioned parallel re-extraction"):
// threads are distributed round-robin across a bounded worker pool, and
// within a thread messages are re-processed strictly in occurredAt
// ascending order so each extraction sees its predecessors' context.
package reanalysis

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/platform/worker"
	"github.com/intoglo/chronicle-pipeline/internal/process/processor"
)

// progressEvery mirrors the worker pool's batch-progress cadence (§4.8
// "Progress is reported every 25 messages and on completion").
const progressEvery = 25

// Runner is implemented by the processor (kept narrow so this package
// does not depend on the processor's full collaborator set).
type Runner interface {
	Process(ctx context.Context, msg domain.Message) (processor.Outcome, error)
}

// ItemResult pairs one message with its re-processing outcome.
type ItemResult struct {
	Message domain.Message
	Outcome processor.Outcome
	Err     error
}

// Result summarizes one reanalysis run.
type Result struct {
	Items     []ItemResult
	Processed int
	Succeeded int
	Failed    int
	Linked    int
}

// Service drives reanalysis batches over a Runner.
type Service struct {
	runner      Runner
	concurrency int
	logger      *zerolog.Logger
}

// New builds a Service. concurrency defaults to 5 when zero or negative,
// matching the worker pool's default (§4.8).
func New(runner Runner, concurrency int, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Service{runner: runner, concurrency: concurrency, logger: logger}
}

// Run partitions messages by thread round-robin across the configured
// concurrency, then re-processes each partition's messages strictly in
// occurredAt order, one partition per worker goroutine.
func (s *Service) Run(ctx context.Context, messages []domain.Message, onProgress func(worker.Progress)) Result {
	byThread := groupByThreadOrdered(messages)

	partitions := worker.Partition(byThread, s.concurrency, func(t threadMessages) string { return t.threadID })

	var completed atomic.Int64

	var mu sync.Mutex

	var wg sync.WaitGroup

	items := make([]ItemResult, 0, len(messages))

	report := func(done bool) {
		if onProgress == nil {
			return
		}

		onProgress(worker.Progress{Processed: int(completed.Load()), Total: len(messages), Done: done})
	}

	for _, partition := range partitions {
		partition := partition

		wg.Add(1)

		go func() {
			defer wg.Done()
			defer worker.RecoverPanic(s.logger, "reanalysis partition")

			for _, thread := range partition {
				for _, msg := range thread.messages {
					if ctx.Err() != nil {
						return
					}

					outcome, err := s.runner.Process(ctx, msg)

					mu.Lock()
					items = append(items, ItemResult{Message: msg, Outcome: outcome, Err: err})
					mu.Unlock()

					n := completed.Add(1)
					if n%progressEvery == 0 {
						report(false)
					}
				}
			}
		}()
	}

	wg.Wait()
	report(true)

	return summarize(items)
}

type threadMessages struct {
	threadID string
	messages []domain.Message
}

// groupByThreadOrdered groups messages by ThreadID, sorting each
// thread's messages by ReceivedAt ascending (§4.8 "strictly in
// occurredAt ascending order").
func groupByThreadOrdered(messages []domain.Message) []threadMessages {
	order := make([]string, 0)
	byID := make(map[string][]domain.Message)

	for _, msg := range messages {
		if _, ok := byID[msg.ThreadID]; !ok {
			order = append(order, msg.ThreadID)
		}

		byID[msg.ThreadID] = append(byID[msg.ThreadID], msg)
	}

	grouped := make([]threadMessages, 0, len(order))

	for _, threadID := range order {
		msgs := byID[threadID]
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].ReceivedAt.Before(msgs[j].ReceivedAt)
		})

		grouped = append(grouped, threadMessages{threadID: threadID, messages: msgs})
	}

	return grouped
}

func summarize(items []ItemResult) Result {
	result := Result{Items: items, Processed: len(items)}

	for _, item := range items {
		if item.Err != nil {
			result.Failed++

			continue
		}

		result.Succeeded++

		if item.Outcome.ShipmentID != nil {
			result.Linked++
		}
	}

	return result
}
