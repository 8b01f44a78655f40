package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// defaultConcurrency is the bounded worker-pool size (§4.8 "default N=5 workers").
const defaultConcurrency = 5

// progressEvery is how often progress is reported during a batch run
// (§4.8 "Progress is reported every 25 messages and on completion").
const progressEvery = 25

// Progress is reported after every progressEvery completions and once
// more when the batch finishes.
type Progress struct {
	Processed int
	Total     int
	Done      bool
}

// PoolConfig configures a bounded batch dispatch run.
type PoolConfig struct {
	// Concurrency is the number of workers pulling from the shared index.
	// Defaults to 5 when zero or negative (§4.8).
	Concurrency int

	// OnProgress is invoked from a single worker at a time (never
	// concurrently) whenever the completed count crosses a progressEvery
	// boundary, and once more after the final item completes.
	OnProgress func(Progress)

	Logger *zerolog.Logger
}

// RunPool processes items with a bounded pool of workers sharing one
// atomic cursor into items, each worker pulling the next index and
// running it to completion before pulling again (§4.8 "Worker Pool").
// process is invoked once per item; its error is returned alongside the
// item's index in the results slice, at the same position as items.
func RunPool[T any](ctx context.Context, items []T, cfg PoolConfig, process func(ctx context.Context, index int, item T) error) []error {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	if concurrency > len(items) {
		concurrency = len(items)
	}

	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	results := make([]error, len(items))

	var cursor atomic.Int64

	var completed atomic.Int64

	var progressMu sync.Mutex

	reportProgress := func(done bool) {
		if cfg.OnProgress == nil {
			return
		}

		progressMu.Lock()
		defer progressMu.Unlock()

		cfg.OnProgress(Progress{Processed: int(completed.Load()), Total: len(items), Done: done})
	}

	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer RecoverPanic(logger, "worker pool item")

			for {
				if ctx.Err() != nil {
					return
				}

				i := int(cursor.Add(1)) - 1
				if i >= len(items) {
					return
				}

				results[i] = process(ctx, i, items[i])

				n := completed.Add(1)
				if n%progressEvery == 0 {
					reportProgress(false)
				}
			}
		}()
	}

	wg.Wait()
	reportProgress(true)

	return results
}

// RecoverPanic recovers from panics and logs them.
// Use as: defer worker.RecoverPanic(logger, "operation name")
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface("panic", r).
			Str("operation", operation).
			Msg("recovered from panic")
	}
}

// Partition groups items into buckets assigned round-robin across
// concurrency workers, used by the reanalysis service to distribute
// threads while keeping every thread's messages together (§4.8
// "Partitioned parallel re-extraction").
func Partition[T any](items []T, concurrency int, keyFn func(T) string) [][]T {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	order := make([]string, 0)
	buckets := make(map[string][]T)

	for _, item := range items {
		key := keyFn(item)

		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}

		buckets[key] = append(buckets[key], item)
	}

	partitions := make([][]T, concurrency)

	for i, key := range order {
		w := i % concurrency
		partitions[w] = append(partitions[w], buckets[key]...)
	}

	return partitions
}
