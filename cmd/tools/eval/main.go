// Package main is the reanalysis CLI driver: it re-processes a batch of
// messages read from a JSONL file through the pipeline's processor,
// thread-partitioned in parallel (§4.8 "Partitioned parallel
// re-extraction"), and reports a summary plus per-message outcomes.
//
// Typical use is re-running extraction after a rule or prompt change,
// against a golden set of previously-ingested messages dumped to disk.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/app"
	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
	"github.com/intoglo/chronicle-pipeline/internal/platform/worker"
	"github.com/intoglo/chronicle-pipeline/internal/process/reanalysis"
	db "github.com/intoglo/chronicle-pipeline/internal/storage"
)

const maxScannerBufferSize = 1024 * 1024

var errLine = errors.New("invalid message record")

// messageRecord is the JSONL-on-disk shape of a message to reanalyze.
// domain.Message carries no json tags itself (it's never serialized in
// the running pipeline), so this local record mirrors the teacher's
// evalRecord pattern of a flat, tool-local decode target.
type messageRecord struct {
	MessageID     string    `json:"messageId"`
	ThreadID      string    `json:"threadId"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	SenderAddress string    `json:"senderAddress"`
	ReceivedAt    time.Time `json:"receivedAt"`
	Direction     string    `json:"direction"`
}

func main() {
	inputPath := flag.String("input", "docs/eval/sample.jsonl", "Path to a JSONL file of messages to reanalyze")
	concurrency := flag.Int("concurrency", 0, "Worker pool concurrency override (0 = config default)")
	maxFailureRate := flag.Float64("max-failure-rate", -1, "Fail if failure rate exceeds this value (disabled if <0)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *concurrency > 0 {
		cfg.WorkerConcurrency = *concurrency
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages, err := loadMessages(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load messages: %v\n", err)
		os.Exit(1)
	}

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, db.PoolOptions{}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	application := app.New(cfg, database, nil, nil, &logger)

	result := application.RunReanalysis(ctx, messages, func(p worker.Progress) {
		logger.Info().Int("processed", p.Processed).Int("total", p.Total).Bool("done", p.Done).Msg("reanalysis progress")
	})

	printSummary(result)

	if *maxFailureRate >= 0 && result.Processed > 0 {
		failureRate := float64(result.Failed) / float64(result.Processed)
		if failureRate > *maxFailureRate {
			fmt.Fprintf(os.Stderr, "failure rate %.3f exceeds threshold %.3f\n", failureRate, *maxFailureRate)
			os.Exit(1)
		}
	}
}

func loadMessages(path string) ([]domain.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, maxScannerBufferSize), maxScannerBufferSize)

	var messages []domain.Message

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := decodeMessage(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errLine, err)
		}

		messages = append(messages, msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	return messages, nil
}

func decodeMessage(line []byte) (domain.Message, error) {
	var rec messageRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return domain.Message{}, err
	}

	direction := domain.DirectionInbound
	if rec.Direction == string(domain.DirectionOutbound) {
		direction = domain.DirectionOutbound
	}

	return domain.Message{
		MessageID:     rec.MessageID,
		ThreadID:      rec.ThreadID,
		Subject:       rec.Subject,
		Body:          rec.Body,
		SenderAddress: rec.SenderAddress,
		ReceivedAt:    rec.ReceivedAt,
		Direction:     direction,
	}, nil
}

func printSummary(result reanalysis.Result) {
	fmt.Printf("Reanalysis Summary\n")
	fmt.Printf("  Processed: %d\n", result.Processed)
	fmt.Printf("  Succeeded: %d\n", result.Succeeded)
	fmt.Printf("  Failed: %d\n", result.Failed)
	fmt.Printf("  Linked: %d\n", result.Linked)

	for _, item := range result.Items {
		if item.Err != nil {
			fmt.Printf("  FAIL %s: %v\n", item.Message.MessageID, item.Err)
		}
	}
}
