package reanalysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/process/processor"
)

type recordingRunner struct {
	mu    sync.Mutex
	order map[string][]string
	fail  map[string]bool
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{order: make(map[string][]string), fail: make(map[string]bool)}
}

func (r *recordingRunner) Process(_ context.Context, msg domain.Message) (processor.Outcome, error) {
	r.mu.Lock()
	r.order[msg.ThreadID] = append(r.order[msg.ThreadID], msg.MessageID)
	r.mu.Unlock()

	if r.fail[msg.MessageID] {
		return processor.Outcome{}, assertErr
	}

	shipmentID := "shp_" + msg.ThreadID

	return processor.Outcome{ChronicleID: "chr_" + msg.MessageID, ShipmentID: &shipmentID}, nil
}

var assertErr = errSentinel("boom")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }

func TestService_ProcessesEachThreadInOccurredAtOrder(t *testing.T) {
	runner := newRecordingRunner()
	logger := zerolog.Nop()
	svc := New(runner, 2, &logger)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	messages := []domain.Message{
		{MessageID: "t1-m2", ThreadID: "t1", ReceivedAt: base.Add(2 * time.Hour)},
		{MessageID: "t1-m1", ThreadID: "t1", ReceivedAt: base.Add(1 * time.Hour)},
		{MessageID: "t2-m1", ThreadID: "t2", ReceivedAt: base},
	}

	result := svc.Run(context.Background(), messages, nil)

	require.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 3, result.Linked)

	assert.Equal(t, []string{"t1-m1", "t1-m2"}, runner.order["t1"])
	assert.Equal(t, []string{"t2-m1"}, runner.order["t2"])
}

func TestService_CountsFailuresSeparately(t *testing.T) {
	runner := newRecordingRunner()
	runner.fail["bad-msg"] = true

	logger := zerolog.Nop()
	svc := New(runner, 1, &logger)

	messages := []domain.Message{
		{MessageID: "ok-msg", ThreadID: "t1", ReceivedAt: time.Now()},
		{MessageID: "bad-msg", ThreadID: "t1", ReceivedAt: time.Now()},
	}

	result := svc.Run(context.Background(), messages, nil)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
}
