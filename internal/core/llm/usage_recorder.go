package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/platform/observability"
)

// UsageRecorder records token usage for one LLM call: metrics, budget
// tracking, and best-effort persistence.
type UsageRecorder interface {
	RecordTokenUsage(provider, model, tier string, promptTokens, completionTokens int, success bool)
}

type usageRecorder struct {
	budgetTracker *BudgetTracker
	usageStore    UsageStore
	logger        *zerolog.Logger
}

// NewUsageRecorder builds a UsageRecorder. usageStore may be nil, in
// which case persistence is skipped but metrics and budget tracking
// still run.
func NewUsageRecorder(budgetTracker *BudgetTracker, usageStore UsageStore, logger *zerolog.Logger) UsageRecorder {
	return &usageRecorder{
		budgetTracker: budgetTracker,
		usageStore:    usageStore,
		logger:        logger,
	}
}

func (r *usageRecorder) RecordTokenUsage(provider, model, tier string, promptTokens, completionTokens int, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.LLMRequests.WithLabelValues(provider, model, tier, status).Inc()

	if promptTokens > 0 {
		observability.LLMTokensPrompt.WithLabelValues(provider, model, tier).Add(float64(promptTokens))
	}

	if completionTokens > 0 {
		observability.LLMTokensCompletion.WithLabelValues(provider, model, tier).Add(float64(completionTokens))
	}

	cost := estimateCost(provider, model, promptTokens, completionTokens)
	if cost > 0 && success {
		observability.LLMEstimatedCost.WithLabelValues(provider, model, tier).Add(cost * usdToMillicents)
	}

	if success && r.budgetTracker != nil {
		if total := promptTokens + completionTokens; total > 0 {
			r.budgetTracker.RecordTokens(total)
		}
	}

	if !success || r.usageStore == nil {
		return
	}

	// Fire-and-forget: persistence is best-effort and must not block or
	// fail the caller's extraction request.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), usageStorageTimeout)
		defer cancel()

		if err := r.usageStore.IncrementLLMUsage(ctx, provider, model, tier, promptTokens, completionTokens, cost); err != nil && r.logger != nil {
			r.logger.Warn().Err(err).Str("provider", provider).Msg("failed to persist llm usage")
		}
	}()
}

// noopUsageRecorder discards all usage, used by providers under test.
type noopUsageRecorder struct{}

// NoopUsageRecorder returns a UsageRecorder that does nothing.
func NoopUsageRecorder() UsageRecorder {
	return &noopUsageRecorder{}
}

func (r *noopUsageRecorder) RecordTokenUsage(_, _, _ string, _, _ int, _ bool) {}
