// Package llm provides the freight-communication extraction client and
// its multi-provider fallback support.
//
// The package supports multiple LLM vendors with automatic fallback:
//   - Anthropic Claude (primary — haiku/sonnet/opus escalation ladder)
//   - OpenAI (first fallback)
//   - Google Gemini (second fallback)
//
// Features include:
//   - Circuit breaker pattern for provider resilience (§4.4)
//   - Token usage tracking and daily budget management
//   - Model-tier resolution per provider
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/platform/config"
)

// Client is the pipeline-facing LLM contract. Registry is the only
// production implementation; tests may supply a fake.
type Client interface {
	AnalyzeFreightCommunication(ctx context.Context, in Input, tier Tier) (domain.ExtractedAnalysis, error)
	GetProviderStatuses() []ProviderStatus

	SetBudgetLimit(limit int64)
	GetBudgetStatus() (dailyTokens, dailyLimit int64, percentage float64)
	SetBudgetAlertCallback(callback func(alert BudgetAlert))
}

// apiCallResult holds the common fields every provider's raw API call
// returns before they are wrapped into a domain.ExtractedAnalysis.
type apiCallResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
}

// buildCircuitConfig applies circuit breaker defaults when config
// leaves the fields zero.
func buildCircuitConfig(cfg *config.Config) CircuitBreakerConfig {
	circuitCfg := CircuitBreakerConfig{
		Threshold:  cfg.LLMCircuitThreshold,
		ResetAfter: cfg.LLMCircuitTimeout,
	}

	if circuitCfg.Threshold == 0 {
		circuitCfg.Threshold = defaultCircuitThreshold
	}

	if circuitCfg.ResetAfter == 0 {
		circuitCfg.ResetAfter = defaultCircuitTimeout
	}

	return circuitCfg
}

// New builds a Client with multi-provider fallback support, registering
// providers in priority order: Anthropic (primary), OpenAI (fallback),
// Google (second fallback). If no vendor credential is configured, a
// deterministic mock provider is registered instead so the pipeline
// still runs in tests and local development.
func New(cfg *config.Config, usageStore UsageStore, logger *zerolog.Logger) Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	registry := NewRegistry(logger)
	if usageStore != nil {
		registry.SetUsageStore(usageStore)
	}

	circuitCfg := buildCircuitConfig(cfg)
	recorder := registry.UsageRecorder()

	if cfg.AnthropicAPIKey != "" {
		registry.Register(NewAnthropicProvider(cfg, recorder, logger), circuitCfg)
	}

	if cfg.OpenAIAPIKey != "" {
		registry.Register(NewOpenAIProvider(cfg, recorder, logger), circuitCfg)
	}

	if cfg.GoogleAPIKey != "" {
		registry.Register(NewGoogleProvider(cfg, recorder, logger), circuitCfg)
	}

	if registry.ProviderCount() == 0 {
		registry.Register(NewMockProvider(), circuitCfg)
	}

	return registry
}
