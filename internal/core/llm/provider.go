package llm

import (
	"context"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// ProviderName identifies an LLM vendor.
type ProviderName string

// Provider name constants.
const (
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOpenAI    ProviderName = "openai"
	ProviderGoogle    ProviderName = "google"
	ProviderMock      ProviderName = "mock"
)

// Priority constants for provider ordering. Anthropic is primary because
// its haiku/sonnet/opus family maps directly onto the §4.4 escalation
// ladder; the others are vendor-outage fallbacks.
const (
	PriorityPrimary  = 100 // Anthropic
	PriorityFallback = 50  // OpenAI
	PrioritySecond   = 25  // Google
	PriorityMock     = 0
)

// Tier selects a point on the escalation ladder (§4.4 "Outcome":
// escalate_sonnet, escalate_opus). The pattern matcher and the first
// LLM pass both resolve to TierHaiku.
type Tier string

// Tier values.
const (
	TierHaiku  Tier = "haiku"
	TierSonnet Tier = "sonnet"
	TierOpus   Tier = "opus"
)

// ThreadSummary is a compact prior-chronicle digest included in the
// prompt for thread position >= 2 (§4.3 "Prompt composition").
type ThreadSummary struct {
	DocumentType domain.DocumentType
	Summary      string
	FromParty    domain.FromParty
	Identifiers  domain.Identifiers
}

// Input is the LLM extractor's contract (§4.3 "Contract").
type Input struct {
	Message         domain.Message
	AttachmentText  string
	ThreadContext   []ThreadSummary
	ThreadPosition  int
	AuxContextText  string
}

// Provider is implemented by each LLM vendor integration.
type Provider interface {
	Name() ProviderName
	IsAvailable() bool
	Priority() int

	// AnalyzeFreightCommunication runs the single structured extraction
	// call (§4.3, §6 "analyze_freight_communication") at the given tier.
	AnalyzeFreightCommunication(ctx context.Context, in Input, tier Tier) (domain.ExtractedAnalysis, error)
}
