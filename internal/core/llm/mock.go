package llm

import (
	"context"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// mockProvider is registered when no vendor API key is configured, so
// the pipeline still runs deterministically in tests and local
// development without a live LLM.
type mockProvider struct{}

// NewMockProvider builds the mock provider.
func NewMockProvider() *mockProvider {
	return &mockProvider{}
}

func (p *mockProvider) Name() ProviderName { return ProviderMock }

func (p *mockProvider) IsAvailable() bool { return true }

func (p *mockProvider) Priority() int { return PriorityMock }

// AnalyzeFreightCommunication returns a canned analysis derived only
// from the subject so tests get deterministic output without a live call.
func (p *mockProvider) AnalyzeFreightCommunication(_ context.Context, in Input, _ Tier) (domain.ExtractedAnalysis, error) {
	return domain.ExtractedAnalysis{
		TransportMode:    domain.TransportOcean,
		IdentifierSource: domain.IdentifierSourceBody,
		DocumentType:     domain.DocGeneralCorrespondence,
		FromParty:        domain.PartyUnknown,
		MessageType:      domain.MessageTypeInformational,
		Sentiment:        domain.SentimentNeutral,
		Summary:          truncate(in.Message.Subject, 150),
	}, nil
}

var _ Provider = (*mockProvider)(nil)
