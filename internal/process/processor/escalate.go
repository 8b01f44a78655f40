package processor

import (
	"context"
	"fmt"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/llm"
	"github.com/intoglo/chronicle-pipeline/internal/process/confidence"
)

// maybeEscalate re-invokes the LLM extractor at the stronger tier named
// by the scorer's recommendation, replacing the analysis in place
// (§4.4 "Outcome", §4.7 step 8). Returns nil analysis when no
// escalation is warranted.
func (p *Processor) maybeEscalate(
	ctx context.Context,
	score confidence.Result,
	msg domain.Message,
	attachmentText string,
	priorChronicles []domain.Chronicle,
	threadPosition int,
) (*domain.ExtractedAnalysis, domain.ConfidenceSource, *string, error) {
	var tier llm.Tier

	var source domain.ConfidenceSource

	var reason string

	switch score.Recommendation {
	case confidence.EscalateSonnet:
		tier = llm.TierSonnet
		source = domain.ConfidenceSourceSonnet
		reason = "confidence_score_40_59"
	case confidence.EscalateOpus:
		tier = llm.TierOpus
		source = domain.ConfidenceSourceOpus
		reason = "confidence_score_below_40"
	default:
		return nil, "", nil, nil
	}

	analysis, err := p.llmClient.AnalyzeFreightCommunication(ctx, llm.Input{
		Message:        msg,
		AttachmentText: attachmentText,
		ThreadContext:  threadSummaries(priorChronicles),
		ThreadPosition: threadPosition,
	}, tier)
	if err != nil {
		return nil, "", nil, fmt.Errorf("llm extraction (%s): %w", tier, err)
	}

	return &analysis, source, &reason, nil
}
