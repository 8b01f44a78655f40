package processor

import (
	"context"
	"fmt"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/llm"
	"github.com/intoglo/chronicle-pipeline/internal/process/classify"
)

// classify runs the pattern matcher first and only falls back to the
// LLM extractor at TierHaiku when no pattern matched or the matched
// pattern's confidence is below the position-sensitive threshold (§4.7
// step 5).
func (p *Processor) classify(
	ctx context.Context,
	msg domain.Message,
	attachmentText string,
	priorChronicles []domain.Chronicle,
	threadPosition int,
	isReply bool,
) (domain.ExtractedAnalysis, domain.ConfidenceSource, *string, error) {
	matchResult, err := p.matcher.Match(ctx, classify.Input{
		Subject:        msg.Subject,
		SenderAddress:  msg.SenderAddress,
		BodyText:       msg.Body,
		HasAttachment:  len(msg.Attachments) > 0,
		ThreadPosition: threadPosition,
	})
	if err != nil {
		return domain.ExtractedAnalysis{}, "", nil, fmt.Errorf("pattern match: %w", err)
	}

	threshold := patternThresholdFirstMessage
	if isReply {
		threshold = patternThresholdReply
	}

	if matchResult.Matched && matchResult.Confidence >= threshold {
		analysis := domain.ExtractedAnalysis{
			DocumentType: matchResult.DocumentType,
			FromParty:    domain.PartyUnknown,
			Summary:      msg.Subject,
		}

		analysis = inheritKnownValues(analysis, priorChronicles)

		return analysis, domain.ConfidenceSourcePattern, nil, nil
	}

	analysis, err := p.llmClient.AnalyzeFreightCommunication(ctx, llm.Input{
		Message:        msg,
		AttachmentText: attachmentText,
		ThreadContext:  threadSummaries(priorChronicles),
		ThreadPosition: threadPosition,
	}, llm.TierHaiku)
	if err != nil {
		return domain.ExtractedAnalysis{}, "", nil, fmt.Errorf("llm extraction (haiku): %w", err)
	}

	return analysis, domain.ConfidenceSourceHaiku, nil, nil
}

// inheritKnownValues fills gaps in a pattern-only analysis from the
// thread's prior chronicles, aggregated chronologically with later
// values overriding earlier ones (spec §4.5 "Known-values merge":
// "Pattern-only classifications inherit these to fill gaps before
// persistence"). priorChronicles is already oldest-first, so a single
// forward pass naturally leaves the most recent known value in place.
func inheritKnownValues(analysis domain.ExtractedAnalysis, priorChronicles []domain.Chronicle) domain.ExtractedAnalysis {
	for _, c := range priorChronicles {
		a := c.Analysis

		if a.BookingNumber != nil {
			analysis.BookingNumber = a.BookingNumber
		}

		if a.MBLNumber != nil {
			analysis.MBLNumber = a.MBLNumber
		}

		if a.HBLNumber != nil {
			analysis.HBLNumber = a.HBLNumber
		}

		if a.WorkOrderNumber != nil {
			analysis.WorkOrderNumber = a.WorkOrderNumber
		}

		if a.MAWBNumber != nil {
			analysis.MAWBNumber = a.MAWBNumber
		}

		if a.HAWBNumber != nil {
			analysis.HAWBNumber = a.HAWBNumber
		}

		if a.PRONumber != nil {
			analysis.PRONumber = a.PRONumber
		}

		if len(a.ContainerNumbers) > 0 {
			analysis.ContainerNumbers = mergeContainerNumbers(analysis.ContainerNumbers, a.ContainerNumbers)
		}

		if len(a.ReferenceNumbers) > 0 {
			analysis.ReferenceNumbers = mergeContainerNumbers(analysis.ReferenceNumbers, a.ReferenceNumbers)
		}

		if a.ETD != nil {
			analysis.ETD = a.ETD
		}

		if a.ATD != nil {
			analysis.ATD = a.ATD
		}

		if a.ETA != nil {
			analysis.ETA = a.ETA
		}

		if a.ATA != nil {
			analysis.ATA = a.ATA
		}

		if a.PickupDate != nil {
			analysis.PickupDate = a.PickupDate
		}

		if a.DeliveryDate != nil {
			analysis.DeliveryDate = a.DeliveryDate
		}

		if a.SICutoff != nil {
			analysis.SICutoff = a.SICutoff
		}

		if a.VGMCutoff != nil {
			analysis.VGMCutoff = a.VGMCutoff
		}

		if a.CargoCutoff != nil {
			analysis.CargoCutoff = a.CargoCutoff
		}

		if a.DocCutoff != nil {
			analysis.DocCutoff = a.DocCutoff
		}

		if a.LastFreeDay != nil {
			analysis.LastFreeDay = a.LastFreeDay
		}

		if a.EmptyReturnDate != nil {
			analysis.EmptyReturnDate = a.EmptyReturnDate
		}

		if a.PODDeliveryDate != nil {
			analysis.PODDeliveryDate = a.PODDeliveryDate
		}

		if a.ActionDeadline != nil {
			analysis.ActionDeadline = a.ActionDeadline
		}
	}

	return analysis
}

// mergeContainerNumbers dedupes incoming string-slice values against
// what's already present, preserving first-seen order (shared by
// container numbers and reference numbers, both closed string lists).
func mergeContainerNumbers(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}

	merged := append([]string{}, existing...)

	for _, v := range incoming {
		if !seen[v] {
			merged = append(merged, v)
			seen[v] = true
		}
	}

	return merged
}

func threadSummaries(priorChronicles []domain.Chronicle) []llm.ThreadSummary {
	summaries := make([]llm.ThreadSummary, 0, len(priorChronicles))

	for _, c := range priorChronicles {
		summaries = append(summaries, llm.ThreadSummary{
			DocumentType: c.Analysis.DocumentType,
			Summary:      c.Analysis.Summary,
			FromParty:    c.Analysis.FromParty,
			Identifiers: domain.Identifiers{
				BookingNumber:    c.Analysis.BookingNumber,
				MBLNumber:        c.Analysis.MBLNumber,
				WorkOrderNumber:  c.Analysis.WorkOrderNumber,
				ContainerNumbers: c.Analysis.ContainerNumbers,
			},
		})
	}

	return summaries
}
