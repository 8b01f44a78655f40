// Package processor implements the per-message orchestrator (§4.7): the
// entry point that runs idempotency, attachment extraction,
// classification, normalization, action determination, confidence
// scoring and escalation, persistence, shipment linking, and learning
// episode recording for a single message.
package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/llm"
	"github.com/intoglo/chronicle-pipeline/internal/core/normalize"
	"github.com/intoglo/chronicle-pipeline/internal/core/ports"
	"github.com/intoglo/chronicle-pipeline/internal/process/classify"
	"github.com/intoglo/chronicle-pipeline/internal/process/confidence"
	"github.com/intoglo/chronicle-pipeline/internal/process/linker"
	"github.com/intoglo/chronicle-pipeline/internal/process/rules"
)

// retryCap is the hard-coded prior-error count at or above which a
// message is short-circuited as skipped (§5 "Retry cap", §7
// "Retry-cap exhausted").
const retryCap = 3

// maxThreadContext bounds how many prior in-thread chronicles are read
// for thread-context assembly (§4.7 step 4).
const maxThreadContext = 10

// maxAttachmentChars bounds extracted attachment text per attachment
// (§3 "Attachment", §4.3 "attachment text to 8,000 chars per attachment").
const maxAttachmentChars = 8000

// Pattern-match confidence thresholds (§4.2 step 5, §4.7 step 5: "85
// for position 1, 90 for replies").
const (
	patternThresholdFirstMessage = 85
	patternThresholdReply        = 90
)

// Outcome is the processor's result for one message (§4.7 step 12).
type Outcome struct {
	ChronicleID      string
	ShipmentID       *string
	LinkedBy         string
	AlreadyProcessed bool
	Skipped          bool
}

// Processor is the per-message orchestrator.
type Processor struct {
	store        ports.Store
	pdfExtractor ports.PdfExtractor
	matcher      *classify.Matcher
	llmClient    llm.Client
	ruleCache    *rules.Cache
	scorer       *confidence.Scorer
	linker       *linker.Linker
	normalizeCfg normalize.Config

	logger *zerolog.Logger
}

// New builds a Processor wired over its collaborators.
func New(
	store ports.Store,
	pdfExtractor ports.PdfExtractor,
	matcher *classify.Matcher,
	llmClient llm.Client,
	ruleCache *rules.Cache,
	scorer *confidence.Scorer,
	shipmentLinker *linker.Linker,
	logger *zerolog.Logger,
) *Processor {
	return &Processor{
		store:        store,
		pdfExtractor: pdfExtractor,
		matcher:      matcher,
		llmClient:    llmClient,
		ruleCache:    ruleCache,
		scorer:       scorer,
		linker:       shipmentLinker,
		normalizeCfg: normalize.DefaultConfig(),
		logger:       logger,
	}
}

// Process runs the full per-message algorithm (§4.7).
func (p *Processor) Process(ctx context.Context, msg domain.Message) (Outcome, error) {
	// Step 1: retry cap.
	errCount, err := p.store.CountErrorsForMessage(ctx, msg.MessageID)
	if err != nil {
		return Outcome{}, fmt.Errorf("count prior errors: %w", err)
	}

	if errCount >= retryCap {
		p.logger.Warn().Str("message_id", msg.MessageID).Int("error_count", errCount).Msg("retry cap exhausted, skipping")

		return Outcome{Skipped: true}, nil
	}

	// Step 2: idempotency.
	existing, err := p.store.FindChronicleByMessageID(ctx, msg.MessageID)
	if err != nil {
		return Outcome{}, fmt.Errorf("idempotency lookup: %w", err)
	}

	if existing != nil {
		return Outcome{ChronicleID: existing.ChronicleID, ShipmentID: existing.ShipmentID, AlreadyProcessed: true}, nil
	}

	// Step 3: attachments.
	attachmentText := p.extractAttachments(ctx, msg)

	// Step 4: thread context.
	priorChronicles, err := p.store.ThreadChronicles(ctx, msg.ThreadID, msg.ReceivedAt, maxThreadContext)
	if err != nil {
		return Outcome{}, fmt.Errorf("load thread context: %w", err)
	}

	threadPosition := len(priorChronicles) + 1
	isReply := threadPosition >= 2

	// Step 5: classify.
	analysis, source, escalationReason, err := p.classify(ctx, msg, attachmentText, priorChronicles, threadPosition, isReply)
	if err != nil {
		if err := p.store.SaveChronicleError(ctx, msg.MessageID, "classify", err.Error()); err != nil {
			p.logger.Warn().Err(err).Str("message_id", msg.MessageID).Msg("failed to record chronicle error")
		}

		return Outcome{}, fmt.Errorf("classify: %w", err)
	}

	// Step 6: normalize + cross-validate.
	normResult := normalize.Apply(analysis, msg.Subject, p.enumMappings(ctx), p.normalizeCfg)
	analysis = normResult.Analysis

	// Step 8: confidence + escalation (§4.4 runs regardless of which tier
	// produced the analysis; a pattern match is itself a scoring signal).
	senderDomain := senderDomainOf(msg.SenderAddress)

	scoreResult := p.scorer.Score(ctx, confidence.Input{
		Analysis:                 analysis,
		PatternMatched:           source == domain.ConfidenceSourcePattern,
		PatternAgrees:            source == domain.ConfidenceSourcePattern,
		SenderDomain:             senderDomain,
		BodyPlusAttachmentLength: len(msg.Body) + len(attachmentText),
		RepairCount:              len(normResult.Repairs),
	})

	escalated, escalatedSource, reason, escErr := p.maybeEscalate(ctx, scoreResult, msg, attachmentText, priorChronicles, threadPosition)
	if escErr != nil {
		return Outcome{}, fmt.Errorf("escalate: %w", escErr)
	}

	if escalated != nil {
		normResult = normalize.Apply(*escalated, msg.Subject, p.enumMappings(ctx), p.normalizeCfg)
		analysis = normResult.Analysis
		source = escalatedSource
		escalationReason = reason

		scoreResult = p.scorer.Score(ctx, confidence.Input{
			Analysis:                 analysis,
			SenderDomain:             senderDomain,
			BodyPlusAttachmentLength: len(msg.Body) + len(attachmentText),
			RepairCount:              len(normResult.Repairs),
		})
	}

	// Step 7: action determination.
	rule, ruleFound, err := p.ruleCache.LookupActionRule(ctx, analysis.DocumentType, analysis.FromParty, isReply)
	if err != nil {
		return Outcome{}, fmt.Errorf("lookup action rule: %w", err)
	}

	determination := determineAction(rule, ruleFound, analysis, msg.ReceivedAt)

	chronicleID := "chr_" + uuid.NewString()

	chronicle := &domain.Chronicle{
		ChronicleID:      chronicleID,
		MessageID:        msg.MessageID,
		ThreadID:         msg.ThreadID,
		Subject:          msg.Subject,
		SenderAddress:    msg.SenderAddress,
		OccurredAt:       msg.ReceivedAt,
		ThreadPosition:   threadPosition,
		Analysis:         analysis,
		ConfidenceScore:  scoreResult.Score,
		ConfidenceSource: source,
		EscalationReason: escalationReason,
		CreatedAt:        msg.ReceivedAt,
	}

	if isReply {
		chronicle.ReanalysisFlags.UntrustedSubject = true
	}

	// Step 9: persist.
	if err := p.store.SaveChronicle(ctx, chronicle); err != nil {
		if saveErr := p.store.SaveChronicleError(ctx, msg.MessageID, "persist", err.Error()); saveErr != nil {
			p.logger.Warn().Err(saveErr).Str("message_id", msg.MessageID).Msg("failed to record chronicle error")
		}

		return Outcome{}, fmt.Errorf("save chronicle: %w", err)
	}

	// Step 10: link shipment; emit action/issue records.
	linkOutcome, err := p.linker.Link(ctx, chronicle)
	if err != nil {
		return Outcome{}, fmt.Errorf("link shipment: %w", err)
	}

	chronicle.ShipmentID = linkOutcome.ShipmentID
	chronicle.ReanalysisFlags.ImpossibleFlow = chronicle.ReanalysisFlags.ImpossibleFlow || linkOutcome.Flags.ImpossibleFlow
	chronicle.ReanalysisFlags.UnexpectedFlow = chronicle.ReanalysisFlags.UnexpectedFlow || linkOutcome.Flags.UnexpectedFlow
	chronicle.ReanalysisFlags.LowConfidence = chronicle.ReanalysisFlags.LowConfidence || linkOutcome.Flags.LowConfidence

	if linkOutcome.ShipmentID != nil {
		p.emitDerivedRecords(ctx, *linkOutcome.ShipmentID, chronicle, determination)
	}

	// Step 11: learning episode (non-fatal).
	p.recordLearningEpisode(ctx, chronicle, source, senderDomain, threadPosition)

	return Outcome{
		ChronicleID: chronicleID,
		ShipmentID:  linkOutcome.ShipmentID,
		LinkedBy:    string(linkOutcome.LinkedBy),
	}, nil
}

func (p *Processor) extractAttachments(ctx context.Context, msg domain.Message) string {
	var b strings.Builder

	for _, att := range msg.Attachments {
		text := att.ExtractedText

		if text == "" && att.MimeType == "application/pdf" && len(att.Data) > 0 && p.pdfExtractor != nil {
			extracted, err := p.pdfExtractor.ExtractText(ctx, att.Data)
			if err != nil {
				p.logger.Warn().Err(err).Str("filename", att.Filename).Msg("pdf extraction failed, skipping attachment")

				continue
			}

			text = extracted
		}

		if text == "" {
			continue
		}

		b.WriteString(truncate(text, maxAttachmentChars))
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func (p *Processor) enumMappings(ctx context.Context) *normalize.EnumMappings {
	mappings, err := p.ruleCache.EnumMappings(ctx)
	if err != nil || mappings == nil {
		return normalize.NewEnumMappings(nil)
	}

	return mappings
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}

func senderDomainOf(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return address
	}

	return strings.ToLower(address[at+1:])
}

func (p *Processor) recordLearningEpisode(ctx context.Context, c *domain.Chronicle, source domain.ConfidenceSource, senderDomain string, threadPosition int) {
	method := domain.LearningMethodAI
	if source == domain.ConfidenceSourcePattern {
		method = domain.LearningMethodPattern
	}

	var reviewReason *string

	switch {
	case c.ReanalysisFlags.ImpossibleFlow:
		reason := "impossible_flow"
		reviewReason = &reason
	case c.ReanalysisFlags.UnexpectedFlow:
		reason := "unexpected_flow"
		reviewReason = &reason
	case c.ReanalysisFlags.LowConfidence:
		reason := "low_confidence"
		reviewReason = &reason
	}

	episode := &domain.LearningEpisode{
		EpisodeID:            "lep_" + uuid.NewString(),
		ChronicleID:          c.ChronicleID,
		PredictedType:        c.Analysis.DocumentType,
		Confidence:           c.ConfidenceScore,
		Method:                method,
		SenderDomain:         senderDomain,
		ThreadPosition:       threadPosition,
		FlowValidationPassed: reviewReason == nil,
		ReviewReason:         reviewReason,
		RecordedAt:           c.OccurredAt,
	}

	if err := p.store.SaveLearningEpisode(ctx, episode); err != nil {
		p.logger.Warn().Err(err).Str("chronicle_id", c.ChronicleID).Msg("failed to record learning episode")
	}
}
