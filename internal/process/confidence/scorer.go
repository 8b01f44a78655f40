// Package confidence implements the confidence scorer (§4.4): a
// weighted-signal score in [0, 100] plus a recommendation of
// accept/flag_review/escalate_sonnet/escalate_opus.
package confidence

import (
	"context"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// Recommendation is the closed scorer outcome enumeration.
type Recommendation string

// Recommendation values.
const (
	Accept          Recommendation = "accept"
	FlagReview      Recommendation = "flag_review"
	EscalateSonnet  Recommendation = "escalate_sonnet"
	EscalateOpus    Recommendation = "escalate_opus"
)

// Thresholds, per §4.4 "Outcome".
const (
	acceptThreshold         = 80
	flagReviewThreshold     = 60
	escalateSonnetThreshold = 40
)

// shortMessageThreshold is the body+attachment length below which
// confidence scoring is skipped entirely and the result is accepted
// (§4.4 "Policy").
const shortMessageThreshold = 50

const (
	patternAgreementWeight    = 25
	fieldCoverageWeight       = 30
	senderHistoryWeight       = 20
	structuralValidatorWeight = 25
	repairPenalty             = 4
)

// SenderHistory provides the rolling sender-domain historical accuracy
// signal, computed from LearningEpisodes (§4.4 "Sender-domain historical
// accuracy for this classification").
type SenderHistory interface {
	Accuracy(ctx context.Context, senderDomain string, documentType domain.DocumentType) (float64, bool, error)
}

// Input bundles everything the scorer needs for one chronicle.
type Input struct {
	Analysis          domain.ExtractedAnalysis
	PatternMatched    bool
	PatternAgrees     bool
	SenderDomain      string
	BodyPlusAttachmentLength int
	RepairCount       int
}

// Result is the scorer's verdict.
type Result struct {
	Score          int
	Recommendation Recommendation
}

// Scorer computes the confidence score and recommendation.
type Scorer struct {
	senderHistory SenderHistory
}

// New builds a Scorer. senderHistory may be nil, in which case the
// sender-history signal contributes zero.
func New(senderHistory SenderHistory) *Scorer {
	return &Scorer{senderHistory: senderHistory}
}

// Score computes the confidence score and recommendation for a single
// chronicle (§4.4).
func (s *Scorer) Score(ctx context.Context, in Input) Result {
	if in.BodyPlusAttachmentLength < shortMessageThreshold {
		return Result{Score: acceptThreshold, Recommendation: Accept}
	}

	if domain.NonShippingDocumentTypes[in.Analysis.DocumentType] {
		return Result{Score: acceptThreshold, Recommendation: Accept}
	}

	score := 0

	if in.PatternMatched && in.PatternAgrees {
		score += patternAgreementWeight
	}

	score += int(float64(fieldCoverageWeight) * fieldCoverageRatio(in.Analysis))

	if s.senderHistory != nil {
		if accuracy, ok, err := s.senderHistory.Accuracy(ctx, in.SenderDomain, in.Analysis.DocumentType); err == nil && ok {
			score += int(float64(senderHistoryWeight) * accuracy)
		}
	}

	score += int(float64(structuralValidatorWeight) * structuralValidatorRatio(in.Analysis))

	score -= in.RepairCount * repairPenalty

	if score < 0 {
		score = 0
	}

	if score > 100 {
		score = 100
	}

	return Result{Score: score, Recommendation: recommendationFor(score)}
}

func recommendationFor(score int) Recommendation {
	switch {
	case score >= acceptThreshold:
		return Accept
	case score >= flagReviewThreshold:
		return FlagReview
	case score >= escalateSonnetThreshold:
		return EscalateSonnet
	default:
		return EscalateOpus
	}
}

// expectedFieldsByDocType is the per-type coverage table: the set of
// high-value fields a correct extraction of this document type is
// expected to carry (§4.4 "Presence of high-value fields").
var expectedFieldsByDocType = map[domain.DocumentType][]string{
	domain.DocArrivalNotice:       {"eta", "pod"},
	domain.DocBookingConfirmation: {"booking_number", "etd"},
	domain.DocVGMConfirmation:     {"container_numbers", "vgm_cutoff"},
	domain.DocSIConfirmation:      {"si_cutoff"},
	domain.DocDraftBL:             {"mbl_number", "container_numbers"},
	domain.DocFinalBL:             {"mbl_number", "container_numbers"},
	domain.DocDeliveryOrder:       {"container_numbers", "delivery_date"},
	domain.DocCustomsClearance:    {"container_numbers"},
}

func fieldCoverageRatio(a domain.ExtractedAnalysis) float64 {
	expected, ok := expectedFieldsByDocType[a.DocumentType]
	if !ok || len(expected) == 0 {
		return 1 // no coverage table entry: don't penalize
	}

	present := 0

	for _, field := range expected {
		if fieldPresent(a, field) {
			present++
		}
	}

	return float64(present) / float64(len(expected))
}

func fieldPresent(a domain.ExtractedAnalysis, field string) bool {
	switch field {
	case "eta":
		return a.ETA != nil
	case "pod":
		return a.PODLocation != nil
	case "booking_number":
		return a.BookingNumber != nil
	case "etd":
		return a.ETD != nil
	case "container_numbers":
		return len(a.ContainerNumbers) > 0
	case "vgm_cutoff":
		return a.VGMCutoff != nil
	case "si_cutoff":
		return a.SICutoff != nil
	case "mbl_number":
		return a.MBLNumber != nil
	case "delivery_date":
		return a.DeliveryDate != nil
	default:
		return false
	}
}

func structuralValidatorRatio(a domain.ExtractedAnalysis) float64 {
	checks := 0
	passed := 0

	if a.BookingNumber != nil {
		checks++
		if isPureNumeric(*a.BookingNumber) {
			passed++
		}
	}

	if a.MBLNumber != nil {
		checks++
		if !isPureNumeric(*a.MBLNumber) {
			passed++
		}
	}

	if len(a.ContainerNumbers) > 0 {
		checks++
		passed++ // already filtered to the closed shape upstream
	}

	if checks == 0 {
		return 1
	}

	return float64(passed) / float64(checks)
}

func isPureNumeric(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
