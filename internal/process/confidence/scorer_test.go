package confidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

func TestScore_ShortMessageSkipsAndAccepts(t *testing.T) {
	s := New(nil)

	result := s.Score(context.Background(), Input{
		Analysis:                 domain.ExtractedAnalysis{DocumentType: domain.DocArrivalNotice},
		BodyPlusAttachmentLength: 10,
	})

	assert.Equal(t, Accept, result.Recommendation)
}

func TestScore_NonShippingTypeNeverEscalates(t *testing.T) {
	s := New(nil)

	result := s.Score(context.Background(), Input{
		Analysis:                 domain.ExtractedAnalysis{DocumentType: domain.DocGeneralCorrespondence},
		BodyPlusAttachmentLength: 500,
	})

	assert.Equal(t, Accept, result.Recommendation)
}

func TestScore_WellFormedArrivalNoticeAccepted(t *testing.T) {
	eta := "2026-01-15"
	pod := "USLAX"

	s := New(nil)

	result := s.Score(context.Background(), Input{
		Analysis: domain.ExtractedAnalysis{
			DocumentType: domain.DocArrivalNotice,
			ETA:          &eta,
			PODLocation:  &pod,
		},
		PatternMatched:           true,
		PatternAgrees:            true,
		BodyPlusAttachmentLength: 200,
	})

	assert.GreaterOrEqual(t, result.Score, acceptThreshold)
	assert.Equal(t, Accept, result.Recommendation)
}

func TestScore_MissingFieldsEscalates(t *testing.T) {
	s := New(nil)

	result := s.Score(context.Background(), Input{
		Analysis:                 domain.ExtractedAnalysis{DocumentType: domain.DocArrivalNotice},
		BodyPlusAttachmentLength: 200,
		RepairCount:              2,
	})

	assert.Less(t, result.Score, acceptThreshold)
}

func TestScore_RepairPenaltyReducesScore(t *testing.T) {
	s := New(nil)

	base := s.Score(context.Background(), Input{
		Analysis:                 domain.ExtractedAnalysis{DocumentType: domain.DocArrivalNotice},
		PatternMatched:           true,
		PatternAgrees:            true,
		BodyPlusAttachmentLength: 200,
	})

	withRepairs := s.Score(context.Background(), Input{
		Analysis:                 domain.ExtractedAnalysis{DocumentType: domain.DocArrivalNotice},
		PatternMatched:           true,
		PatternAgrees:            true,
		BodyPlusAttachmentLength: 200,
		RepairCount:              3,
	})

	assert.Less(t, withRepairs.Score, base.Score)
}
