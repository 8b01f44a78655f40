package classify

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

type staticSource struct {
	patterns []domain.Pattern
}

func (s staticSource) ListPatterns(context.Context) ([]domain.Pattern, error) {
	return s.patterns, nil
}

func TestMatch_SubjectPatternConfident(t *testing.T) {
	source := staticSource{patterns: []domain.Pattern{
		{
			ID:             "p1",
			PatternType:    domain.PatternTypeSubject,
			Regex:          `BKG\s+\d+\s+confirmed`,
			Flags:          "i",
			DocumentType:   domain.DocBookingConfirmation,
			Priority:       10,
			ConfidenceBase: 95,
		},
	}}

	nop := zerolog.Nop()
	m := New(source, &nop, nil)

	result, err := m.Match(context.Background(), Input{
		Subject:        "BKG 2038256270 confirmed",
		ThreadPosition: 1,
	})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, domain.DocBookingConfirmation, result.DocumentType)
	assert.Equal(t, 95, result.Confidence)
	assert.False(t, result.RequiresFallback)
}

func TestMatch_SubjectDecayByThreadPosition(t *testing.T) {
	source := staticSource{patterns: []domain.Pattern{
		{
			ID:             "p1",
			PatternType:    domain.PatternTypeSubject,
			Regex:          `ETA update`,
			DocumentType:   domain.DocScheduleUpdate,
			Priority:       5,
			ConfidenceBase: 100,
		},
	}}

	nop := zerolog.Nop()
	m := New(source, &nop, nil)

	result, err := m.Match(context.Background(), Input{
		Subject:        "ETA update",
		ThreadPosition: 3, // decay = max(0.5, 1 - 0.1*2) = 0.8
	})
	require.NoError(t, err)
	assert.Equal(t, 80, result.Confidence)
}

func TestMatch_NoCandidatesRequiresFallback(t *testing.T) {
	source := staticSource{patterns: nil}
	nop := zerolog.Nop()
	m := New(source, &nop, nil)

	result, err := m.Match(context.Background(), Input{Subject: "anything"})
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.True(t, result.RequiresFallback)
}

func TestMatch_RequiresAttachmentPredicate(t *testing.T) {
	source := staticSource{patterns: []domain.Pattern{
		{
			ID:                 "p1",
			PatternType:        domain.PatternTypeBody,
			Regex:              `VGM CUTOFF`,
			DocumentType:       domain.DocVGMConfirmation,
			Priority:           1,
			ConfidenceBase:     90,
			RequiresAttachment: true,
		},
	}}

	nop := zerolog.Nop()
	m := New(source, &nop, nil)

	result, err := m.Match(context.Background(), Input{
		BodyText:      "VGM CUTOFF 2026-01-15",
		HasAttachment: false,
	})
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestMatch_InvalidRegexDiscarded(t *testing.T) {
	source := staticSource{patterns: []domain.Pattern{
		{ID: "bad", PatternType: domain.PatternTypeSubject, Regex: `(unclosed`, DocumentType: domain.DocUnknown, ConfidenceBase: 50},
	}}

	nop := zerolog.Nop()
	m := New(source, &nop, nil)

	result, err := m.Match(context.Background(), Input{Subject: "unclosed test"})
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestReload_InvalidatesSnapshot(t *testing.T) {
	source := staticSource{patterns: []domain.Pattern{
		{ID: "p1", PatternType: domain.PatternTypeSubject, Regex: "x", DocumentType: domain.DocUnknown, ConfidenceBase: 60},
	}}

	nop := zerolog.Nop()
	m := New(source, &nop, nil)

	_, err := m.Match(context.Background(), Input{Subject: "x"})
	require.NoError(t, err)
	require.NotNil(t, m.current)

	m.Reload()
	assert.Nil(t, m.current)
}
