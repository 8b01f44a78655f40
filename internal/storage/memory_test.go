package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

func TestMemory_ChronicleIdempotencyRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	found, err := m.FindChronicleByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	c := &domain.Chronicle{ChronicleID: "chr-1", MessageID: "msg-1", ThreadID: "thread-1", OccurredAt: time.Now()}
	require.NoError(t, m.SaveChronicle(ctx, c))

	found, err = m.FindChronicleByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "chr-1", found.ChronicleID)
}

func TestMemory_ThreadChroniclesOrderedBeforeCutoff(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{0, time.Hour, 2 * time.Hour} {
		c := &domain.Chronicle{
			ChronicleID: fmt.Sprintf("chr-%d", i), MessageID: fmt.Sprintf("msg-%d", i), ThreadID: "t1",
			OccurredAt: base.Add(offset),
		}
		require.NoError(t, m.SaveChronicle(ctx, c))
	}

	before, err := m.ThreadChronicles(ctx, "t1", base.Add(90*time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, before, 2)
}

func TestMemory_ShipmentFindOrCreateByIdentifier(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	booking := "BKG1"
	s := &domain.Shipment{ShipmentID: "shp-1", Identifiers: domain.Identifiers{BookingNumber: &booking}}
	require.NoError(t, m.CreateShipment(ctx, s))

	found, err := m.FindShipmentByBooking(ctx, booking)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "shp-1", found.ShipmentID)

	missing, err := m.FindShipmentByMBL(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemory_CloseActionMarksCompleted(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a := &domain.Action{ActionID: "act-1", ShipmentID: "shp-1"}
	require.NoError(t, m.SaveAction(ctx, a))

	open, err := m.OpenActions(ctx, "shp-1")
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, m.CloseAction(ctx, "act-1", time.Now(), "resolved"))

	open, err = m.OpenActions(ctx, "shp-1")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMemory_SenderAccuracyAggregatesEpisodes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok, err := m.SenderAccuracy(ctx, "carrier.example.com", domain.DocBookingConfirmation)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, passed := range []bool{true, true, false} {
		require.NoError(t, m.SaveLearningEpisode(ctx, &domain.LearningEpisode{
			SenderDomain: "carrier.example.com", PredictedType: domain.DocBookingConfirmation,
			FlowValidationPassed: passed,
		}))
	}

	accuracy, ok, err := m.SenderAccuracy(ctx, "carrier.example.com", domain.DocBookingConfirmation)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, accuracy, 0.001)
}

func TestMemory_SeedRulesServesListers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.SeedRules(
		[]domain.Pattern{{ID: "p1"}},
		[]domain.ActionRule{{DocumentType: domain.DocBookingConfirmation}},
		[]domain.FlowRule{{Stage: domain.StageBooked}},
		[]domain.EnumMapping{{Field: "transport_mode", Alias: "sea", Canonical: "ocean"}},
		[]domain.ActionCompletionKeyword{{DocumentType: domain.DocSIConfirmation, Keyword: "si filed"}},
	)

	patterns, err := m.ListPatterns(ctx)
	require.NoError(t, err)
	assert.Len(t, patterns, 1)

	rules, err := m.ListActionRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}
