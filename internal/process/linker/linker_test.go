package linker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/process/rules"
)

type fakeShipments struct {
	byBooking map[string]*domain.Shipment
	created   []*domain.Shipment
	saved     []*domain.Shipment
}

func newFakeShipments() *fakeShipments {
	return &fakeShipments{byBooking: map[string]*domain.Shipment{}}
}

func (f *fakeShipments) FindShipmentByBooking(_ context.Context, bookingNumber string) (*domain.Shipment, error) {
	return f.byBooking[bookingNumber], nil
}
func (f *fakeShipments) FindShipmentByMBL(context.Context, string) (*domain.Shipment, error) { return nil, nil }
func (f *fakeShipments) FindShipmentByWorkOrder(context.Context, string) (*domain.Shipment, error) {
	return nil, nil
}
func (f *fakeShipments) FindShipmentByContainer(context.Context, string) (*domain.Shipment, error) {
	return nil, nil
}
func (f *fakeShipments) CreateShipment(_ context.Context, s *domain.Shipment) error {
	f.created = append(f.created, s)
	if s.Identifiers.BookingNumber != nil {
		f.byBooking[*s.Identifiers.BookingNumber] = s
	}
	return nil
}
func (f *fakeShipments) SaveShipment(_ context.Context, s *domain.Shipment) error {
	f.saved = append(f.saved, s)
	return nil
}

type fakeActions struct {
	open   map[string][]domain.Action
	closed []string
}

func (f *fakeActions) OpenActions(_ context.Context, shipmentID string) ([]domain.Action, error) {
	return f.open[shipmentID], nil
}
func (f *fakeActions) SaveAction(context.Context, *domain.Action) error { return nil }
func (f *fakeActions) CloseAction(_ context.Context, actionID string, _ time.Time, _ string) error {
	f.closed = append(f.closed, actionID)
	return nil
}

type fakeIssues struct{}

func (fakeIssues) ActiveIssues(context.Context, string) ([]domain.Issue, error) { return nil, nil }
func (fakeIssues) SaveIssue(context.Context, *domain.Issue) error               { return nil }

type fakeRuleSource struct {
	flowRules []domain.FlowRule
	keywords  []domain.ActionCompletionKeyword
}

func (f fakeRuleSource) ListActionRules(context.Context) ([]domain.ActionRule, error) { return nil, nil }
func (f fakeRuleSource) ListFlowRules(context.Context) ([]domain.FlowRule, error)       { return f.flowRules, nil }
func (f fakeRuleSource) ListEnumMappings(context.Context) ([]domain.EnumMapping, error) { return nil, nil }
func (f fakeRuleSource) ListActionCompletionKeywords(context.Context) ([]domain.ActionCompletionKeyword, error) {
	return f.keywords, nil
}

func TestLink_CreatesShipmentWhenIdentifierPresent(t *testing.T) {
	booking := "2038256270"
	shipments := newFakeShipments()
	actions := &fakeActions{open: map[string][]domain.Action{}}
	ruleCache := rules.New(fakeRuleSource{})
	l := New(shipments, actions, fakeIssues{}, ruleCache)

	c := &domain.Chronicle{
		ChronicleID: "chr1",
		OccurredAt:  time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Analysis: domain.ExtractedAnalysis{
			DocumentType:  domain.DocBookingConfirmation,
			BookingNumber: &booking,
		},
		ConfidenceScore: 90,
	}

	outcome, err := l.Link(context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, outcome.ShipmentID)
	assert.Equal(t, LinkedByCreated, outcome.LinkedBy)
	assert.Len(t, shipments.created, 1)
	assert.Equal(t, domain.StageBooked, shipments.created[0].Stage)
}

func TestLink_FindsExistingShipmentByBooking(t *testing.T) {
	booking := "2038256270"
	existing := &domain.Shipment{ShipmentID: "shp1", Stage: domain.StageBooked, Identifiers: domain.Identifiers{BookingNumber: &booking}}

	shipments := newFakeShipments()
	shipments.byBooking[booking] = existing
	actions := &fakeActions{open: map[string][]domain.Action{}}
	ruleCache := rules.New(fakeRuleSource{})
	l := New(shipments, actions, fakeIssues{}, ruleCache)

	c := &domain.Chronicle{
		ChronicleID: "chr2",
		OccurredAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Analysis: domain.ExtractedAnalysis{
			DocumentType:  domain.DocArrivalNotice,
			BookingNumber: &booking,
		},
		ConfidenceScore: 90,
	}

	outcome, err := l.Link(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, LinkedByBooking, outcome.LinkedBy)
	assert.Equal(t, "shp1", *outcome.ShipmentID)
	assert.Equal(t, domain.StageArrived, shipments.saved[0].Stage)
}

func TestLink_StageNeverRegresses(t *testing.T) {
	booking := "2038256270"
	existing := &domain.Shipment{ShipmentID: "shp1", Stage: domain.StageDelivered, Identifiers: domain.Identifiers{BookingNumber: &booking}}

	shipments := newFakeShipments()
	shipments.byBooking[booking] = existing
	actions := &fakeActions{open: map[string][]domain.Action{}}
	ruleCache := rules.New(fakeRuleSource{})
	l := New(shipments, actions, fakeIssues{}, ruleCache)

	c := &domain.Chronicle{
		ChronicleID: "chr3",
		OccurredAt:  time.Now(),
		Analysis:    domain.ExtractedAnalysis{DocumentType: domain.DocBookingConfirmation, BookingNumber: &booking},
		ConfidenceScore: 90,
	}

	_, err := l.Link(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, domain.StageDelivered, shipments.saved[0].Stage)
}

func TestLink_AutoResolvesMatchingAction(t *testing.T) {
	booking := "2038256270"
	existing := &domain.Shipment{ShipmentID: "shp1", Stage: domain.StageBooked, Identifiers: domain.Identifiers{BookingNumber: &booking}}

	shipments := newFakeShipments()
	shipments.byBooking[booking] = existing

	actions := &fakeActions{open: map[string][]domain.Action{
		"shp1": {{ActionID: "act1", ShipmentID: "shp1", Description: "Submit VGM"}},
	}}

	ruleCache := rules.New(fakeRuleSource{
		keywords: []domain.ActionCompletionKeyword{
			{DocumentType: domain.DocVGMConfirmation, Keyword: "vgm"},
		},
	})
	l := New(shipments, actions, fakeIssues{}, ruleCache)

	c := &domain.Chronicle{
		ChronicleID: "chr4",
		OccurredAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Analysis:    domain.ExtractedAnalysis{DocumentType: domain.DocVGMConfirmation, BookingNumber: &booking},
		ConfidenceScore: 90,
	}

	_, err := l.Link(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []string{"act1"}, actions.closed)
}

func TestLink_FlowValidationFlagsImpossible(t *testing.T) {
	booking := "2038256270"
	existing := &domain.Shipment{ShipmentID: "shp1", Stage: domain.StageDelivered, Identifiers: domain.Identifiers{BookingNumber: &booking}}

	shipments := newFakeShipments()
	shipments.byBooking[booking] = existing
	actions := &fakeActions{open: map[string][]domain.Action{}}

	ruleCache := rules.New(fakeRuleSource{
		flowRules: []domain.FlowRule{
			{Stage: domain.StageDelivered, DocumentType: domain.DocBookingRequest, Compatibility: domain.FlowImpossible},
		},
	})
	l := New(shipments, actions, fakeIssues{}, ruleCache)

	c := &domain.Chronicle{
		ChronicleID:     "chr5",
		OccurredAt:      time.Now(),
		Analysis:        domain.ExtractedAnalysis{DocumentType: domain.DocBookingRequest, BookingNumber: &booking},
		ConfidenceScore: 90,
	}

	outcome, err := l.Link(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, outcome.Flags.ImpossibleFlow)
}

func TestLink_NoIdentifiersReturnsNone(t *testing.T) {
	shipments := newFakeShipments()
	actions := &fakeActions{open: map[string][]domain.Action{}}
	ruleCache := rules.New(fakeRuleSource{})
	l := New(shipments, actions, fakeIssues{}, ruleCache)

	c := &domain.Chronicle{
		ChronicleID: "chr6",
		OccurredAt:  time.Now(),
		Analysis:    domain.ExtractedAnalysis{DocumentType: domain.DocGeneralCorrespondence},
	}

	outcome, err := l.Link(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, outcome.ShipmentID)
	assert.Equal(t, LinkedByNone, outcome.LinkedBy)
}
