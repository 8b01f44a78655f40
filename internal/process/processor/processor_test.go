package processor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/llm"
	"github.com/intoglo/chronicle-pipeline/internal/process/classify"
	"github.com/intoglo/chronicle-pipeline/internal/process/confidence"
	"github.com/intoglo/chronicle-pipeline/internal/process/linker"
	"github.com/intoglo/chronicle-pipeline/internal/process/rules"
)

// fakeStore is an in-memory ports.Store good enough to exercise the
// orchestrator end to end without a database.
type fakeStore struct {
	chroniclesByMessage map[string]*domain.Chronicle
	chronicleErrors     map[string]int
	threadChronicles    map[string][]domain.Chronicle

	shipmentsByBooking   map[string]*domain.Shipment
	shipmentsByMBL       map[string]*domain.Shipment
	shipmentsByWorkOrder map[string]*domain.Shipment
	shipmentsByContainer map[string]*domain.Shipment

	savedActions []domain.Action
	openActions  map[string][]domain.Action

	savedIssues []domain.Issue

	learningEpisodes []domain.LearningEpisode

	patterns   []domain.Pattern
	actionRules []domain.ActionRule
	flowRules   []domain.FlowRule
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chroniclesByMessage: make(map[string]*domain.Chronicle),
		chronicleErrors:     make(map[string]int),
		threadChronicles:    make(map[string][]domain.Chronicle),
		shipmentsByBooking:   make(map[string]*domain.Shipment),
		shipmentsByMBL:       make(map[string]*domain.Shipment),
		shipmentsByWorkOrder: make(map[string]*domain.Shipment),
		shipmentsByContainer: make(map[string]*domain.Shipment),
		openActions:          make(map[string][]domain.Action),
	}
}

func (f *fakeStore) FindChronicleByMessageID(_ context.Context, messageID string) (*domain.Chronicle, error) {
	return f.chroniclesByMessage[messageID], nil
}

func (f *fakeStore) SaveChronicle(_ context.Context, c *domain.Chronicle) error {
	f.chroniclesByMessage[c.MessageID] = c
	return nil
}

func (f *fakeStore) CountErrorsForMessage(_ context.Context, messageID string) (int, error) {
	return f.chronicleErrors[messageID], nil
}

func (f *fakeStore) SaveChronicleError(_ context.Context, messageID string, _ string, _ string) error {
	f.chronicleErrors[messageID]++
	return nil
}

func (f *fakeStore) ThreadChronicles(_ context.Context, threadID string, _ time.Time, _ int) ([]domain.Chronicle, error) {
	return f.threadChronicles[threadID], nil
}

func (f *fakeStore) FindShipmentByBooking(_ context.Context, bookingNumber string) (*domain.Shipment, error) {
	return f.shipmentsByBooking[bookingNumber], nil
}

func (f *fakeStore) FindShipmentByMBL(_ context.Context, mblNumber string) (*domain.Shipment, error) {
	return f.shipmentsByMBL[mblNumber], nil
}

func (f *fakeStore) FindShipmentByWorkOrder(_ context.Context, workOrderNumber string) (*domain.Shipment, error) {
	return f.shipmentsByWorkOrder[workOrderNumber], nil
}

func (f *fakeStore) FindShipmentByContainer(_ context.Context, containerNumber string) (*domain.Shipment, error) {
	return f.shipmentsByContainer[containerNumber], nil
}

func (f *fakeStore) CreateShipment(_ context.Context, s *domain.Shipment) error {
	if s.Identifiers.BookingNumber != nil {
		f.shipmentsByBooking[*s.Identifiers.BookingNumber] = s
	}

	if s.Identifiers.MBLNumber != nil {
		f.shipmentsByMBL[*s.Identifiers.MBLNumber] = s
	}

	return nil
}

func (f *fakeStore) SaveShipment(_ context.Context, _ *domain.Shipment) error {
	return nil
}

func (f *fakeStore) OpenActions(_ context.Context, shipmentID string) ([]domain.Action, error) {
	return f.openActions[shipmentID], nil
}

func (f *fakeStore) SaveAction(_ context.Context, a *domain.Action) error {
	f.savedActions = append(f.savedActions, *a)
	return nil
}

func (f *fakeStore) CloseAction(context.Context, string, time.Time, string) error {
	return nil
}

func (f *fakeStore) ActiveIssues(_ context.Context, _ string) ([]domain.Issue, error) {
	return nil, nil
}

func (f *fakeStore) SaveIssue(_ context.Context, i *domain.Issue) error {
	f.savedIssues = append(f.savedIssues, *i)
	return nil
}

func (f *fakeStore) SaveLearningEpisode(_ context.Context, e *domain.LearningEpisode) error {
	f.learningEpisodes = append(f.learningEpisodes, *e)
	return nil
}

func (f *fakeStore) SenderAccuracy(context.Context, string, domain.DocumentType) (float64, bool, error) {
	return 0, false, nil
}

func (f *fakeStore) ListPatterns(context.Context) ([]domain.Pattern, error) {
	return f.patterns, nil
}

func (f *fakeStore) ListActionRules(context.Context) ([]domain.ActionRule, error) {
	return f.actionRules, nil
}

func (f *fakeStore) ListFlowRules(context.Context) ([]domain.FlowRule, error) {
	return f.flowRules, nil
}

func (f *fakeStore) ListEnumMappings(context.Context) ([]domain.EnumMapping, error) {
	return nil, nil
}

func (f *fakeStore) ListActionCompletionKeywords(context.Context) ([]domain.ActionCompletionKeyword, error) {
	return nil, nil
}

func (f *fakeStore) RecordPatternHit(context.Context, string)            {}
func (f *fakeStore) RecordPatternFalsePositive(context.Context, string)  {}

func (f *fakeStore) GetSyncWatermark(context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeStore) SetSyncWatermark(context.Context, time.Time) error {
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeLLMClient struct {
	analysis domain.ExtractedAnalysis
	calls    int
}

func (f *fakeLLMClient) AnalyzeFreightCommunication(context.Context, llm.Input, llm.Tier) (domain.ExtractedAnalysis, error) {
	f.calls++
	return f.analysis, nil
}

func (f *fakeLLMClient) GetProviderStatuses() []llm.ProviderStatus { return nil }
func (f *fakeLLMClient) SetBudgetLimit(int64)                      {}
func (f *fakeLLMClient) GetBudgetStatus() (int64, int64, float64)  { return 0, 0, 0 }
func (f *fakeLLMClient) SetBudgetAlertCallback(func(llm.BudgetAlert)) {}

func newTestProcessor(t *testing.T, store *fakeStore, llmClient llm.Client) *Processor {
	t.Helper()

	logger := zerolog.Nop()
	matcher := classify.New(store, &logger, nil)
	ruleCache := rules.New(store)
	scorer := confidence.New(nil)
	shipmentLinker := linker.New(store, store, store, ruleCache)

	return New(store, nil, matcher, llmClient, ruleCache, scorer, shipmentLinker, &logger)
}

func testMessage() domain.Message {
	return domain.Message{
		MessageID:     "msg-1",
		ThreadID:      "thread-1",
		Subject:       "Booking Confirmation BKG123456",
		Body:          "Please find attached your booking confirmation for shipment BKG123456. Vessel ETA 2025-03-01.",
		SenderAddress: "ops@carrier.example.com",
		ReceivedAt:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcess_RetryCapExhaustedSkips(t *testing.T) {
	store := newFakeStore()
	store.chronicleErrors["msg-1"] = retryCap

	p := newTestProcessor(t, store, &fakeLLMClient{})

	outcome, err := p.Process(context.Background(), testMessage())
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Empty(t, outcome.ChronicleID)
}

func TestProcess_IdempotentReturnsExistingChronicle(t *testing.T) {
	store := newFakeStore()
	shipmentID := "shp_existing"
	store.chroniclesByMessage["msg-1"] = &domain.Chronicle{ChronicleID: "chr_existing", ShipmentID: &shipmentID}

	p := newTestProcessor(t, store, &fakeLLMClient{})

	outcome, err := p.Process(context.Background(), testMessage())
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyProcessed)
	assert.Equal(t, "chr_existing", outcome.ChronicleID)
	assert.Equal(t, &shipmentID, outcome.ShipmentID)
}

func TestProcess_FallsBackToLLMWhenNoPatternMatches(t *testing.T) {
	store := newFakeStore()

	booking := "BKG999999"
	llmClient := &fakeLLMClient{analysis: domain.ExtractedAnalysis{
		DocumentType:  domain.DocBookingConfirmation,
		FromParty:     domain.PartyOceanCarrier,
		BookingNumber: &booking,
		Summary:       "Booking confirmed for BKG999999",
	}}

	p := newTestProcessor(t, store, llmClient)

	outcome, err := p.Process(context.Background(), testMessage())
	require.NoError(t, err)
	// The haiku result scores 15 (no pattern, one of two expected fields,
	// non-numeric booking number), below 40, so it is re-extracted at the
	// opus tier.
	assert.Equal(t, 2, llmClient.calls)
	assert.NotEmpty(t, outcome.ChronicleID)
	require.NotNil(t, outcome.ShipmentID)
	assert.Equal(t, "shp_bkg_BKG999999", *outcome.ShipmentID)

	saved := store.chroniclesByMessage["msg-1"]
	require.NotNil(t, saved)
	assert.Equal(t, domain.ConfidenceSourceOpus, saved.ConfidenceSource)
}

func TestProcess_PatternMatchSkipsLLMCall(t *testing.T) {
	store := newFakeStore()
	store.patterns = []domain.Pattern{
		{
			ID:             "pat-booking",
			PatternType:    domain.PatternTypeSubject,
			Regex:          "Booking Confirmation",
			DocumentType:   domain.DocBookingConfirmation,
			Priority:       10,
			ConfidenceBase: 100,
		},
	}

	booking := "2038256270"
	etd := "2025-03-01"
	store.threadChronicles["thread-1"] = []domain.Chronicle{
		{
			ChronicleID: "c0",
			MessageID:   "msg-0",
			ThreadID:    "thread-1",
			OccurredAt:  time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC),
			Analysis: domain.ExtractedAnalysis{
				DocumentType:  domain.DocBookingRequest,
				BookingNumber: &booking,
				ETD:           &etd,
			},
		},
	}

	llmClient := &fakeLLMClient{}

	p := newTestProcessor(t, store, llmClient)

	// Second message in the thread: the pattern match on its own carries
	// no identifiers, but inherits booking_number/etd from the prior
	// chronicle (§4.5 "Known-values merge"), which raises field coverage
	// enough that the confidence score clears the escalation bands and
	// the LLM is never called.
	outcome, err := p.Process(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, 0, llmClient.calls)

	saved := store.chroniclesByMessage["msg-1"]
	require.NotNil(t, saved)
	assert.Equal(t, domain.ConfidenceSourcePattern, saved.ConfidenceSource)
	assert.Equal(t, domain.DocBookingConfirmation, saved.Analysis.DocumentType)
	assert.Equal(t, booking, *saved.Analysis.BookingNumber)
	require.NotNil(t, outcome.ShipmentID, "inherited booking_number links to a shipment")
}

func TestProcess_ActionRuleOpensActionRecord(t *testing.T) {
	store := newFakeStore()

	deadlineDays := 2
	store.actionRules = []domain.ActionRule{
		{
			DocumentType: domain.DocBookingConfirmation,
			FromParty:    "*",
			IsReply:      false,
			HasAction:    true,
			Verb:         "send_si",
			Owner:        domain.OwnerShipper,
			PriorityBase: domain.PriorityMedium,
			DeadlineType: domain.DeadlineFixedDays,
			DeadlineDays: &deadlineDays,
		},
	}

	booking := "BKG555555"
	llmClient := &fakeLLMClient{analysis: domain.ExtractedAnalysis{
		DocumentType:  domain.DocBookingConfirmation,
		FromParty:     domain.PartyOceanCarrier,
		BookingNumber: &booking,
		HasAction:     true,
		Summary:       "Booking confirmed, SI required",
	}}

	p := newTestProcessor(t, store, llmClient)

	_, err := p.Process(context.Background(), testMessage())
	require.NoError(t, err)

	require.Len(t, store.savedActions, 1)
	assert.Equal(t, domain.OwnerShipper, store.savedActions[0].Owner)
	require.NotNil(t, store.savedActions[0].DeadlineAt)
}
