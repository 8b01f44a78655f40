package db

import (
	"context"
	"sync"
	"time"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// Memory is an in-process ports.Store implementation used for local
// development and for exercising the pipeline without a Postgres
// instance. It is not a cache in front of Postgres — state lives only
// for the process lifetime.
type Memory struct {
	mu sync.RWMutex

	chroniclesByMessage map[string]*domain.Chronicle
	chroniclesByThread   map[string][]domain.Chronicle
	chronicleErrorCounts map[string]int

	shipments            map[string]*domain.Shipment
	shipmentsByBooking    map[string]string
	shipmentsByMBL        map[string]string
	shipmentsByWorkOrder  map[string]string
	shipmentsByContainer  map[string]string

	actions map[string]*domain.Action
	issues  map[string]*domain.Issue

	learningEpisodes []domain.LearningEpisode

	patterns []domain.Pattern
	actionRules []domain.ActionRule
	flowRules   []domain.FlowRule
	enumMappings []domain.EnumMapping
	completionKeywords []domain.ActionCompletionKeyword

	patternHits           map[string]int
	patternFalsePositives map[string]int

	syncWatermark time.Time
}

// NewMemory builds an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		chroniclesByMessage:  make(map[string]*domain.Chronicle),
		chroniclesByThread:   make(map[string][]domain.Chronicle),
		chronicleErrorCounts: make(map[string]int),
		shipments:            make(map[string]*domain.Shipment),
		shipmentsByBooking:   make(map[string]string),
		shipmentsByMBL:       make(map[string]string),
		shipmentsByWorkOrder: make(map[string]string),
		shipmentsByContainer: make(map[string]string),
		actions:              make(map[string]*domain.Action),
		issues:               make(map[string]*domain.Issue),
		patternHits:          make(map[string]int),
		patternFalsePositives: make(map[string]int),
	}
}

// SeedRules installs the rule tables the memory store serves back
// through ports.RuleRepository, analogous to a seeded Postgres
// database for local/dev runs.
func (m *Memory) SeedRules(patterns []domain.Pattern, actionRules []domain.ActionRule, flowRules []domain.FlowRule, enumMappings []domain.EnumMapping, completionKeywords []domain.ActionCompletionKeyword) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.patterns = patterns
	m.actionRules = actionRules
	m.flowRules = flowRules
	m.enumMappings = enumMappings
	m.completionKeywords = completionKeywords
}

func (m *Memory) FindChronicleByMessageID(_ context.Context, messageID string) (*domain.Chronicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.chroniclesByMessage[messageID], nil
}

func (m *Memory) SaveChronicle(_ context.Context, c *domain.Chronicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.chroniclesByMessage[c.MessageID] = &cp
	m.chroniclesByThread[c.ThreadID] = append(m.chroniclesByThread[c.ThreadID], cp)

	return nil
}

func (m *Memory) CountErrorsForMessage(_ context.Context, messageID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.chronicleErrorCounts[messageID], nil
}

func (m *Memory) SaveChronicleError(_ context.Context, messageID, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chronicleErrorCounts[messageID]++

	return nil
}

func (m *Memory) ThreadChronicles(_ context.Context, threadID string, beforeOccurredAt time.Time, limit int) ([]domain.Chronicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.chroniclesByThread[threadID]

	var matched []domain.Chronicle

	for _, c := range all {
		if c.OccurredAt.Before(beforeOccurredAt) {
			matched = append(matched, c)
		}
	}

	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	return matched, nil
}

func (m *Memory) FindShipmentByBooking(_ context.Context, bookingNumber string) (*domain.Shipment, error) {
	return m.lookupShipment(m.shipmentsByBooking, bookingNumber)
}

func (m *Memory) FindShipmentByMBL(_ context.Context, mblNumber string) (*domain.Shipment, error) {
	return m.lookupShipment(m.shipmentsByMBL, mblNumber)
}

func (m *Memory) FindShipmentByWorkOrder(_ context.Context, workOrderNumber string) (*domain.Shipment, error) {
	return m.lookupShipment(m.shipmentsByWorkOrder, workOrderNumber)
}

func (m *Memory) FindShipmentByContainer(_ context.Context, containerNumber string) (*domain.Shipment, error) {
	return m.lookupShipment(m.shipmentsByContainer, containerNumber)
}

func (m *Memory) lookupShipment(index map[string]string, key string) (*domain.Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shipmentID, ok := index[key]
	if !ok {
		return nil, nil
	}

	s := *m.shipments[shipmentID]

	return &s, nil
}

func (m *Memory) CreateShipment(_ context.Context, s *domain.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.shipments[s.ShipmentID] = &cp
	m.indexShipmentLocked(&cp)

	return nil
}

func (m *Memory) SaveShipment(_ context.Context, s *domain.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.shipments[s.ShipmentID] = &cp
	m.indexShipmentLocked(&cp)

	return nil
}

func (m *Memory) indexShipmentLocked(s *domain.Shipment) {
	if s.Identifiers.BookingNumber != nil {
		m.shipmentsByBooking[*s.Identifiers.BookingNumber] = s.ShipmentID
	}

	if s.Identifiers.MBLNumber != nil {
		m.shipmentsByMBL[*s.Identifiers.MBLNumber] = s.ShipmentID
	}

	if s.Identifiers.WorkOrderNumber != nil {
		m.shipmentsByWorkOrder[*s.Identifiers.WorkOrderNumber] = s.ShipmentID
	}

	for _, container := range s.Identifiers.ContainerNumbers {
		m.shipmentsByContainer[container] = s.ShipmentID
	}
}

func (m *Memory) OpenActions(_ context.Context, shipmentID string) ([]domain.Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var open []domain.Action

	for _, a := range m.actions {
		if a.ShipmentID == shipmentID && a.IsOpen() {
			open = append(open, *a)
		}
	}

	return open, nil
}

func (m *Memory) SaveAction(_ context.Context, a *domain.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	m.actions[a.ActionID] = &cp

	return nil
}

func (m *Memory) CloseAction(_ context.Context, actionID string, completedAt time.Time, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.actions[actionID]
	if !ok {
		return nil
	}

	a.CompletedAt = &completedAt
	a.CompletionNote = &note

	return nil
}

func (m *Memory) ActiveIssues(_ context.Context, shipmentID string) ([]domain.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []domain.Issue

	for _, i := range m.issues {
		if i.ShipmentID == shipmentID && i.IsActive() {
			active = append(active, *i)
		}
	}

	return active, nil
}

func (m *Memory) SaveIssue(_ context.Context, i *domain.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *i
	m.issues[i.IssueID] = &cp

	return nil
}

func (m *Memory) SaveLearningEpisode(_ context.Context, e *domain.LearningEpisode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.learningEpisodes = append(m.learningEpisodes, *e)

	return nil
}

func (m *Memory) SenderAccuracy(_ context.Context, senderDomain string, documentType domain.DocumentType) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total, passed int

	for _, e := range m.learningEpisodes {
		if e.SenderDomain != senderDomain || e.PredictedType != documentType {
			continue
		}

		total++

		if e.FlowValidationPassed {
			passed++
		}
	}

	if total == 0 {
		return 0, false, nil
	}

	return float64(passed) / float64(total), true, nil
}

func (m *Memory) ListPatterns(_ context.Context) ([]domain.Pattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]domain.Pattern(nil), m.patterns...), nil
}

func (m *Memory) ListActionRules(_ context.Context) ([]domain.ActionRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]domain.ActionRule(nil), m.actionRules...), nil
}

func (m *Memory) ListFlowRules(_ context.Context) ([]domain.FlowRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]domain.FlowRule(nil), m.flowRules...), nil
}

func (m *Memory) ListEnumMappings(_ context.Context) ([]domain.EnumMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]domain.EnumMapping(nil), m.enumMappings...), nil
}

func (m *Memory) ListActionCompletionKeywords(_ context.Context) ([]domain.ActionCompletionKeyword, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]domain.ActionCompletionKeyword(nil), m.completionKeywords...), nil
}

func (m *Memory) RecordPatternHit(_ context.Context, patternID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.patternHits[patternID]++
}

func (m *Memory) RecordPatternFalsePositive(_ context.Context, patternID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.patternFalsePositives[patternID]++
}

func (m *Memory) GetSyncWatermark(_ context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.syncWatermark, nil
}

func (m *Memory) SetSyncWatermark(_ context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.syncWatermark = t

	return nil
}

// Ping always succeeds — the memory store has no external dependency
// to probe.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}
