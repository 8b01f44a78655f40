// Package ports provides domain-centric interfaces for external
// dependencies. These interfaces follow the ports-and-adapters
// (hexagonal) architecture pattern, so the pipeline's business logic
// stays independent of the concrete Postgres storage adapter.
package ports

import (
	"context"
	"time"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// ChronicleRepository handles chronicle persistence and idempotency
// lookup (§6 "Idempotency key: messageId").
type ChronicleRepository interface {
	FindChronicleByMessageID(ctx context.Context, messageID string) (*domain.Chronicle, error)
	SaveChronicle(ctx context.Context, c *domain.Chronicle) error
	CountErrorsForMessage(ctx context.Context, messageID string) (int, error)
	SaveChronicleError(ctx context.Context, messageID string, stage string, errMsg string) error
	ThreadChronicles(ctx context.Context, threadID string, beforeOccurredAt time.Time, limit int) ([]domain.Chronicle, error)
}

// ShipmentRepository handles shipment find-or-create, stage advance,
// and known-value merge (§4.5 Shipment Linker).
type ShipmentRepository interface {
	FindShipmentByBooking(ctx context.Context, bookingNumber string) (*domain.Shipment, error)
	FindShipmentByMBL(ctx context.Context, mblNumber string) (*domain.Shipment, error)
	FindShipmentByWorkOrder(ctx context.Context, workOrderNumber string) (*domain.Shipment, error)
	FindShipmentByContainer(ctx context.Context, containerNumber string) (*domain.Shipment, error)
	CreateShipment(ctx context.Context, s *domain.Shipment) error
	SaveShipment(ctx context.Context, s *domain.Shipment) error
}

// ActionRepository handles action-record opening and auto-resolution.
type ActionRepository interface {
	OpenActions(ctx context.Context, shipmentID string) ([]domain.Action, error)
	SaveAction(ctx context.Context, a *domain.Action) error
	CloseAction(ctx context.Context, actionID string, completedAt time.Time, note string) error
}

// IssueRepository handles issue-record opening.
type IssueRepository interface {
	ActiveIssues(ctx context.Context, shipmentID string) ([]domain.Issue, error)
	SaveIssue(ctx context.Context, i *domain.Issue) error
}

// LearningRepository writes learning episodes. The only read is the
// SenderAccuracy aggregate behind the confidence scorer's sender-history
// signal; individual episodes are never read back.
type LearningRepository interface {
	SaveLearningEpisode(ctx context.Context, e *domain.LearningEpisode) error
	SenderAccuracy(ctx context.Context, senderDomain string, documentType domain.DocumentType) (float64, bool, error)
}

// RuleRepository is the store-side source for the rule cache (§4.2
// Rule Cache), separated from the in-memory cache itself so the cache
// package depends only on this narrow contract.
type RuleRepository interface {
	ListPatterns(ctx context.Context) ([]domain.Pattern, error)
	ListActionRules(ctx context.Context) ([]domain.ActionRule, error)
	ListFlowRules(ctx context.Context) ([]domain.FlowRule, error)
	ListEnumMappings(ctx context.Context) ([]domain.EnumMapping, error)
	ListActionCompletionKeywords(ctx context.Context) ([]domain.ActionCompletionKeyword, error)
	RecordPatternHit(ctx context.Context, patternID string)
	RecordPatternFalsePositive(ctx context.Context, patternID string)
}

// SyncStateRepository tracks mail-ingestion watermark bookkeeping
// (§6 "chronicle_sync_state"). The batch CLI driver does not read or
// write the watermark.
type SyncStateRepository interface {
	GetSyncWatermark(ctx context.Context) (time.Time, error)
	SetSyncWatermark(ctx context.Context, t time.Time) error
}

// Store composes every repository segment into the single dependency
// the processor and worker pool are constructed with.
type Store interface {
	ChronicleRepository
	ShipmentRepository
	ActionRepository
	IssueRepository
	LearningRepository
	RuleRepository
	SyncStateRepository

	Ping(ctx context.Context) error
}

// MailSource fetches inbound messages within a time window — an
// external collaborator, not implemented by this module (§1 "Out of
// scope").
type MailSource interface {
	FetchMessages(ctx context.Context, after, before time.Time, maxResults int) ([]domain.Message, error)
}

// PdfExtractor extracts text from a PDF attachment's bytes — an
// external collaborator (§1 "Out of scope").
type PdfExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}
