// Package domain defines the core entities of the chronicle pipeline:
// the immutable ingest record (Message), the fully-extracted analysis
// produced by classification (ExtractedAnalysis), the persisted record
// of one processed message (Chronicle), and the aggregate that spans
// many chronicles sharing an identifier (Shipment).
package domain

import "time"

// Direction is the message direction relative to the forwarder.
type Direction string

// Direction values.
const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is the immutable ingest record. MessageID is globally unique
// and is the idempotency key for the whole pipeline.
type Message struct {
	MessageID     string
	ThreadID      string
	Subject       string
	Body          string
	SenderAddress string
	ReceivedAt    time.Time
	Direction     Direction
	Attachments   []Attachment
}

// Attachment is a single email attachment. ExtractedText is populated
// by the PdfExtractor collaborator and bounded to a maximum length.
type Attachment struct {
	Filename      string
	MimeType      string
	SizeBytes     int64
	Data          []byte
	ExtractedText string
}

// TransportMode is the closed transport-mode enumeration.
type TransportMode string

// TransportMode values.
const (
	TransportOcean     TransportMode = "ocean"
	TransportAir       TransportMode = "air"
	TransportRoad      TransportMode = "road"
	TransportRail      TransportMode = "rail"
	TransportMultimodal TransportMode = "multimodal"
	TransportUnknown   TransportMode = "unknown"
)

// IdentifierSource records where the strongest identifier was read from.
type IdentifierSource string

// IdentifierSource values.
const (
	IdentifierSourceSubject    IdentifierSource = "subject"
	IdentifierSourceBody       IdentifierSource = "body"
	IdentifierSourceAttachment IdentifierSource = "attachment"
)

// DocumentType is the closed classification enumeration. The list spans
// booking, documentation, arrival/customs, delivery, trucking, financial,
// update, and generic-communication classes.
type DocumentType string

// DocumentType values.
const (
	DocBookingRequest      DocumentType = "booking_request"
	DocBookingConfirmation DocumentType = "booking_confirmation"
	DocSIConfirmation      DocumentType = "si_confirmation"
	DocVGMConfirmation     DocumentType = "vgm_confirmation"
	DocSOBConfirmation     DocumentType = "sob_confirmation"
	DocDraftBL             DocumentType = "draft_bl"
	DocFinalBL             DocumentType = "final_bl"
	DocTelexRelease        DocumentType = "telex_release"
	DocSeaWaybill          DocumentType = "sea_waybill"
	DocLEOCopy             DocumentType = "leo_copy"
	DocArrivalNotice       DocumentType = "arrival_notice"
	DocCustomsClearance    DocumentType = "customs_clearance"
	DocContainerRelease    DocumentType = "container_release"
	DocDeliveryOrder       DocumentType = "delivery_order"
	DocPODProofOfDelivery  DocumentType = "pod_proof_of_delivery"
	DocTruckingDispatch    DocumentType = "trucking_dispatch"
	DocTruckingPOD         DocumentType = "trucking_pod"
	DocInvoice             DocumentType = "invoice"
	DocDebitNote           DocumentType = "debit_note"
	DocCreditNote          DocumentType = "credit_note"
	DocScheduleUpdate      DocumentType = "schedule_update"
	DocRolloverNotice      DocumentType = "rollover_notice"
	DocHoldNotice          DocumentType = "hold_notice"
	DocDemurrageNotice     DocumentType = "demurrage_notice"
	DocGeneralCorrespondence DocumentType = "general_correspondence"
	DocNotification        DocumentType = "notification"
	DocApproval            DocumentType = "approval"
	DocRequest             DocumentType = "request"
	DocEscalation          DocumentType = "escalation"
	DocInternalNotification DocumentType = "internal_notification"
	DocUnknown             DocumentType = "unknown"
)

// ConfirmationDocumentTypes are the document types that can auto-resolve
// open action records on arrival (§4.5 Auto-resolution).
var ConfirmationDocumentTypes = map[DocumentType]bool{
	DocVGMConfirmation:     true,
	DocSIConfirmation:      true,
	DocSOBConfirmation:     true,
	DocBookingConfirmation: true,
	DocLEOCopy:             true,
	DocDraftBL:             true,
	DocFinalBL:             true,
	DocTelexRelease:        true,
	DocSeaWaybill:          true,
	DocArrivalNotice:       true,
	DocContainerRelease:    true,
	DocDeliveryOrder:       true,
	DocPODProofOfDelivery:  true,
}

// NonShippingDocumentTypes never escalate through the confidence scorer —
// there is nothing further for an LLM to extract from them (§4.4 Policy).
var NonShippingDocumentTypes = map[DocumentType]bool{
	DocGeneralCorrespondence: true,
	DocNotification:          true,
	DocApproval:              true,
	DocRequest:               true,
	DocEscalation:            true,
	DocUnknown:               true,
	DocInternalNotification:  true,
}

// FromParty is the closed party-role enumeration.
type FromParty string

// FromParty values.
const (
	PartyOceanCarrier   FromParty = "ocean_carrier"
	PartyAirline        FromParty = "airline"
	PartyNVOCC          FromParty = "nvocc"
	PartyTrucker        FromParty = "trucker"
	PartyWarehouse      FromParty = "warehouse"
	PartyTerminal       FromParty = "terminal"
	PartyCustomsBroker  FromParty = "customs_broker"
	PartyFreightBroker  FromParty = "freight_broker"
	PartyShipper        FromParty = "shipper"
	PartyConsignee      FromParty = "consignee"
	PartyCustomer       FromParty = "customer"
	PartyNotifyParty    FromParty = "notify_party"
	PartyIntoglo        FromParty = "intoglo"
	PartySystem         FromParty = "system"
	PartyUnknown        FromParty = "unknown"
)

// MessageType is the closed message-intent enumeration.
type MessageType string

// MessageType values.
const (
	MessageTypeConfirmation MessageType = "confirmation"
	MessageTypeRequest      MessageType = "request"
	MessageTypeUpdate       MessageType = "update"
	MessageTypeIssue        MessageType = "issue"
	MessageTypeInformational MessageType = "informational"
)

// Sentiment is the closed sentiment enumeration.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUrgent   Sentiment = "urgent"
)

// LocationType is the closed routing-point type enumeration shared by
// POR/POL/POD/POFD.
type LocationType string

// LocationType values.
const (
	LocationTypePort      LocationType = "port"
	LocationTypeAirport   LocationType = "airport"
	LocationTypeICD       LocationType = "icd"
	LocationTypeWarehouse LocationType = "warehouse"
	LocationTypeDoor      LocationType = "door"
	LocationTypeUnknown   LocationType = "unknown"
)

// ActionOwner is the closed owner-role enumeration for action records.
type ActionOwner string

// ActionOwner values.
const (
	OwnerShipper        ActionOwner = "shipper"
	OwnerConsignee      ActionOwner = "consignee"
	OwnerCarrier        ActionOwner = "carrier"
	OwnerCustomsBroker  ActionOwner = "customs_broker"
	OwnerTrucker        ActionOwner = "trucker"
	OwnerIntoglo        ActionOwner = "intoglo"
	OwnerUnassigned     ActionOwner = "unassigned"
)

// ActionPriority is the closed priority enumeration used both on action
// records and as input to attention scoring.
type ActionPriority string

// ActionPriority values.
const (
	PriorityCritical ActionPriority = "critical"
	PriorityHigh     ActionPriority = "high"
	PriorityMedium   ActionPriority = "medium"
	PriorityLow      ActionPriority = "low"
)

// IssueType is the closed issue-category enumeration used for attention
// weighting.
type IssueType string

// IssueType values.
const (
	IssueDelay         IssueType = "delay"
	IssueRollover      IssueType = "rollover"
	IssueHold          IssueType = "hold"
	IssueDocumentation IssueType = "documentation"
	IssueCustoms       IssueType = "customs"
	IssueDamage        IssueType = "damage"
)

// Party is a name/address/contact triple, used for shipper, consignee,
// and notify parties.
type Party struct {
	Name    string
	Address string
	Contact string
}

// ExtractedAnalysis is the structured extraction result produced by the
// pattern matcher or the LLM extractor, shared verbatim across both
// paths so normalization and validation operate uniformly (§6 schema).
type ExtractedAnalysis struct {
	TransportMode    TransportMode
	IdentifierSource IdentifierSource

	BookingNumber     *string
	MBLNumber         *string
	HBLNumber         *string
	ContainerNumbers  []string
	MAWBNumber        *string
	HAWBNumber        *string
	WorkOrderNumber   *string
	PRONumber         *string
	ReferenceNumbers  []string

	DocumentType DocumentType
	FromParty    FromParty

	PORLocation *string
	PORType     *LocationType
	POLLocation *string
	POLType     *LocationType
	PODLocation *string
	PODType     *LocationType
	POFDLocation *string
	POFDType     *LocationType

	VesselName    *string
	VoyageNumber  *string
	FlightNumber  *string
	CarrierName   *string

	ETD             *string
	ATD             *string
	ETA             *string
	ATA             *string
	PickupDate      *string
	DeliveryDate    *string
	SICutoff        *string
	VGMCutoff       *string
	CargoCutoff     *string
	DocCutoff       *string
	LastFreeDay     *string
	EmptyReturnDate *string
	PODDeliveryDate *string
	ActionDeadline  *string

	ContainerType *string
	Weight        *string
	Pieces        *int
	Commodity     *string

	Shipper   *Party
	Consignee *Party
	Notify    *Party

	InvoiceNumber *string
	Amount        *float64
	Currency      *string

	MessageType MessageType
	Sentiment   Sentiment
	Summary     string

	HasAction       bool
	ActionDescription *string
	ActionOwner       *ActionOwner
	ActionPriority    *ActionPriority

	HasIssue         bool
	IssueType        *IssueType
	IssueDescription *string
}

// ConfidenceSource identifies which tier of classification produced the
// analysis currently attached to a chronicle.
type ConfidenceSource string

// ConfidenceSource values.
const (
	ConfidenceSourcePattern ConfidenceSource = "pattern"
	ConfidenceSourceHaiku   ConfidenceSource = "haiku"
	ConfidenceSourceSonnet  ConfidenceSource = "sonnet"
	ConfidenceSourceOpus    ConfidenceSource = "opus"
)

// ReanalysisFlags records review markers raised by flow validation or
// low-confidence classification (§4.5 Flow validation).
type ReanalysisFlags struct {
	ImpossibleFlow bool
	UnexpectedFlow bool
	LowConfidence  bool
	UntrustedSubject bool
}

// Chronicle is the persisted record of one processed message: the
// extracted analysis plus raw message metadata and provenance.
type Chronicle struct {
	ChronicleID string
	MessageID   string
	ThreadID    string
	ShipmentID  *string

	Subject       string
	SenderAddress string
	OccurredAt    time.Time
	ThreadPosition int

	Analysis ExtractedAnalysis

	ConfidenceScore    int
	ConfidenceSource   ConfidenceSource
	EscalationReason   *string
	ReanalysisFlags    ReanalysisFlags

	CreatedAt time.Time
}

// Stage is the closed, totally ordered shipment lifecycle stage.
// Progression is monotone non-decreasing per shipment (§3 invariant).
type Stage int

// Stage values, in lifecycle order.
const (
	StagePending Stage = iota
	StageBooked
	StageSIStage
	StageDraftBL
	StageBLIssued
	StageDeparted
	StageInTransit
	StageArrived
	StageCustoms
	StageCleared
	StageDelivered
)

// String renders the stage in the same spelling used by the store and
// by log lines.
func (s Stage) String() string {
	switch s {
	case StagePending:
		return "PENDING"
	case StageBooked:
		return "BOOKED"
	case StageSIStage:
		return "SI_STAGE"
	case StageDraftBL:
		return "DRAFT_BL"
	case StageBLIssued:
		return "BL_ISSUED"
	case StageDeparted:
		return "DEPARTED"
	case StageInTransit:
		return "IN_TRANSIT"
	case StageArrived:
		return "ARRIVED"
	case StageCustoms:
		return "CUSTOMS"
	case StageCleared:
		return "CLEARED"
	case StageDelivered:
		return "DELIVERED"
	default:
		return "UNKNOWN"
	}
}

// StageTransition records one advance of a shipment's stage, with the
// document type and timestamp that triggered it.
type StageTransition struct {
	FromStage        Stage
	ToStage          Stage
	TriggerDocType   DocumentType
	TransitionedAt   time.Time
}

// Identifiers bundles the tuple a shipment is resolved and deduplicated
// on (§4.5 Find-or-create).
type Identifiers struct {
	BookingNumber   *string
	MBLNumber       *string
	WorkOrderNumber *string
	ContainerNumbers []string
}

// HasAny reports whether at least one identifier is present, the
// precondition for creating a new shipment (§4.5 step 5).
func (i Identifiers) HasAny() bool {
	return i.BookingNumber != nil || i.MBLNumber != nil || i.WorkOrderNumber != nil || len(i.ContainerNumbers) > 0
}

// Shipment is the aggregate entity spanning multiple chronicles sharing
// an identifier. A chronicle's membership in a shipment is total and
// exclusive.
type Shipment struct {
	ShipmentID string
	Identifiers Identifiers

	Stage          Stage
	StageUpdatedAt time.Time
	StageHistory   []StageTransition

	ETD *string
	ETA *string

	SICutoff    *string
	VGMCutoff   *string
	CargoCutoff *string
	DocCutoff   *string

	Vessel  *string
	Carrier *string

	Shipper   *Party
	Consignee *Party
	Notify    *Party

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Action is a derived work item opened when a chronicle asserts
// HasAction, closed on a matching confirmation-class chronicle.
type Action struct {
	ActionID    string
	ShipmentID  string
	ChronicleID string

	Description string
	Owner       ActionOwner
	Priority    ActionPriority
	DeadlineAt  *time.Time

	OpenedAt        time.Time
	CompletedAt     *time.Time
	CompletionNote  *string
}

// IsOpen reports whether the action still awaits resolution.
func (a Action) IsOpen() bool {
	return a.CompletedAt == nil
}

// Issue is a derived work item opened when a chronicle asserts HasIssue.
type Issue struct {
	IssueID     string
	ShipmentID  string
	ChronicleID string

	Type        IssueType
	Description string

	OpenedAt   time.Time
	ResolvedAt *time.Time
}

// IsActive reports whether the issue is still unresolved.
func (i Issue) IsActive() bool {
	return i.ResolvedAt == nil
}

// LearningMethod records how a chronicle's predicted type was derived.
type LearningMethod string

// LearningMethod values.
const (
	LearningMethodPattern LearningMethod = "pattern"
	LearningMethodAI      LearningMethod = "ai"
)

// LearningEpisode is a per-chronicle record written for future model
// tuning; the pipeline writes it but never consumes it (§9 Open Question 3).
type LearningEpisode struct {
	EpisodeID   string
	ChronicleID string

	PredictedType DocumentType
	Confidence    int
	Method        LearningMethod

	SenderDomain   string
	ThreadPosition int

	FlowValidationPassed bool
	ReviewReason         *string

	RecordedAt time.Time
}

// CutoffStatus is the closed urgency-tier enumeration for the nearest
// outstanding cutoff (§4.6 Nearest-cutoff selection).
type CutoffStatus string

// CutoffStatus values.
const (
	CutoffSafe    CutoffStatus = "safe"
	CutoffWarning CutoffStatus = "warning"
	CutoffUrgent  CutoffStatus = "urgent"
	CutoffOverdue CutoffStatus = "overdue"
)

// AttentionComponents is the computed view fed into the attention
// scoring formula (§4.6).
type AttentionComponents struct {
	HasActiveIssue   bool
	IssueTypes       []IssueType
	PendingActions   int
	OverdueActions   int
	MaxActionPriority *ActionPriority
	DaysSinceActivity int
	DaysToETD        *int
	CutoffStatus     CutoffStatus
	NearestCutoffDays *int
}

// AttentionTier is the coarse operational-triage bucket over the
// attention score.
type AttentionTier string

// AttentionTier values.
const (
	TierStrong AttentionTier = "strong"
	TierMedium AttentionTier = "medium"
	TierWeak   AttentionTier = "weak"
	TierNoise  AttentionTier = "noise"
)
