// Package linker implements the shipment linker (§4.5): find-or-create
// shipment resolution by identifier priority, monotone stage
// progression, flow validation against FlowRule, and auto-resolution of
// open actions on a matching confirmation-class chronicle.
package linker

import (
	"context"
	"fmt"
	"strings"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	"github.com/intoglo/chronicle-pipeline/internal/core/ports"
	"github.com/intoglo/chronicle-pipeline/internal/process/rules"
)

// lowConfidenceThreshold marks a chronicle low_confidence during flow
// validation regardless of the flow-rule verdict (§4.5 "Flow validation").
const lowConfidenceThreshold = 60

// stageForDocumentType derives the shipment stage a document type
// contributes, used both to create a new shipment and to decide whether
// an existing shipment's stage should advance (§4.5 "Stage progression").
var stageForDocumentType = map[domain.DocumentType]domain.Stage{
	domain.DocBookingRequest:      domain.StagePending,
	domain.DocBookingConfirmation: domain.StageBooked,
	domain.DocSIConfirmation:      domain.StageSIStage,
	domain.DocVGMConfirmation:     domain.StageSIStage,
	domain.DocSOBConfirmation:     domain.StageDeparted,
	domain.DocDraftBL:             domain.StageDraftBL,
	domain.DocFinalBL:             domain.StageBLIssued,
	domain.DocTelexRelease:        domain.StageBLIssued,
	domain.DocSeaWaybill:          domain.StageBLIssued,
	domain.DocLEOCopy:             domain.StageDeparted,
	domain.DocScheduleUpdate:      domain.StageInTransit,
	domain.DocArrivalNotice:       domain.StageArrived,
	domain.DocCustomsClearance:    domain.StageCustoms,
	domain.DocContainerRelease:    domain.StageCleared,
	domain.DocDeliveryOrder:       domain.StageCleared,
	domain.DocPODProofOfDelivery:  domain.StageDelivered,
	domain.DocTruckingPOD:         domain.StageDelivered,
}

// StageFor returns the stage a document type contributes, or
// StagePending when the document type has no explicit mapping (generic
// correspondence contributes nothing).
func StageFor(documentType domain.DocumentType) (domain.Stage, bool) {
	stage, ok := stageForDocumentType[documentType]
	return stage, ok
}

// LinkedBy identifies which identifier resolved the shipment, for the
// processor's result payload (§4.7 step 12).
type LinkedBy string

// LinkedBy values.
const (
	LinkedByBooking   LinkedBy = "booking_number"
	LinkedByMBL       LinkedBy = "mbl_number"
	LinkedByWorkOrder LinkedBy = "work_order_number"
	LinkedByContainer LinkedBy = "container_number"
	LinkedByCreated   LinkedBy = "created"
	LinkedByNone      LinkedBy = "none"
)

// Outcome is the linker's verdict for one chronicle.
type Outcome struct {
	ShipmentID *string
	LinkedBy   LinkedBy
	Flags      domain.ReanalysisFlags
}

// Linker resolves chronicles against the shipment aggregate.
type Linker struct {
	shipments ports.ShipmentRepository
	actions   ports.ActionRepository
	issues    ports.IssueRepository
	ruleCache *rules.Cache
}

// New builds a Linker.
func New(shipments ports.ShipmentRepository, actions ports.ActionRepository, issues ports.IssueRepository, ruleCache *rules.Cache) *Linker {
	return &Linker{shipments: shipments, actions: actions, issues: issues, ruleCache: ruleCache}
}

// Link resolves the shipment for one chronicle, advances its stage,
// auto-resolves matching open actions, validates flow, and persists the
// shipment. It is the entry point invoked from the processor's "Link
// shipment" step (§4.7 step 10).
func (l *Linker) Link(ctx context.Context, c *domain.Chronicle) (Outcome, error) {
	identifiers := identifiersFromAnalysis(c.Analysis)

	shipment, linkedBy, err := l.findOrCreate(ctx, identifiers, c)
	if err != nil {
		return Outcome{}, fmt.Errorf("find-or-create shipment: %w", err)
	}

	if shipment == nil {
		return Outcome{LinkedBy: LinkedByNone}, nil
	}

	flags, err := l.validateFlow(ctx, shipment.Stage, c)
	if err != nil {
		return Outcome{}, fmt.Errorf("validate flow: %w", err)
	}

	l.mergeKnownValues(shipment, c.Analysis)
	l.advanceStage(shipment, c)

	if err := l.shipments.SaveShipment(ctx, shipment); err != nil {
		return Outcome{}, fmt.Errorf("save shipment: %w", err)
	}

	if domain.ConfirmationDocumentTypes[c.Analysis.DocumentType] {
		if err := l.autoResolveActions(ctx, shipment.ShipmentID, c); err != nil {
			return Outcome{}, fmt.Errorf("auto-resolve actions: %w", err)
		}
	}

	return Outcome{ShipmentID: &shipment.ShipmentID, LinkedBy: linkedBy, Flags: flags}, nil
}

func identifiersFromAnalysis(a domain.ExtractedAnalysis) domain.Identifiers {
	return domain.Identifiers{
		BookingNumber:    a.BookingNumber,
		MBLNumber:        a.MBLNumber,
		WorkOrderNumber:  a.WorkOrderNumber,
		ContainerNumbers: a.ContainerNumbers,
	}
}

// findOrCreate implements §4.5 "Find-or-create" in strict identifier
// priority order.
func (l *Linker) findOrCreate(ctx context.Context, ids domain.Identifiers, c *domain.Chronicle) (*domain.Shipment, LinkedBy, error) {
	if ids.BookingNumber != nil {
		if s, err := l.shipments.FindShipmentByBooking(ctx, *ids.BookingNumber); err != nil {
			return nil, "", err
		} else if s != nil {
			return s, LinkedByBooking, nil
		}
	}

	if ids.MBLNumber != nil {
		if s, err := l.shipments.FindShipmentByMBL(ctx, *ids.MBLNumber); err != nil {
			return nil, "", err
		} else if s != nil {
			return s, LinkedByMBL, nil
		}
	}

	if ids.WorkOrderNumber != nil {
		if s, err := l.shipments.FindShipmentByWorkOrder(ctx, *ids.WorkOrderNumber); err != nil {
			return nil, "", err
		} else if s != nil {
			return s, LinkedByWorkOrder, nil
		}
	}

	for _, container := range ids.ContainerNumbers {
		s, err := l.shipments.FindShipmentByContainer(ctx, container)
		if err != nil {
			return nil, "", err
		}

		if s != nil {
			return s, LinkedByContainer, nil
		}
	}

	if !ids.HasAny() {
		return nil, LinkedByNone, nil
	}

	stage, _ := StageFor(c.Analysis.DocumentType)

	shipment := &domain.Shipment{
		ShipmentID:     newShipmentID(c),
		Identifiers:    ids,
		Stage:          stage,
		StageUpdatedAt: c.OccurredAt,
		Shipper:        c.Analysis.Shipper,
		Consignee:      c.Analysis.Consignee,
		Notify:         c.Analysis.Notify,
		Vessel:         c.Analysis.VesselName,
		Carrier:        c.Analysis.CarrierName,
		ETD:            c.Analysis.ETD,
		ETA:            c.Analysis.ETA,
		SICutoff:       c.Analysis.SICutoff,
		VGMCutoff:      c.Analysis.VGMCutoff,
		CargoCutoff:    c.Analysis.CargoCutoff,
		DocCutoff:      c.Analysis.DocCutoff,
		CreatedAt:      c.OccurredAt,
		UpdatedAt:      c.OccurredAt,
	}

	if err := l.shipments.CreateShipment(ctx, shipment); err != nil {
		return nil, "", err
	}

	return shipment, LinkedByCreated, nil
}

func newShipmentID(c *domain.Chronicle) string {
	// Identifier-derived deterministic seed keeps repeated find-or-create
	// races idempotent at the store layer without a separate lock.
	switch {
	case c.Analysis.BookingNumber != nil:
		return "shp_bkg_" + *c.Analysis.BookingNumber
	case c.Analysis.MBLNumber != nil:
		return "shp_mbl_" + *c.Analysis.MBLNumber
	case c.Analysis.WorkOrderNumber != nil:
		return "shp_wo_" + *c.Analysis.WorkOrderNumber
	case len(c.Analysis.ContainerNumbers) > 0:
		return "shp_cntr_" + c.Analysis.ContainerNumbers[0]
	default:
		return "shp_" + c.ChronicleID
	}
}

// advanceStage implements §4.5 "Stage progression": the shipment's
// stage only ever moves forward (§3 invariant P4, R3 order-independent
// progression).
func (l *Linker) advanceStage(shipment *domain.Shipment, c *domain.Chronicle) {
	newStage, ok := StageFor(c.Analysis.DocumentType)
	if !ok || newStage <= shipment.Stage {
		return
	}

	shipment.StageHistory = append(shipment.StageHistory, domain.StageTransition{
		FromStage:      shipment.Stage,
		ToStage:        newStage,
		TriggerDocType: c.Analysis.DocumentType,
		TransitionedAt: c.OccurredAt,
	})
	shipment.Stage = newStage
	shipment.StageUpdatedAt = c.OccurredAt
}

// mergeKnownValues folds non-null identifiers/dates from the new
// chronicle into the shipment, later values overriding earlier ones
// within the same thread chronology (§4.5 "Known-values merge").
func (l *Linker) mergeKnownValues(shipment *domain.Shipment, a domain.ExtractedAnalysis) {
	if a.BookingNumber != nil {
		shipment.Identifiers.BookingNumber = a.BookingNumber
	}

	if a.MBLNumber != nil {
		shipment.Identifiers.MBLNumber = a.MBLNumber
	}

	if a.WorkOrderNumber != nil {
		shipment.Identifiers.WorkOrderNumber = a.WorkOrderNumber
	}

	if len(a.ContainerNumbers) > 0 {
		shipment.Identifiers.ContainerNumbers = mergeContainerNumbers(shipment.Identifiers.ContainerNumbers, a.ContainerNumbers)
	}

	if a.ETD != nil {
		shipment.ETD = a.ETD
	}

	if a.ETA != nil {
		shipment.ETA = a.ETA
	}

	if a.SICutoff != nil {
		shipment.SICutoff = a.SICutoff
	}

	if a.VGMCutoff != nil {
		shipment.VGMCutoff = a.VGMCutoff
	}

	if a.CargoCutoff != nil {
		shipment.CargoCutoff = a.CargoCutoff
	}

	if a.DocCutoff != nil {
		shipment.DocCutoff = a.DocCutoff
	}

	if a.VesselName != nil {
		shipment.Vessel = a.VesselName
	}

	if a.CarrierName != nil {
		shipment.Carrier = a.CarrierName
	}

	if a.Shipper != nil {
		shipment.Shipper = a.Shipper
	}

	if a.Consignee != nil {
		shipment.Consignee = a.Consignee
	}

	if a.Notify != nil {
		shipment.Notify = a.Notify
	}
}

func mergeContainerNumbers(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c] = true
	}

	merged := append([]string{}, existing...)

	for _, c := range incoming {
		if !seen[c] {
			merged = append(merged, c)
			seen[c] = true
		}
	}

	return merged
}

// validateFlow implements §4.5 "Flow validation".
func (l *Linker) validateFlow(ctx context.Context, stage domain.Stage, c *domain.Chronicle) (domain.ReanalysisFlags, error) {
	flags := domain.ReanalysisFlags{}

	verdict, err := l.ruleCache.LookupFlowRule(ctx, stage, c.Analysis.DocumentType)
	if err != nil {
		return flags, err
	}

	switch verdict {
	case domain.FlowImpossible:
		flags.ImpossibleFlow = true
	case domain.FlowUnexpected:
		flags.UnexpectedFlow = true
	}

	if c.ConfidenceScore < lowConfidenceThreshold {
		flags.LowConfidence = true
	}

	return flags, nil
}

// autoResolveActions implements §4.5 "Auto-resolution": a
// confirmation-class document type closes open actions on the same
// shipment whose description matches the type's keyword list (§3
// invariant P7).
func (l *Linker) autoResolveActions(ctx context.Context, shipmentID string, c *domain.Chronicle) error {
	keywords, err := l.ruleCache.CompletionKeywords(ctx, c.Analysis.DocumentType)
	if err != nil {
		return err
	}

	if len(keywords) == 0 {
		return nil
	}

	openActions, err := l.actions.OpenActions(ctx, shipmentID)
	if err != nil {
		return err
	}

	for _, action := range openActions {
		if !action.IsOpen() {
			continue
		}

		if matchesAnyKeyword(action.Description, keywords) {
			if err := l.actions.CloseAction(ctx, action.ActionID, c.OccurredAt, ""); err != nil {
				return fmt.Errorf("close action %s: %w", action.ActionID, err)
			}
		}
	}

	return nil
}

func matchesAnyKeyword(description string, keywords []string) bool {
	lower := strings.ToLower(description)

	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}
