package normalize

import (
	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// Config bounds the normalizer's date-window check (§4.3 "Reject years
// outside a configurable window").
type Config struct {
	MinYear int
	MaxYear int
}

// arrivalClassDocumentTypes are the only document types LastFreeDay is
// kept on; it is nulled elsewhere (§4.3 "LFD is only kept when the
// document type is an arrival-class type").
var arrivalClassDocumentTypes = map[domain.DocumentType]bool{
	domain.DocArrivalNotice:    true,
	domain.DocContainerRelease: true,
	domain.DocDeliveryOrder:    true,
	domain.DocCustomsClearance: true,
}

// DefaultConfig matches the spec's stated default window.
func DefaultConfig() Config {
	return Config{MinYear: 2024, MaxYear: 2028}
}

// Result wraps a normalized analysis together with the list of repairs
// applied, consumed by the confidence scorer as a small penalty per
// repair (§4.4 "Penalty for normalizer repairs triggered").
type Result struct {
	Analysis domain.ExtractedAnalysis
	Repairs  []string
}

// Apply runs the full normalization layer over a freshly extracted
// analysis: enum remapping, port/carrier/container canonicalization,
// field sanitization, and date-swap repair plus cross-field validation
// (§4.1 end to end, invoked from the processor's "Normalize +
// cross-validate" step, §4.7 step 6). Normalization never raises:
// unrepairable values are nulled, and every null is recorded as a
// repair.
func Apply(analysis domain.ExtractedAnalysis, subject string, mappings *EnumMappings, cfg Config) Result {
	r := Result{Analysis: analysis}

	r.Analysis.DocumentType = domain.DocumentType(mappings.Normalize(FieldDocumentType, string(analysis.DocumentType)))
	r.Analysis.FromParty = domain.FromParty(mappings.Normalize(FieldFromParty, string(analysis.FromParty)))
	r.Analysis.MessageType = domain.MessageType(mappings.Normalize(FieldMessageType, string(analysis.MessageType)))
	r.Analysis.Sentiment = domain.Sentiment(mappings.Normalize(FieldSentiment, string(analysis.Sentiment)))
	r.Analysis.TransportMode = domain.TransportMode(mappings.Normalize(FieldTransportMode, string(analysis.TransportMode)))

	if analysis.ActionOwner != nil {
		owner := domain.ActionOwner(mappings.Normalize(FieldActionOwner, string(*analysis.ActionOwner)))
		r.Analysis.ActionOwner = &owner
	}

	r.normalizeRoutingPoints(mappings)

	if analysis.CarrierName != nil {
		carrier := Carrier(*analysis.CarrierName)
		r.Analysis.CarrierName = &carrier
	}

	if analysis.ContainerType != nil {
		ct := ContainerType(*analysis.ContainerType)
		r.Analysis.ContainerType = &ct
	}

	r.Analysis.ContainerNumbers = ContainerNumbers(analysis.ContainerNumbers)
	if len(r.Analysis.ContainerNumbers) != len(analysis.ContainerNumbers) {
		r.Repairs = append(r.Repairs, "container_numbers_filtered")
	}

	r.repairMBLAndWorkOrder()
	r.repairDates(subject, cfg)
	r.truncateSummary()

	return r
}

func (r *Result) normalizeRoutingPoints(mappings *EnumMappings) {
	if r.Analysis.PORLocation != nil {
		loc := Port(*r.Analysis.PORLocation)
		r.Analysis.PORLocation = &loc
	}

	if r.Analysis.POLLocation != nil {
		loc := Port(*r.Analysis.POLLocation)
		r.Analysis.POLLocation = &loc
	}

	if r.Analysis.PODLocation != nil {
		loc := Port(*r.Analysis.PODLocation)
		r.Analysis.PODLocation = &loc
	}

	if r.Analysis.POFDLocation != nil {
		loc := Port(*r.Analysis.POFDLocation)
		r.Analysis.POFDLocation = &loc
	}

	if r.Analysis.PORType != nil {
		normalized := domain.LocationType(mappings.Normalize(FieldPORType, string(*r.Analysis.PORType)))
		r.Analysis.PORType = &normalized
	}

	if r.Analysis.POLType != nil {
		normalized := domain.LocationType(mappings.Normalize(FieldPOLType, string(*r.Analysis.POLType)))
		r.Analysis.POLType = &normalized
	}

	if r.Analysis.PODType != nil {
		normalized := domain.LocationType(mappings.Normalize(FieldPODType, string(*r.Analysis.PODType)))
		r.Analysis.PODType = &normalized
	}

	if r.Analysis.POFDType != nil {
		normalized := domain.LocationType(mappings.Normalize(FieldPOFDType, string(*r.Analysis.POFDType)))
		r.Analysis.POFDType = &normalized
	}
}

func (r *Result) repairMBLAndWorkOrder() {
	if r.Analysis.MBLNumber == nil {
		return
	}

	mbl, workOrder := RepairMBL(*r.Analysis.MBLNumber, r.Analysis.WorkOrderNumber)
	if mbl == nil && *r.Analysis.MBLNumber != "" {
		r.Repairs = append(r.Repairs, "mbl_nulled_pure_numeric_or_relocated")
	}

	r.Analysis.MBLNumber = mbl
	r.Analysis.WorkOrderNumber = workOrder
}

func (r *Result) repairDates(subject string, cfg Config) {
	dates := []**string{
		&r.Analysis.ETD, &r.Analysis.ATD, &r.Analysis.ETA, &r.Analysis.ATA,
		&r.Analysis.PickupDate, &r.Analysis.DeliveryDate,
		&r.Analysis.SICutoff, &r.Analysis.VGMCutoff, &r.Analysis.CargoCutoff, &r.Analysis.DocCutoff,
		&r.Analysis.LastFreeDay, &r.Analysis.EmptyReturnDate, &r.Analysis.PODDeliveryDate, &r.Analysis.ActionDeadline,
	}

	for _, d := range dates {
		if *d == nil {
			continue
		}

		repaired := RepairDateSwap(**d, subject)
		if repaired != **d {
			r.Repairs = append(r.Repairs, "date_swap_repaired")
		}

		validated := ValidateDate(&repaired, cfg.MinYear, cfg.MaxYear)
		if validated == nil {
			r.Repairs = append(r.Repairs, "date_nulled_invalid")
		}

		*d = validated
	}

	if !arrivalClassDocumentTypes[r.Analysis.DocumentType] && r.Analysis.LastFreeDay != nil {
		r.Analysis.LastFreeDay = nil
		r.Repairs = append(r.Repairs, "lfd_nulled_non_arrival_document")
	}

	etd, eta, lfd, err := OrderDates(r.Analysis.ETD, r.Analysis.ETA, r.Analysis.LastFreeDay)
	if err == nil {
		if eta == nil && r.Analysis.ETA != nil {
			r.Repairs = append(r.Repairs, "eta_nulled_ordering_violation")
		}

		if lfd == nil && r.Analysis.LastFreeDay != nil {
			r.Repairs = append(r.Repairs, "lfd_nulled_ordering_violation")
		}

		r.Analysis.ETD, r.Analysis.ETA, r.Analysis.LastFreeDay = etd, eta, lfd
	}
}

func (r *Result) truncateSummary() {
	truncated := Summary(r.Analysis.Summary)
	if truncated != r.Analysis.Summary {
		r.Repairs = append(r.Repairs, "summary_truncated")
	}

	r.Analysis.Summary = truncated
}
