package llm

import (
	"encoding/json"
	"fmt"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
	coreerrors "github.com/intoglo/chronicle-pipeline/internal/core/errors"
)

// wireAnalysis mirrors the analyze_freight_communication tool-call
// schema (§6 "ExtractedAnalysis schema") exactly, so the provider's
// free-text JSON response unmarshals directly without field-by-field
// translation.
type wireAnalysis struct {
	TransportMode    string `json:"transport_mode"`
	IdentifierSource string `json:"identifier_source"`

	BookingNumber    *string  `json:"booking_number"`
	MBLNumber        *string  `json:"mbl_number"`
	HBLNumber        *string  `json:"hbl_number"`
	ContainerNumbers []string `json:"container_numbers"`
	MAWBNumber       *string  `json:"mawb_number"`
	HAWBNumber       *string  `json:"hawb_number"`
	WorkOrderNumber  *string  `json:"work_order_number"`
	PRONumber        *string  `json:"pro_number"`
	ReferenceNumbers []string `json:"reference_numbers"`

	DocumentType string `json:"document_type"`
	FromParty    string `json:"from_party"`

	PORLocation *string `json:"por_location"`
	PORType     *string `json:"por_type"`
	POLLocation *string `json:"pol_location"`
	POLType     *string `json:"pol_type"`
	PODLocation *string `json:"pod_location"`
	PODType     *string `json:"pod_type"`
	POFDLocation *string `json:"pofd_location"`
	POFDType     *string `json:"pofd_type"`

	VesselName   *string `json:"vessel_name"`
	VoyageNumber *string `json:"voyage_number"`
	FlightNumber *string `json:"flight_number"`
	CarrierName  *string `json:"carrier_name"`

	ETD             *string `json:"etd"`
	ATD             *string `json:"atd"`
	ETA             *string `json:"eta"`
	ATA             *string `json:"ata"`
	PickupDate      *string `json:"pickup_date"`
	DeliveryDate    *string `json:"delivery_date"`
	SICutoff        *string `json:"si_cutoff"`
	VGMCutoff       *string `json:"vgm_cutoff"`
	CargoCutoff     *string `json:"cargo_cutoff"`
	DocCutoff       *string `json:"doc_cutoff"`
	LastFreeDay     *string `json:"last_free_day"`
	EmptyReturnDate *string `json:"empty_return_date"`
	PODDeliveryDate *string `json:"pod_delivery_date"`
	ActionDeadline  *string `json:"action_deadline"`

	ContainerType *string  `json:"container_type"`
	Weight        *string  `json:"weight"`
	Pieces        *int     `json:"pieces"`
	Commodity     *string  `json:"commodity"`

	Shipper   *wireParty `json:"shipper"`
	Consignee *wireParty `json:"consignee"`
	Notify    *wireParty `json:"notify"`

	InvoiceNumber *string  `json:"invoice_number"`
	Amount        *float64 `json:"amount"`
	Currency      *string  `json:"currency"`

	MessageType string `json:"message_type"`
	Sentiment   string `json:"sentiment"`
	Summary     string `json:"summary"`

	HasAction         bool    `json:"has_action"`
	ActionDescription *string `json:"action_description"`
	ActionOwner       *string `json:"action_owner"`
	ActionPriority    *string `json:"action_priority"`

	HasIssue         bool    `json:"has_issue"`
	IssueType        *string `json:"issue_type"`
	IssueDescription *string `json:"issue_description"`
}

type wireParty struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

// parseExtraction extracts the JSON object from a provider's free-text
// response and converts it into domain.ExtractedAnalysis.
func parseExtraction(responseText string) (domain.ExtractedAnalysis, error) {
	candidate := extractJSON(responseText)

	var w wireAnalysis
	if err := json.Unmarshal([]byte(candidate), &w); err != nil {
		return domain.ExtractedAnalysis{}, fmt.Errorf("%w: %v", coreerrors.ErrSchemaRejected, err)
	}

	return w.toDomain(), nil
}

func (w wireAnalysis) toDomain() domain.ExtractedAnalysis {
	a := domain.ExtractedAnalysis{
		TransportMode:    domain.TransportMode(orUnknown(w.TransportMode, string(domain.TransportUnknown))),
		IdentifierSource: domain.IdentifierSource(w.IdentifierSource),

		BookingNumber:    w.BookingNumber,
		MBLNumber:        w.MBLNumber,
		HBLNumber:        w.HBLNumber,
		ContainerNumbers: w.ContainerNumbers,
		MAWBNumber:       w.MAWBNumber,
		HAWBNumber:       w.HAWBNumber,
		WorkOrderNumber:  w.WorkOrderNumber,
		PRONumber:        w.PRONumber,
		ReferenceNumbers: w.ReferenceNumbers,

		DocumentType: domain.DocumentType(orUnknown(w.DocumentType, string(domain.DocUnknown))),
		FromParty:    domain.FromParty(orUnknown(w.FromParty, string(domain.PartyUnknown))),

		PORLocation: w.PORLocation,
		POLLocation: w.POLLocation,
		PODLocation: w.PODLocation,
		POFDLocation: w.POFDLocation,

		VesselName:   w.VesselName,
		VoyageNumber: w.VoyageNumber,
		FlightNumber: w.FlightNumber,
		CarrierName:  w.CarrierName,

		ETD:             w.ETD,
		ATD:             w.ATD,
		ETA:             w.ETA,
		ATA:             w.ATA,
		PickupDate:      w.PickupDate,
		DeliveryDate:    w.DeliveryDate,
		SICutoff:        w.SICutoff,
		VGMCutoff:       w.VGMCutoff,
		CargoCutoff:     w.CargoCutoff,
		DocCutoff:       w.DocCutoff,
		LastFreeDay:     w.LastFreeDay,
		EmptyReturnDate: w.EmptyReturnDate,
		PODDeliveryDate: w.PODDeliveryDate,
		ActionDeadline:  w.ActionDeadline,

		ContainerType: w.ContainerType,
		Weight:        w.Weight,
		Pieces:        w.Pieces,
		Commodity:     w.Commodity,

		InvoiceNumber: w.InvoiceNumber,
		Amount:        w.Amount,
		Currency:      w.Currency,

		MessageType: domain.MessageType(orUnknown(w.MessageType, string(domain.MessageTypeInformational))),
		Sentiment:   domain.Sentiment(orUnknown(w.Sentiment, string(domain.SentimentNeutral))),
		Summary:     w.Summary,

		HasAction:         w.HasAction,
		ActionDescription: w.ActionDescription,

		HasIssue:         w.HasIssue,
		IssueDescription: w.IssueDescription,
	}

	if w.PORType != nil {
		t := domain.LocationType(*w.PORType)
		a.PORType = &t
	}

	if w.POLType != nil {
		t := domain.LocationType(*w.POLType)
		a.POLType = &t
	}

	if w.PODType != nil {
		t := domain.LocationType(*w.PODType)
		a.PODType = &t
	}

	if w.POFDType != nil {
		t := domain.LocationType(*w.POFDType)
		a.POFDType = &t
	}

	if w.ActionOwner != nil {
		o := domain.ActionOwner(*w.ActionOwner)
		a.ActionOwner = &o
	}

	if w.ActionPriority != nil {
		p := domain.ActionPriority(*w.ActionPriority)
		a.ActionPriority = &p
	}

	if w.IssueType != nil {
		it := domain.IssueType(*w.IssueType)
		a.IssueType = &it
	}

	a.Shipper = w.Shipper.toDomain()
	a.Consignee = w.Consignee.toDomain()
	a.Notify = w.Notify.toDomain()

	return a
}

func (w *wireParty) toDomain() *domain.Party {
	if w == nil {
		return nil
	}

	return &domain.Party{Name: w.Name, Address: w.Address, Contact: w.Contact}
}

func orUnknown(v, fallback string) string {
	if v == "" {
		return fallback
	}

	return v
}
