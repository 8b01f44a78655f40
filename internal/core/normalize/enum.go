// Package normalize implements the pure, stateless normalization layer
// applied to raw LLM output before schema validation, and again
// defensively to pattern-derived output (§4.1). Normalization never
// raises: unrepairable values are nulled rather than rejected.
package normalize

import (
	"strings"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// EnumField names one of the closed enumeration fields the enum
// normalizer can remap.
type EnumField string

// EnumField values, matching §4.1 "Enum normalization".
const (
	FieldDocumentType  EnumField = "document_type"
	FieldPORType       EnumField = "por_type"
	FieldPOLType       EnumField = "pol_type"
	FieldPODType       EnumField = "pod_type"
	FieldPOFDType      EnumField = "pofd_type"
	FieldMessageType   EnumField = "message_type"
	FieldActionOwner   EnumField = "action_owner"
	FieldFromParty     EnumField = "from_party"
	FieldSentiment     EnumField = "sentiment"
	FieldTransportMode EnumField = "transport_mode"
)

// EnumMappings is an immutable snapshot of alias → canonical lookups,
// one map per field, loaded from the store's enum_mappings table and
// seeded with the built-in defaults below. It is safe for concurrent
// read access; callers obtain a fresh snapshot from the rule cache
// rather than mutating one in place.
type EnumMappings struct {
	byField map[EnumField]map[string]string
}

// NewEnumMappings builds a snapshot from built-in defaults overlaid
// with store-provided rows, later rows winning on alias collision.
func NewEnumMappings(rows []domain.EnumMapping) *EnumMappings {
	m := &EnumMappings{byField: defaultEnumAliases()}

	for _, row := range rows {
		field := EnumField(row.Field)
		if m.byField[field] == nil {
			m.byField[field] = map[string]string{}
		}

		m.byField[field][strings.ToLower(strings.TrimSpace(row.Alias))] = row.Canonical
	}

	return m
}

// Normalize maps a case-insensitive input value to its canonical enum
// value for the given field. Unknown inputs pass through unchanged —
// downstream schema validation is responsible for rejecting them.
func (m *EnumMappings) Normalize(field EnumField, input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	aliases, ok := m.byField[field]
	if !ok {
		return trimmed
	}

	if canonical, ok := aliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}

	return trimmed
}

func defaultEnumAliases() map[EnumField]map[string]string {
	return map[EnumField]map[string]string{
		FieldDocumentType: {
			"bkg confirmation":    string(domain.DocBookingConfirmation),
			"booking confirmed":   string(domain.DocBookingConfirmation),
			"vgm confirmed":       string(domain.DocVGMConfirmation),
			"si confirmed":        string(domain.DocSIConfirmation),
			"bl draft":            string(domain.DocDraftBL),
			"original bl":         string(domain.DocFinalBL),
			"telex release":       string(domain.DocTelexRelease),
			"seaway bill":         string(domain.DocSeaWaybill),
			"arrival notification": string(domain.DocArrivalNotice),
			"cargo release":       string(domain.DocContainerRelease),
			"do":                  string(domain.DocDeliveryOrder),
			"pod":                 string(domain.DocPODProofOfDelivery),
			"general":             string(domain.DocGeneralCorrespondence),
			"fyi":                 string(domain.DocNotification),
		},
		FieldFromParty: {
			"carrier":      string(domain.PartyOceanCarrier),
			"shipping line": string(domain.PartyOceanCarrier),
			"cha":          string(domain.PartyCustomsBroker),
			"broker":       string(domain.PartyCustomsBroker),
			"trucking company": string(domain.PartyTrucker),
			"cust":         string(domain.PartyCustomer),
		},
		FieldMessageType: {
			"confirmed": string(domain.MessageTypeConfirmation),
			"fyi":       string(domain.MessageTypeInformational),
			"alert":     string(domain.MessageTypeIssue),
		},
		FieldSentiment: {
			"critical": string(domain.SentimentUrgent),
			"asap":     string(domain.SentimentUrgent),
		},
		FieldActionOwner: {
			"line":    string(domain.OwnerCarrier),
			"cha":     string(domain.OwnerCustomsBroker),
			"client":  string(domain.OwnerConsignee),
		},
		FieldTransportMode: {
			"sea":      string(domain.TransportOcean),
			"vessel":   string(domain.TransportOcean),
			"airfreight": string(domain.TransportAir),
			"truck":    string(domain.TransportRoad),
		},
		FieldPORType:  locationTypeAliases(),
		FieldPOLType:  locationTypeAliases(),
		FieldPODType:  locationTypeAliases(),
		FieldPOFDType: locationTypeAliases(),
	}
}

func locationTypeAliases() map[string]string {
	return map[string]string{
		"seaport": string(domain.LocationTypePort),
		"port":    string(domain.LocationTypePort),
		"airport": string(domain.LocationTypeAirport),
		"icd":     string(domain.LocationTypeICD),
		"cfs":     string(domain.LocationTypeWarehouse),
		"warehouse": string(domain.LocationTypeWarehouse),
		"door":    string(domain.LocationTypeDoor),
	}
}
