package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var containerNumberPattern = regexp.MustCompile(`^[A-Z]{4}\d{7}$`)

// containerCarrierWords are stripped from the front of a raw MBL value
// before checking whether the remainder is pure numeric (and therefore
// actually a booking number, §4.1 "MBL repair").
var containerCarrierWords = []string{
	"MAERSK", "MSC", "CMA CGM", "CMACGM", "COSCO", "HAPAG", "HAPAG-LLOYD",
	"EVERGREEN", "ONE", "HMM", "ZIM", "YANG MING", "WAN HAI", "OOCL", "APL",
}

var sePrefixPattern = regexp.MustCompile(`^SE[A-Z]{2,}`)

var pureNumericPattern = regexp.MustCompile(`^\d+$`)

// ContainerNumbers filters a list of candidate container numbers down
// to those matching the closed shape [A-Z]{4}\d{7} (§4.1, §3 invariant
// P3, invariant text in the tested-properties section).
func ContainerNumbers(candidates []string) []string {
	out := make([]string, 0, len(candidates))

	for _, c := range candidates {
		trimmed := strings.ToUpper(strings.TrimSpace(c))
		if containerNumberPattern.MatchString(trimmed) {
			out = append(out, trimmed)
		}
	}

	return out
}

// RepairMBL strips a leading known-carrier word from a raw MBL value;
// if what remains is pure numeric, the value is actually a booking
// number, not an MBL, and is nulled. Returns the repaired MBL (nil if
// nulled) and the value to relocate to workOrderNumber, if the MBL
// begins with an SE-prefix and workOrderNumber is currently empty
// (§4.1 "MBL repair", "SE-prefix move").
func RepairMBL(raw string, workOrderNumber *string) (mbl *string, relocatedWorkOrder *string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, workOrderNumber
	}

	upper := strings.ToUpper(trimmed)
	stripped := upper

	for _, word := range containerCarrierWords {
		if strings.HasPrefix(stripped, word) {
			stripped = strings.TrimSpace(strings.TrimPrefix(stripped, word))
			break
		}
	}

	if pureNumericPattern.MatchString(stripped) {
		return nil, workOrderNumber
	}

	if sePrefixPattern.MatchString(stripped) && (workOrderNumber == nil || strings.TrimSpace(*workOrderNumber) == "") {
		relocated := stripped
		return nil, &relocated
	}

	result := stripped

	return &result, workOrderNumber
}

// NullIfNaN returns nil if raw is empty, the literal string "nan"
// (case-insensitive), or "null"/"none" — the common shapes an LLM emits
// for a field it could not extract (§4.1 "NaN/string numerics → null").
func NullIfNaN(raw string) *string {
	trimmed := strings.TrimSpace(raw)

	switch strings.ToLower(trimmed) {
	case "", "nan", "null", "none", "n/a":
		return nil
	default:
		return &trimmed
	}
}

// WeightToString converts a numeric weight value to its string form so
// the field is stored as a single scalar type regardless of how the
// LLM emitted it (§4.1 "weight number → string").
func WeightToString(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const summaryMaxChars = 150

// Summary truncates a summary to 150 characters with an ellipsis
// (§4.1, §6 "summary (≤150 chars)").
func Summary(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) <= summaryMaxChars {
		return trimmed
	}

	// Truncate on a rune boundary; 150 chars is well within ASCII-typical
	// freight summaries, but guard against multi-byte runes regardless.
	runes := []rune(trimmed)
	if len(runes) <= summaryMaxChars {
		return trimmed
	}

	return string(runes[:summaryMaxChars-1]) + "…"
}

// SplitScalarList comma/whitespace-splits a scalar string into a list,
// for fields the LLM sometimes returns as a single delimited string
// instead of an array (§4.1 "comma/whitespace-split of scalar strings
// into arrays for list fields").
func SplitScalarList(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	fields := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\t'
	})

	out := make([]string, 0, len(fields))

	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}

	return out
}
