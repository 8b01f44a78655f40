package normalize

import (
	"regexp"
	"strings"
)

var unlocodePattern = regexp.MustCompile(`^[A-Z]{5}$`)

// knownCityLocodes maps a handful of common freight-lane city names to
// their UN/LOCODE. The store's enum_mappings table can extend this set;
// these are the seed defaults baked into every build.
var knownCityLocodes = map[string]string{
	"shanghai":    "CNSHA",
	"ningbo":      "CNNGB",
	"shenzhen":    "CNSZX",
	"qingdao":     "CNTAO",
	"singapore":   "SGSIN",
	"rotterdam":   "NLRTM",
	"hamburg":     "DEHAM",
	"antwerp":     "BEANR",
	"los angeles": "USLAX",
	"long beach":  "USLGB",
	"new york":    "USNYC",
	"savannah":    "USSAV",
	"mumbai":      "INBOM",
	"nhava sheva": "INNSA",
	"chennai":     "INMAA",
	"jnpt":        "INNSA",
	"colombo":     "LKCMB",
	"dubai":       "AEDXB",
	"jebel ali":   "AEJEA",
	"hong kong":   "HKHKG",
	"busan":       "KRPUS",
	"tokyo":       "JPTYO",
	"yokohama":    "JPYOK",
}

var portSentinels = map[string]bool{
	"<unknown>": true,
	"unknown":   true,
	"n/a":       true,
	"na":        true,
	"tbd":       true,
	"":          true,
}

// Port normalizes a free-form port/place string to a 5-letter UN/LOCODE.
// Sentinels such as "unknown" or "n/a" give the empty string; an exact
// known city name gives its code; input of the UN/LOCODE shape is
// returned upper-cased; otherwise a known city contained in the string
// gives its code; else the trimmed input is returned (§4.1 "Port
// normalization"). List input goes through PortFromList.
func Port(raw string) string {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	if portSentinels[lower] {
		return ""
	}

	if locode, ok := knownCityLocodes[lower]; ok {
		return locode
	}

	upper := strings.ToUpper(trimmed)
	if unlocodePattern.MatchString(upper) {
		return upper
	}

	for city, locode := range knownCityLocodes {
		if strings.Contains(lower, city) {
			return locode
		}
	}

	return trimmed
}

// PortFromList applies Port to the first element of a single-element
// list input, or the empty string if the list is empty. The LLM
// sometimes emits routing points as one-element arrays rather than
// scalars; this normalizes both shapes to the same contract.
func PortFromList(raw []string) string {
	if len(raw) == 0 {
		return ""
	}

	return Port(raw[0])
}
