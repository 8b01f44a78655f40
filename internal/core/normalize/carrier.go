package normalize

import "strings"

// canonicalCarriers lists the ~15 canonical ocean-carrier names this
// pipeline recognizes, each with its common textual variants. Matching
// is case-insensitive substring containment, first match wins in
// declaration order.
var canonicalCarriers = []struct {
	canonical string
	variants  []string
}{
	{"Maersk", []string{"maersk", "maeu"}},
	{"MSC", []string{"msc", "mediterranean shipping"}},
	{"CMA CGM", []string{"cma cgm", "cma-cgm", "cmacgm"}},
	{"COSCO", []string{"cosco"}},
	{"Hapag-Lloyd", []string{"hapag", "hlcu"}},
	{"ONE", []string{"ocean network express", "one line", " one "}},
	{"Evergreen", []string{"evergreen", "egl"}},
	{"Yang Ming", []string{"yang ming", "yml"}},
	{"HMM", []string{"hmm", "hyundai merchant marine"}},
	{"ZIM", []string{"zim"}},
	{"Wan Hai", []string{"wan hai", "whl"}},
	{"PIL", []string{"pacific international lines", "pil"}},
	{"OOCL", []string{"oocl", "orient overseas"}},
	{"APL", []string{"apl", "american president lines"}},
	{"Sealand", []string{"sealand"}},
}

// Carrier maps a known carrier-name variant to one of the canonical
// names via case-insensitive substring match (§4.1 "Carrier
// normalization"). If no variant matches, the trimmed input is
// returned unchanged.
func Carrier(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}

	lower := " " + strings.ToLower(trimmed) + " "

	for _, entry := range canonicalCarriers {
		for _, variant := range entry.variants {
			if strings.Contains(lower, variant) {
				return entry.canonical
			}
		}
	}

	return trimmed
}
