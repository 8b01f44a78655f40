package normalize

import "regexp"

type containerTypeRule struct {
	pattern *regexp.Regexp
	code    string
}

// containerTypeTable is an ordered regex table mapping free-form
// container-type descriptions to industry codes. Order matters: more
// specific patterns (reefer, high cube, open top) must precede the
// generic dry-van fallback for the same nominal length (§4.1
// "Container-type normalization").
var containerTypeTable = []containerTypeRule{
	{regexp.MustCompile(`(?i)20.{0,6}(reefer|rf|refrigerated)`), "20RF"},
	{regexp.MustCompile(`(?i)40.{0,6}(reefer|rf|refrigerated)`), "40RF"},
	{regexp.MustCompile(`(?i)45.{0,6}(reefer|rf|refrigerated)`), "45RF"},
	{regexp.MustCompile(`(?i)20.{0,6}(open.?top|ot\b)`), "20OT"},
	{regexp.MustCompile(`(?i)40.{0,6}(open.?top|ot\b)`), "40OT"},
	{regexp.MustCompile(`(?i)20.{0,6}(flat.?rack|fr\b)`), "20FR"},
	{regexp.MustCompile(`(?i)40.{0,6}(flat.?rack|fr\b)`), "40FR"},
	{regexp.MustCompile(`(?i)45.{0,6}(high.?cube|hc\b)`), "45HC"},
	{regexp.MustCompile(`(?i)40.{0,6}(high.?cube|hc\b)`), "40HC"},
	{regexp.MustCompile(`(?i)^45`), "45HC"},
	{regexp.MustCompile(`(?i)^40`), "40GP"},
	{regexp.MustCompile(`(?i)^20`), "20GP"},
}

// ContainerType maps free-form descriptions like "40ft high cube" to
// the industry code (20GP, 40HC, 40RF, …) via the ordered regex table.
// Unrecognized input is returned unchanged.
func ContainerType(raw string) string {
	for _, rule := range containerTypeTable {
		if rule.pattern.MatchString(raw) {
			return rule.code
		}
	}

	return raw
}
