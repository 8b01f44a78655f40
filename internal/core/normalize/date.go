package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDateLayout = "2006-01-02"

var monthAbbrevToNumber = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

// subjectDatePattern matches a day-ordinal/month-abbreviation/2-digit-year
// triple embedded in a subject line, e.g. "2nd FEB'26" (§4.1 "Date repair").
var subjectDatePattern = regexp.MustCompile(
	`(?i)(\d{1,2})(?:st|nd|rd|th)?\s*(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)['` + "`" + `]?(\d{2})`,
)

// RepairDateSwap detects an AI day/month swap by scanning the original
// subject line for a day/month/year triple, then swapping the ISO
// date's month and day components when the subject's day matches the
// AI's month and the subject's month matches the AI's day (§4.1 "Date
// repair"). Returns the input unchanged when no swap is detected or
// the input does not parse as YYYY-MM-DD.
func RepairDateSwap(isoDate, subject string) string {
	t, err := time.Parse(isoDateLayout, isoDate)
	if err != nil {
		return isoDate
	}

	match := subjectDatePattern.FindStringSubmatch(subject)
	if match == nil {
		return isoDate
	}

	subjectDay, err := strconv.Atoi(match[1])
	if err != nil {
		return isoDate
	}

	subjectMonth := monthAbbrevToNumber[strings.ToUpper(match[2])]

	aiMonth := int(t.Month())
	aiDay := t.Day()

	if subjectDay > 12 {
		return isoDate
	}

	if aiMonth == subjectDay && subjectMonth == aiDay {
		swapped := time.Date(t.Year(), time.Month(aiDay), aiMonth, 0, 0, 0, 0, time.UTC)
		return swapped.Format(isoDateLayout)
	}

	return isoDate
}

// IsValidCalendarDate reconstructs a calendar date from its YYYY-MM-DD
// components and rejects Feb-30-style impossibilities that time.Date
// would otherwise silently roll forward into the next month (§4.1
// "Date validity").
func IsValidCalendarDate(isoDate string) bool {
	t, err := time.Parse(isoDateLayout, isoDate)
	if err != nil {
		return false
	}

	return t.Format(isoDateLayout) == isoDate
}

// IsWithinYearWindow reports whether a YYYY-MM-DD date's year falls
// within [minYear, maxYear] inclusive (§4.3 "Reject years outside a
// configurable window (default 2024–2028)").
func IsWithinYearWindow(isoDate string, minYear, maxYear int) bool {
	t, err := time.Parse(isoDateLayout, isoDate)
	if err != nil {
		return false
	}

	return t.Year() >= minYear && t.Year() <= maxYear
}

// ValidateDate applies both the calendar-validity and year-window
// checks, returning the date unchanged if valid or nil if either check
// fails (§3 invariant P2).
func ValidateDate(isoDate *string, minYear, maxYear int) *string {
	if isoDate == nil {
		return nil
	}

	if !IsValidCalendarDate(*isoDate) || !IsWithinYearWindow(*isoDate, minYear, maxYear) {
		return nil
	}

	return isoDate
}

// OrderDates enforces ETD ≤ ETA ≤ LFD: violations null the offending
// later field (§4.3 "Ordering rule").
func OrderDates(etd, eta, lfd *string) (*string, *string, *string, error) {
	etdTime, err := parseOptional(etd)
	if err != nil {
		return etd, eta, lfd, fmt.Errorf("parsing etd: %w", err)
	}

	etaTime, err := parseOptional(eta)
	if err != nil {
		return etd, eta, lfd, fmt.Errorf("parsing eta: %w", err)
	}

	lfdTime, err := parseOptional(lfd)
	if err != nil {
		return etd, eta, lfd, fmt.Errorf("parsing lfd: %w", err)
	}

	if etdTime != nil && etaTime != nil && etdTime.After(*etaTime) {
		eta = nil
		etaTime = nil
	}

	if etaTime != nil && lfdTime != nil && etaTime.After(*lfdTime) {
		lfd = nil
	}

	return etd, eta, lfd, nil
}

func parseOptional(isoDate *string) (*time.Time, error) {
	if isoDate == nil {
		return nil, nil
	}

	t, err := time.Parse(isoDateLayout, *isoDate)
	if err != nil {
		return nil, nil //nolint:nilerr // unparsable dates are treated as absent, not fatal
	}

	return &t, nil
}
