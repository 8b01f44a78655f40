package processor

import (
	"strings"
	"time"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// urgentDeadlineWindow is the fixed window used when an ActionRule's
// DeadlineType is "urgent" (§4.7 step 7 "urgent = 24h").
const urgentDeadlineWindow = 24 * time.Hour

// priorityBoostCutoffDays is how close a cutoff must be to bump the
// computed priority by one level (§4.7 step 7 "cutoff-proximity boost").
const priorityBoostCutoffDays = 3

const isoDateLayout = "2006-01-02"

// actionDetermination is the per-message result of §4.7 step 7.
type actionDetermination struct {
	HasAction   bool
	Description string
	Owner       domain.ActionOwner
	Priority    domain.ActionPriority
	DeadlineAt  *time.Time
}

// determineAction applies the ActionRule's flip keywords, priority
// boosts, and deadline computation to one chronicle's analysis (§4.7
// step 7).
func determineAction(rule domain.ActionRule, found bool, a domain.ExtractedAnalysis, receivedAt time.Time) actionDetermination {
	hasAction := a.HasAction
	if found {
		hasAction = applyFlipKeywords(rule, a, hasAction)
	}

	if !hasAction {
		return actionDetermination{HasAction: false}
	}

	description := renderDescription(rule, a)

	owner := rule.Owner
	if a.ActionOwner != nil {
		owner = *a.ActionOwner
	}

	priority := rule.PriorityBase
	if a.ActionPriority != nil {
		priority = *a.ActionPriority
	}

	priority = boostPriority(priority, rule.PriorityBoostKeywords, description, nearestCutoffWithin(a, receivedAt, priorityBoostCutoffDays))

	deadline := computeDeadline(rule, a, receivedAt)

	return actionDetermination{
		HasAction:   true,
		Description: description,
		Owner:       owner,
		Priority:    priority,
		DeadlineAt:  deadline,
	}
}

func applyFlipKeywords(rule domain.ActionRule, a domain.ExtractedAnalysis, current bool) bool {
	text := strings.ToLower(a.Summary)
	if a.ActionDescription != nil {
		text += " " + strings.ToLower(*a.ActionDescription)
	}

	for _, kw := range rule.FlipToActionKeywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}

	for _, kw := range rule.FlipToNoActionKeywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return false
		}
	}

	return current
}

func renderDescription(rule domain.ActionRule, a domain.ExtractedAnalysis) string {
	if a.ActionDescription != nil && *a.ActionDescription != "" {
		return *a.ActionDescription
	}

	if rule.DescriptionTemplate != "" {
		return rule.DescriptionTemplate
	}

	return rule.Verb
}

func boostPriority(base domain.ActionPriority, keywords []string, description string, cutoffNear bool) domain.ActionPriority {
	lower := strings.ToLower(description)

	boosted := false

	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			boosted = true
			break
		}
	}

	if !boosted && !cutoffNear {
		return base
	}

	return bumpPriority(base)
}

func bumpPriority(p domain.ActionPriority) domain.ActionPriority {
	switch p {
	case domain.PriorityLow:
		return domain.PriorityMedium
	case domain.PriorityMedium:
		return domain.PriorityHigh
	case domain.PriorityHigh:
		return domain.PriorityCritical
	default:
		return domain.PriorityCritical
	}
}

// nearestCutoffWithin reports whether any cutoff field on the analysis
// falls within the given number of days of receivedAt.
func nearestCutoffWithin(a domain.ExtractedAnalysis, receivedAt time.Time, days int) bool {
	for _, cutoff := range []*string{a.SICutoff, a.VGMCutoff, a.CargoCutoff, a.DocCutoff} {
		if cutoff == nil {
			continue
		}

		t, err := time.Parse(isoDateLayout, *cutoff)
		if err != nil {
			continue
		}

		remaining := t.Sub(receivedAt).Hours() / 24
		if remaining >= 0 && remaining <= float64(days) {
			return true
		}
	}

	return false
}

// computeDeadline implements the three DeadlineType strategies (§4.7
// step 7): fixed days from receipt, cutoff-relative with an offset, or
// a fixed urgent window.
func computeDeadline(rule domain.ActionRule, a domain.ExtractedAnalysis, receivedAt time.Time) *time.Time {
	switch rule.DeadlineType {
	case domain.DeadlineFixedDays:
		if rule.DeadlineDays == nil {
			return nil
		}

		d := receivedAt.AddDate(0, 0, *rule.DeadlineDays)

		return &d

	case domain.DeadlineCutoffRelative:
		return cutoffRelativeDeadline(rule, a)

	case domain.DeadlineUrgent:
		d := receivedAt.Add(urgentDeadlineWindow)

		return &d

	default:
		return nil
	}
}

func cutoffRelativeDeadline(rule domain.ActionRule, a domain.ExtractedAnalysis) *time.Time {
	if rule.CutoffField == nil {
		return nil
	}

	cutoff := cutoffFieldValue(a, *rule.CutoffField)
	if cutoff == nil {
		return nil
	}

	t, err := time.Parse(isoDateLayout, *cutoff)
	if err != nil {
		return nil
	}

	offset := 0
	if rule.DeadlineDays != nil {
		offset = *rule.DeadlineDays
	}

	d := t.AddDate(0, 0, offset)

	return &d
}

func cutoffFieldValue(a domain.ExtractedAnalysis, field string) *string {
	switch field {
	case "si_cutoff":
		return a.SICutoff
	case "vgm_cutoff":
		return a.VGMCutoff
	case "cargo_cutoff":
		return a.CargoCutoff
	case "doc_cutoff":
		return a.DocCutoff
	case "last_free_day":
		return a.LastFreeDay
	default:
		return nil
	}
}
