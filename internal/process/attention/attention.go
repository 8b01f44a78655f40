// Package attention implements the attention engine (§4.6): a pure
// scoring function over a shipment's computed AttentionComponents, plus
// nearest-cutoff selection feeding CutoffStatus/NearestCutoffDays.
package attention

import (
	"math"
	"time"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// Weights holds every tunable score contribution (§4.6 "Formula",
// "weights are configuration; defaults shown"). DefaultWeights carries
// the spec-default values.
type Weights struct {
	ActiveIssue int

	IssueDelay         int
	IssueRollover      int
	IssueHold          int
	IssueDocumentation int
	IssueCustoms       int
	IssueDamage        int

	PendingActionEach int
	OverdueActionEach int

	PriorityCritical int
	PriorityHigh     int
	PriorityMedium   int
	PriorityLow      int

	ETDWithin1Day  int
	ETDWithin3Days int
	ETDWithin7Days int

	CutoffOverdue     int
	CutoffWithin1Day  int
	CutoffWithin3Days int

	StaleOver7Days int
	StaleOver3Days int
}

// DefaultWeights reproduces the spec's default configuration values.
func DefaultWeights() Weights {
	return Weights{
		ActiveIssue: 100,

		IssueDelay:         50,
		IssueRollover:      60,
		IssueHold:          40,
		IssueDocumentation: 30,
		IssueCustoms:       35,
		IssueDamage:        45,

		PendingActionEach: 10,
		OverdueActionEach: 40,

		PriorityCritical: 80,
		PriorityHigh:     40,
		PriorityMedium:   20,
		PriorityLow:      5,

		ETDWithin1Day:  75,
		ETDWithin3Days: 50,
		ETDWithin7Days: 25,

		CutoffOverdue:     100,
		CutoffWithin1Day:  60,
		CutoffWithin3Days: 30,

		StaleOver7Days: 40,
		StaleOver3Days: 20,
	}
}

// Tier thresholds (§4.6 "Tier thresholds").
const (
	strongThreshold = 60
	mediumThreshold = 35
	weakThreshold   = 15
)

// issueTypeWeight looks up the per-type contribution for one active
// issue (§4.6 "Per issue type").
func (w Weights) issueTypeWeight(t domain.IssueType) int {
	switch t {
	case domain.IssueDelay:
		return w.IssueDelay
	case domain.IssueRollover:
		return w.IssueRollover
	case domain.IssueHold:
		return w.IssueHold
	case domain.IssueDocumentation:
		return w.IssueDocumentation
	case domain.IssueCustoms:
		return w.IssueCustoms
	case domain.IssueDamage:
		return w.IssueDamage
	default:
		return 0
	}
}

func (w Weights) priorityBonus(p domain.ActionPriority) int {
	switch p {
	case domain.PriorityCritical:
		return w.PriorityCritical
	case domain.PriorityHigh:
		return w.PriorityHigh
	case domain.PriorityMedium:
		return w.PriorityMedium
	case domain.PriorityLow:
		return w.PriorityLow
	default:
		return 0
	}
}

// Score computes the attention score and tier for one shipment's
// components (§4.6 "Formula"). Score is never negative (invariant P5).
func Score(c domain.AttentionComponents, w Weights) (int, domain.AttentionTier) {
	score := 0

	if c.HasActiveIssue {
		score += w.ActiveIssue
	}

	for _, t := range c.IssueTypes {
		score += w.issueTypeWeight(t)
	}

	score += c.PendingActions * w.PendingActionEach
	score += c.OverdueActions * w.OverdueActionEach

	if c.MaxActionPriority != nil {
		score += w.priorityBonus(*c.MaxActionPriority)
	}

	if c.DaysToETD != nil && *c.DaysToETD >= 0 {
		switch {
		case *c.DaysToETD <= 1:
			score += w.ETDWithin1Day
		case *c.DaysToETD <= 3:
			score += w.ETDWithin3Days
		case *c.DaysToETD <= 7:
			score += w.ETDWithin7Days
		}
	}

	switch c.CutoffStatus {
	case domain.CutoffOverdue:
		score += w.CutoffOverdue
	case domain.CutoffUrgent:
		score += w.CutoffWithin1Day
	case domain.CutoffWarning:
		score += w.CutoffWithin3Days
	}

	switch {
	case c.DaysSinceActivity > 7:
		score -= w.StaleOver7Days
	case c.DaysSinceActivity > 3:
		score -= w.StaleOver3Days
	}

	if score < 0 {
		score = 0
	}

	return score, tierFor(score)
}

func tierFor(score int) domain.AttentionTier {
	switch {
	case score >= strongThreshold:
		return domain.TierStrong
	case score >= mediumThreshold:
		return domain.TierMedium
	case score >= weakThreshold:
		return domain.TierWeak
	default:
		return domain.TierNoise
	}
}

// Cutoff is one candidate deadline under consideration for nearest-cutoff
// selection (§4.6 "Nearest-cutoff selection").
type Cutoff struct {
	Type domain.IssueType // unused by selection itself; carried for callers that need to report which cutoff was nearest
	Date *time.Time
}

// NearestCutoffDays computes daysRemaining = ceil((date - today)/day) in
// local midnight-aligned time for each candidate with a non-nil date,
// and returns the minimum (negative allowed — overdue) along with its
// tiered CutoffStatus. ok is false when no candidate carries a date.
func NearestCutoffDays(cutoffs []Cutoff, now time.Time) (days int, status domain.CutoffStatus, ok bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	minDays := 0
	found := false

	for _, c := range cutoffs {
		if c.Date == nil {
			continue
		}

		d := time.Date(c.Date.Year(), c.Date.Month(), c.Date.Day(), 0, 0, 0, 0, today.Location())
		remaining := int(math.Ceil(d.Sub(today).Hours() / 24))

		if !found || remaining < minDays {
			minDays = remaining
			found = true
		}
	}

	if !found {
		return 0, "", false
	}

	return minDays, statusFor(minDays), true
}

func statusFor(daysRemaining int) domain.CutoffStatus {
	switch {
	case daysRemaining < 0:
		return domain.CutoffOverdue
	case daysRemaining <= 1:
		return domain.CutoffUrgent
	case daysRemaining <= 3:
		return domain.CutoffWarning
	default:
		return domain.CutoffSafe
	}
}
