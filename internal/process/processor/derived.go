package processor

import (
	"context"

	"github.com/google/uuid"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// emitDerivedRecords opens an Action record when step 7 determined one
// is owed, and an Issue record when the analysis carries an issue
// (§4.7 steps 7 and 10, "Action/issue record emission"). Failures are
// logged and swallowed so they never fail the whole message; a record
// that failed to save is not written again later.
func (p *Processor) emitDerivedRecords(ctx context.Context, shipmentID string, c *domain.Chronicle, det actionDetermination) {
	if det.HasAction {
		action := &domain.Action{
			ActionID:    "act_" + uuid.NewString(),
			ShipmentID:  shipmentID,
			ChronicleID: c.ChronicleID,
			Description: det.Description,
			Owner:       det.Owner,
			Priority:    det.Priority,
			DeadlineAt:  det.DeadlineAt,
			OpenedAt:    c.OccurredAt,
		}

		if err := p.store.SaveAction(ctx, action); err != nil {
			p.logger.Warn().Err(err).Str("chronicle_id", c.ChronicleID).Msg("failed to save action record")
		}
	}

	if c.Analysis.HasIssue {
		issueType := domain.IssueType("")
		if c.Analysis.IssueType != nil {
			issueType = *c.Analysis.IssueType
		}

		description := ""
		if c.Analysis.IssueDescription != nil {
			description = *c.Analysis.IssueDescription
		}

		issue := &domain.Issue{
			IssueID:     "iss_" + uuid.NewString(),
			ShipmentID:  shipmentID,
			ChronicleID: c.ChronicleID,
			Type:        issueType,
			Description: description,
			OpenedAt:    c.OccurredAt,
		}

		if err := p.store.SaveIssue(ctx, issue); err != nil {
			p.logger.Warn().Err(err).Str("chronicle_id", c.ChronicleID).Msg("failed to save issue record")
		}
	}
}
