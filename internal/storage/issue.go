package db

import (
	"context"
	"fmt"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// ActiveIssues implements ports.IssueRepository.
func (db *DB) ActiveIssues(ctx context.Context, shipmentID string) ([]domain.Issue, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT issue_id, shipment_id, chronicle_id, type, description, opened_at, resolved_at
		FROM issues WHERE shipment_id = $1 AND resolved_at IS NULL
	`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("query active issues: %w", err)
	}
	defer rows.Close()

	var issues []domain.Issue

	for rows.Next() {
		var (
			i         domain.Issue
			issueType string
		)

		if err := rows.Scan(&i.IssueID, &i.ShipmentID, &i.ChronicleID, &issueType, &i.Description, &i.OpenedAt, &i.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan active issue: %w", err)
		}

		i.Type = domain.IssueType(issueType)
		issues = append(issues, i)
	}

	return issues, rows.Err()
}

// SaveIssue implements ports.IssueRepository (§4.7 step 11 derived records).
func (db *DB) SaveIssue(ctx context.Context, i *domain.Issue) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO issues (issue_id, shipment_id, chronicle_id, type, description, opened_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, i.IssueID, i.ShipmentID, i.ChronicleID, string(i.Type), SanitizeUTF8(i.Description), i.OpenedAt, i.ResolvedAt)
	if err != nil {
		return fmt.Errorf("save issue: %w", err)
	}

	return nil
}
