package db

import (
	"context"
	"fmt"
	"time"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// OpenActions implements ports.ActionRepository (§4.5 auto-resolution
// looks up a shipment's still-open actions).
func (db *DB) OpenActions(ctx context.Context, shipmentID string) ([]domain.Action, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT action_id, shipment_id, chronicle_id, description, owner, priority,
		       deadline_at, opened_at, completed_at, completion_note
		FROM actions WHERE shipment_id = $1 AND completed_at IS NULL
	`, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("query open actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.Action

	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan open action: %w", err)
		}

		actions = append(actions, *a)
	}

	return actions, rows.Err()
}

// SaveAction implements ports.ActionRepository (§4.7 step 11 derived records).
func (db *DB) SaveAction(ctx context.Context, a *domain.Action) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO actions (
			action_id, shipment_id, chronicle_id, description, owner, priority,
			deadline_at, opened_at, completed_at, completion_note
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ActionID, a.ShipmentID, a.ChronicleID, SanitizeUTF8(a.Description), string(a.Owner),
		string(a.Priority), a.DeadlineAt, a.OpenedAt, a.CompletedAt, a.CompletionNote)
	if err != nil {
		return fmt.Errorf("save action: %w", err)
	}

	return nil
}

// CloseAction implements ports.ActionRepository (§4.5 auto-resolution).
func (db *DB) CloseAction(ctx context.Context, actionID string, completedAt time.Time, note string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE actions SET completed_at = $2, completion_note = $3 WHERE action_id = $1
	`, actionID, completedAt, SanitizeUTF8(note))
	if err != nil {
		return fmt.Errorf("close action: %w", err)
	}

	return nil
}

func scanAction(row rowScanner) (*domain.Action, error) {
	var (
		a        domain.Action
		owner    string
		priority string
	)

	if err := row.Scan(
		&a.ActionID, &a.ShipmentID, &a.ChronicleID, &a.Description, &owner, &priority,
		&a.DeadlineAt, &a.OpenedAt, &a.CompletedAt, &a.CompletionNote,
	); err != nil {
		return nil, err
	}

	a.Owner = domain.ActionOwner(owner)
	a.Priority = domain.ActionPriority(priority)

	return &a, nil
}
