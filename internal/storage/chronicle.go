package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// FindChronicleByMessageID implements ports.ChronicleRepository (§6
// "Idempotency key: messageId").
func (db *DB) FindChronicleByMessageID(ctx context.Context, messageID string) (*domain.Chronicle, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT chronicle_id, message_id, thread_id, shipment_id, subject, sender_address,
		       occurred_at, thread_position, analysis, confidence_score, confidence_source,
		       escalation_reason, reanalysis_flags, created_at
		FROM chronicles WHERE message_id = $1
	`, messageID)

	c, err := scanChronicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("find chronicle by message id: %w", err)
	}

	return c, nil
}

// SaveChronicle implements ports.ChronicleRepository.
func (db *DB) SaveChronicle(ctx context.Context, c *domain.Chronicle) error {
	analysisJSON, err := json.Marshal(c.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	flagsJSON, err := json.Marshal(c.ReanalysisFlags)
	if err != nil {
		return fmt.Errorf("marshal reanalysis flags: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO chronicles (
			chronicle_id, message_id, thread_id, shipment_id, subject, sender_address,
			occurred_at, thread_position, analysis, document_type, confidence_score,
			confidence_source, escalation_reason, reanalysis_flags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (message_id) DO NOTHING
	`,
		c.ChronicleID, c.MessageID, c.ThreadID, c.ShipmentID, SanitizeUTF8(c.Subject), c.SenderAddress,
		c.OccurredAt, c.ThreadPosition, analysisJSON, string(c.Analysis.DocumentType), c.ConfidenceScore,
		string(c.ConfidenceSource), c.EscalationReason, flagsJSON, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save chronicle: %w", err)
	}

	return nil
}

// CountErrorsForMessage implements ports.ChronicleRepository (§5 retry cap).
func (db *DB) CountErrorsForMessage(ctx context.Context, messageID string) (int, error) {
	var count int

	if err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM chronicle_errors WHERE message_id = $1
	`, messageID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count errors for message: %w", err)
	}

	return count, nil
}

// SaveChronicleError implements ports.ChronicleRepository.
func (db *DB) SaveChronicleError(ctx context.Context, messageID, stage, errMsg string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO chronicle_errors (message_id, stage, error_message, occurred_at)
		VALUES ($1, $2, $3, now())
	`, messageID, stage, SanitizeUTF8(errMsg))
	if err != nil {
		return fmt.Errorf("save chronicle error: %w", err)
	}

	return nil
}

// ThreadChronicles implements ports.ChronicleRepository (§4.7 step 4
// "thread context assembly"): the most recent up-to-limit chronicles in
// the thread strictly before beforeOccurredAt, returned oldest-first so
// thread position can be derived from len()+1.
func (db *DB) ThreadChronicles(ctx context.Context, threadID string, beforeOccurredAt time.Time, limit int) ([]domain.Chronicle, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT chronicle_id, message_id, thread_id, shipment_id, subject, sender_address,
		       occurred_at, thread_position, analysis, confidence_score, confidence_source,
		       escalation_reason, reanalysis_flags, created_at
		FROM chronicles
		WHERE thread_id = $1 AND occurred_at < $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`, threadID, beforeOccurredAt, limit)
	if err != nil {
		return nil, fmt.Errorf("query thread chronicles: %w", err)
	}
	defer rows.Close()

	var chronicles []domain.Chronicle

	for rows.Next() {
		c, err := scanChronicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread chronicle: %w", err)
		}

		chronicles = append(chronicles, *c)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate thread chronicles: %w", rows.Err())
	}

	// reverse to oldest-first
	for i, j := 0, len(chronicles)-1; i < j; i, j = i+1, j-1 {
		chronicles[i], chronicles[j] = chronicles[j], chronicles[i]
	}

	return chronicles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChronicle(row rowScanner) (*domain.Chronicle, error) {
	var (
		c            domain.Chronicle
		shipmentID   *string
		analysisJSON []byte
		flagsJSON    []byte
		confSource   string
	)

	if err := row.Scan(
		&c.ChronicleID, &c.MessageID, &c.ThreadID, &shipmentID, &c.Subject, &c.SenderAddress,
		&c.OccurredAt, &c.ThreadPosition, &analysisJSON, &c.ConfidenceScore, &confSource,
		&c.EscalationReason, &flagsJSON, &c.CreatedAt,
	); err != nil {
		return nil, err
	}

	c.ShipmentID = shipmentID
	c.ConfidenceSource = domain.ConfidenceSource(confSource)

	if len(analysisJSON) > 0 {
		if err := json.Unmarshal(analysisJSON, &c.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}

	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &c.ReanalysisFlags); err != nil {
			return nil, fmt.Errorf("unmarshal reanalysis flags: %w", err)
		}
	}

	return &c, nil
}
