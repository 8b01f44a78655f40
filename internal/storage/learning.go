package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/intoglo/chronicle-pipeline/internal/core/domain"
)

// SaveLearningEpisode implements ports.LearningRepository (§4.7 step 12).
// Episodes are read back only in aggregate, through SenderAccuracy.
func (db *DB) SaveLearningEpisode(ctx context.Context, e *domain.LearningEpisode) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO learning_episodes (
			episode_id, chronicle_id, predicted_type, confidence, method,
			sender_domain, thread_position, flow_validation_passed, review_reason, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, e.EpisodeID, e.ChronicleID, string(e.PredictedType), e.Confidence, string(e.Method),
		e.SenderDomain, e.ThreadPosition, e.FlowValidationPassed, e.ReviewReason, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("save learning episode: %w", err)
	}

	return nil
}

// SenderAccuracy implements ports.LearningRepository: the fraction of a
// sender domain's past episodes for a document type that passed flow
// validation, used as the confidence scorer's optional sender-history
// signal.
func (db *DB) SenderAccuracy(ctx context.Context, senderDomain string, documentType domain.DocumentType) (float64, bool, error) {
	var (
		total  int
		passed int
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE flow_validation_passed)
		FROM learning_episodes WHERE sender_domain = $1 AND predicted_type = $2
	`, senderDomain, string(documentType)).Scan(&total, &passed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("sender accuracy: %w", err)
	}

	if total == 0 {
		return 0, false, nil
	}

	return float64(passed) / float64(total), true, nil
}
