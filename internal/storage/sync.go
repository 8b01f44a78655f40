package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetSyncWatermark implements ports.SyncStateRepository (§6
// "chronicle_sync_state"): the stored ingestion high-water mark. The
// batch CLI driver does not read it.
func (db *DB) GetSyncWatermark(ctx context.Context) (time.Time, error) {
	var watermark time.Time

	err := db.Pool.QueryRow(ctx, `SELECT watermark FROM chronicle_sync_state WHERE id = TRUE`).Scan(&watermark)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}

		return time.Time{}, fmt.Errorf("get sync watermark: %w", err)
	}

	return watermark, nil
}

// SetSyncWatermark implements ports.SyncStateRepository.
func (db *DB) SetSyncWatermark(ctx context.Context, t time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO chronicle_sync_state (id, watermark) VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET watermark = EXCLUDED.watermark
	`, t)
	if err != nil {
		return fmt.Errorf("set sync watermark: %w", err)
	}

	return nil
}
