package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const defaultLockTTL = 5 * time.Minute

// TryAcquireLock tries to acquire a row-based, TTL-expiring lock; the
// batch mode of cmd/digest-bot takes it so two overlapping batch runs do
// not process at the same time (the reanalysis CLI does not take it).
// Returns true if acquired, false if already held by another
// non-expired holder.
func (db *DB) TryAcquireLock(ctx context.Context, lockName, holderID string, ttl time.Duration) (bool, error) {
	if ttl == 0 {
		ttl = defaultLockTTL
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO scheduler_locks (lock_name, holder_id, expires_at)
		VALUES ($1, $2, now() + $3::interval)
		ON CONFLICT (lock_name) DO UPDATE SET holder_id = EXCLUDED.holder_id, expires_at = EXCLUDED.expires_at
		WHERE scheduler_locks.expires_at < now()
	`, lockName, holderID, ttl.String())
	if err != nil {
		return false, fmt.Errorf("try acquire lock: %w", err)
	}

	var actualHolder string

	if err := db.Pool.QueryRow(ctx, `
		SELECT holder_id FROM scheduler_locks WHERE lock_name = $1
	`, lockName).Scan(&actualHolder); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, fmt.Errorf("read lock holder: %w", err)
	}

	return actualHolder == holderID, nil
}

// ReleaseLock releases a held lock.
func (db *DB) ReleaseLock(ctx context.Context, lockName, holderID string) error {
	if _, err := db.Pool.Exec(ctx, `
		DELETE FROM scheduler_locks WHERE lock_name = $1 AND holder_id = $2
	`, lockName, holderID); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}

	return nil
}
