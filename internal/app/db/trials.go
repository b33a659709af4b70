package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetOrCreateTrialStart returns the user's free-trial origin timestamp,
// inserting one at now() on first use. The upsert makes concurrent first
// starts converge on a single origin.
func (q *Queries) GetOrCreateTrialStart(ctx context.Context, userID string) (time.Time, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO trial_sessions (user_id, started_at)
		VALUES ($1, now())
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING started_at`,
		userID)

	var startedAt time.Time
	if err := row.Scan(&startedAt); err != nil {
		return time.Time{}, err
	}

	return startedAt, nil
}

// GetTrialStart returns the trial origin without creating one.
func (q *Queries) GetTrialStart(ctx context.Context, userID string) (time.Time, error) {
	row := q.pool.QueryRow(ctx, `SELECT started_at FROM trial_sessions WHERE user_id = $1`, userID)

	var startedAt time.Time
	err := row.Scan(&startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	return startedAt, nil
}

// ResetTrialStart clears the stored trial origin, renewing the budget.
// Used when a user authenticates or purchases credit.
func (q *Queries) ResetTrialStart(ctx context.Context, userID string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM trial_sessions WHERE user_id = $1`, userID)
	return err
}
