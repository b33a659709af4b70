package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Recording is one row of the recording catalog, keyed by the provider's
// egress ID. Rows are created when an egress starts and updated to stopped
// when it is swept; they persist indefinitely for playback.
type Recording struct {
	EgressID  string     `json:"egressId"`
	RoomName  string     `json:"roomName"`
	UserID    *string    `json:"userId,omitempty"`
	FilePath  string     `json:"filePath"`
	PublicURL string     `json:"publicUrl"`
	Bucket    string     `json:"bucket"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"startedAt"`
	StoppedAt *time.Time `json:"stoppedAt,omitempty"`
}

// Recording status values.
const (
	RecordingStatusStarted = "started"
	RecordingStatusStopped = "stopped"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("db: not found")

// CreateRecording inserts a started recording row. Re-inserting the same
// egress ID (a retried start) refreshes the row rather than failing.
func (q *Queries) CreateRecording(ctx context.Context, rec Recording) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO recordings (egress_id, room_name, user_id, file_path, public_url, bucket, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (egress_id) DO UPDATE SET
			room_name = EXCLUDED.room_name,
			user_id = EXCLUDED.user_id,
			file_path = EXCLUDED.file_path,
			public_url = EXCLUDED.public_url,
			bucket = EXCLUDED.bucket,
			status = EXCLUDED.status`,
		rec.EgressID, rec.RoomName, rec.UserID, rec.FilePath, rec.PublicURL, rec.Bucket, RecordingStatusStarted)
	return err
}

// MarkRecordingStopped transitions a recording row to stopped.
func (q *Queries) MarkRecordingStopped(ctx context.Context, egressID string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE recordings
		SET status = $2, stopped_at = now()
		WHERE egress_id = $1`,
		egressID, RecordingStatusStopped)
	return err
}

// GetRecording fetches one recording row by egress ID.
func (q *Queries) GetRecording(ctx context.Context, egressID string) (*Recording, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT egress_id, room_name, user_id, file_path, public_url, bucket, status, started_at, stopped_at
		FROM recordings
		WHERE egress_id = $1`,
		egressID)

	var rec Recording
	err := row.Scan(&rec.EgressID, &rec.RoomName, &rec.UserID, &rec.FilePath,
		&rec.PublicURL, &rec.Bucket, &rec.Status, &rec.StartedAt, &rec.StoppedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// ListRecordingsByRoom lists a room's recordings, newest first.
func (q *Queries) ListRecordingsByRoom(ctx context.Context, roomName string) ([]Recording, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT egress_id, room_name, user_id, file_path, public_url, bucket, status, started_at, stopped_at
		FROM recordings
		WHERE room_name = $1
		ORDER BY started_at DESC`,
		roomName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []Recording
	for rows.Next() {
		var rec Recording
		if err := rows.Scan(&rec.EgressID, &rec.RoomName, &rec.UserID, &rec.FilePath,
			&rec.PublicURL, &rec.Bucket, &rec.Status, &rec.StartedAt, &rec.StoppedAt); err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}

	return recordings, rows.Err()
}

// DeleteRecording removes a recording row (retention cleanup).
func (q *Queries) DeleteRecording(ctx context.Context, egressID string) error {
	tag, err := q.pool.Exec(ctx, `DELETE FROM recordings WHERE egress_id = $1`, egressID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
