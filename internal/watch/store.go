package watch

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// EventStore persists claimed trigger events and the poll watermark.
// Claim is the dedup gate: it must return claimed=false for any event ID
// that already has a row, whatever its status.
type EventStore interface {
	Claim(ctx context.Context, event TriggerEvent) (bool, error)
	Release(ctx context.Context, eventID string) error
	MarkDone(ctx context.Context, eventID, signal string) error
	MarkFailed(ctx context.Context, eventID, detail string) error
	RecoverInterrupted(ctx context.Context) (int, error)
	Watermark(ctx context.Context) (time.Time, error)
	AdvanceWatermark(ctx context.Context, t time.Time) error
}

type SQLEventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *SQLEventStore {
	return &SQLEventStore{db: db}
}

// EnsureSchema creates the lookout schema and tables if they do not exist.
func (s *SQLEventStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("event store unavailable")
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Claim inserts a pending row for the event. It returns false when a row for
// this event ID already exists, meaning another cycle (or an earlier run of
// the process) owns it.
func (s *SQLEventStore) Claim(ctx context.Context, event TriggerEvent) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("event store unavailable")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.lookout_events (
			event_id,
			requester_id,
			parent_post_id,
			status,
			observed_at
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`,
		event.EventID,
		event.RequesterID,
		event.ParentPostID,
		StatusPending,
		event.ObservedAt,
	)
	if err != nil {
		return false, fmt.Errorf("claim event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim event: %w", err)
	}
	return affected == 1, nil
}

// Release drops a still-pending claim so a later poll can pick the event up
// again. Only valid before any reply attempt; terminal rows are untouched.
func (s *SQLEventStore) Release(ctx context.Context, eventID string) error {
	if s == nil || s.db == nil {
		return errors.New("event store unavailable")
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM lookout.lookout_events
		WHERE event_id = $1 AND status = $2
	`, eventID, StatusPending)
	if err != nil {
		return fmt.Errorf("release event: %w", err)
	}
	return nil
}

// MarkDone records the published verdict's trust signal for the event.
func (s *SQLEventStore) MarkDone(ctx context.Context, eventID, signal string) error {
	if s == nil || s.db == nil {
		return errors.New("event store unavailable")
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE lookout.lookout_events
		SET status = $2, signal = $3, completed_at = NOW()
		WHERE event_id = $1
	`, eventID, StatusDone, signal)
	if err != nil {
		return fmt.Errorf("mark event done: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure and its reason for the event.
func (s *SQLEventStore) MarkFailed(ctx context.Context, eventID, detail string) error {
	if s == nil || s.db == nil {
		return errors.New("event store unavailable")
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE lookout.lookout_events
		SET status = $2, detail = $3, completed_at = NOW()
		WHERE event_id = $1
	`, eventID, StatusFailed, detail)
	if err != nil {
		return fmt.Errorf("mark event failed: %w", err)
	}
	return nil
}

// RecoverInterrupted finalizes rows left pending by a crash. They are marked
// failed rather than retried because a crash between publish and MarkDone is
// indistinguishable from one before publish, and a missed reply is the
// cheaper mistake than a duplicate.
func (s *SQLEventStore) RecoverInterrupted(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("event store unavailable")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE lookout.lookout_events
		SET status = $1, detail = 'interrupted by restart', completed_at = NOW()
		WHERE status = $2
	`, StatusFailed, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("recover interrupted events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recover interrupted events: %w", err)
	}
	return int(affected), nil
}

// Watermark returns the persisted poll position, or the zero time when no
// poll has completed yet.
func (s *SQLEventStore) Watermark(ctx context.Context) (time.Time, error) {
	if s == nil || s.db == nil {
		return time.Time{}, errors.New("event store unavailable")
	}

	var watermark time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT watermark FROM lookout.lookout_cursor WHERE id = 1`,
	).Scan(&watermark)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load watermark: %w", err)
	}
	return watermark.UTC(), nil
}

// AdvanceWatermark persists the new poll position. It never moves the
// watermark backwards.
func (s *SQLEventStore) AdvanceWatermark(ctx context.Context, t time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("event store unavailable")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.lookout_cursor (id, watermark, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET watermark = GREATEST(lookout.lookout_cursor.watermark, EXCLUDED.watermark),
			updated_at = NOW()
	`, t.UTC())
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}
