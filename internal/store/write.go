package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
)

// UpsertEvents writes the latest event for each reporting account in one
// transaction. The timestamp guard keeps the stored event last-writer-wins
// even across process restarts, when the in-memory index starts empty.
func (s *SQLiteStore) UpsertEvents(ctx context.Context, events []model.ActivityEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE users SET
			ps360_last_event_type = ?,
			ps360_last_event_timestamp = ?,
			ps360_last_event_workstation = ?,
			ps360_last_event_info = ?
		WHERE ps360 = ?
		AND (ps360_last_event_timestamp IS NULL OR ps360_last_event_timestamp < ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("upsert events: prepare: %w", err)
	}
	defer stmt.Close()

	changed := 0
	for _, ev := range events {
		ts := ev.Timestamp.UTC()
		result, err := stmt.ExecContext(ctx,
			string(ev.Kind),
			ts,
			ev.Workstation,
			ev.Note,
			ev.PersonID,
			ts,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert events: person %d: %w", ev.PersonID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("upsert events: rows affected: %w", err)
		}
		changed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert events: commit: %w", err)
	}
	return changed, nil
}

// UpdatePresence changes a person's presence only when it differs from the
// stored value.
func (s *SQLiteStore) UpdatePresence(ctx context.Context, handle string, presence model.Presence, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET pacs_presence = ?, pacs_last_updated = ?
		WHERE pacs = ? AND pacs_presence <> ?
	`,
		string(presence),
		at.UTC(),
		handle,
		string(presence),
	)
	if err != nil {
		return false, fmt.Errorf("update presence: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update presence: rows affected: %w", err)
	}
	return n > 0, nil
}

// ResetPresence marks everyone Offline.
func (s *SQLiteStore) ResetPresence(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET pacs_presence = ?`, string(model.PresenceOffline))
	if err != nil {
		return 0, fmt.Errorf("reset presence: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset presence: rows affected: %w", err)
	}
	return int(n), nil
}
