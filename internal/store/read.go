package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
)

const personColumns = `
	id, first_name, last_name, pacs, ps360, ps360_login, physch, show_in_locator,
	ps360_last_event_type, ps360_last_event_timestamp,
	ps360_last_event_workstation, ps360_last_event_info,
	pacs_presence, pacs_last_updated`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// personRow holds the nullable columns of one users row between Scan and
// conversion. The pgx backend scans into the same shape.
type personRow struct {
	id            int64
	firstName     string
	lastName      string
	handle        sql.NullString
	reportingID   sql.NullInt64
	login         sql.NullString
	scheduleCode  sql.NullString
	showInLocator bool
	eventKind     sql.NullString
	eventTime     sql.NullTime
	workstation   sql.NullString
	note          sql.NullString
	presence      string
	presenceAt    sql.NullTime
}

func (r *personRow) dest() []any {
	return []any{
		&r.id, &r.firstName, &r.lastName, &r.handle, &r.reportingID, &r.login,
		&r.scheduleCode, &r.showInLocator, &r.eventKind, &r.eventTime,
		&r.workstation, &r.note, &r.presence, &r.presenceAt,
	}
}

func (r *personRow) person() model.Person {
	p := model.Person{
		ID:            r.id,
		FirstName:     r.firstName,
		LastName:      r.lastName,
		Handle:        r.handle.String,
		ReportingID:   r.reportingID.Int64,
		LoginName:     r.login.String,
		ScheduleCode:  r.scheduleCode.String,
		ShowInLocator: r.showInLocator,
		Presence:      model.Presence(r.presence),
	}
	if r.presenceAt.Valid {
		p.PresenceUpdatedAt = utc(r.presenceAt.Time)
	}
	if r.eventKind.Valid && r.eventTime.Valid {
		p.LastEvent = &model.ActivityEvent{
			Kind:        model.EventKind(r.eventKind.String),
			Timestamp:   utc(r.eventTime.Time),
			Workstation: r.workstation.String,
			Note:        r.note.String,
			PersonID:    r.reportingID.Int64,
		}
	}
	return p
}

func scanPerson(row rowScanner) (model.Person, error) {
	var r personRow
	if err := row.Scan(r.dest()...); err != nil {
		return model.Person{}, err
	}
	return r.person(), nil
}

// PersonByHandle returns the person whose chat handle code matches exactly.
func (s *SQLiteStore) PersonByHandle(ctx context.Context, handle string) (model.Person, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+personColumns+` FROM users WHERE pacs = ?`, handle)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Person{}, fmt.Errorf("handle %q: %w", handle, ErrNotFound)
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("person by handle: %w", err)
	}
	return p, nil
}

// FindPerson loads every candidate whose identifiers could match and lets
// Match decide.
func (s *SQLiteStore) FindPerson(ctx context.Context, query string) (model.Person, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT`+personColumns+` FROM users
		WHERE lower(pacs) = lower(?1)
		OR lower(ps360_login) = lower(?1)
		OR lower(physch) = lower(?1)
		OR lower(first_name || ' ' || last_name) = lower(?1)
		OR lower(last_name) = lower(?1)
		OR lower(first_name) = lower(?1)
		ORDER BY id ASC
	`, query)
	if err != nil {
		return model.Person{}, fmt.Errorf("find person: %w", err)
	}
	candidates, err := collectPeople(rows)
	if err != nil {
		return model.Person{}, fmt.Errorf("find person: %w", err)
	}
	p, ok := Match(query, candidates)
	if !ok {
		return model.Person{}, fmt.Errorf("query %q: %w", query, ErrNotFound)
	}
	return p, nil
}

// LocatorPeople returns everyone with show_in_locator set, ordered by id.
func (s *SQLiteStore) LocatorPeople(ctx context.Context) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT`+personColumns+` FROM users
		WHERE show_in_locator AND pacs IS NOT NULL
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("locator people: %w", err)
	}
	people, err := collectPeople(rows)
	if err != nil {
		return nil, fmt.Errorf("locator people: %w", err)
	}
	return people, nil
}

func collectPeople(rows *sql.Rows) ([]model.Person, error) {
	defer rows.Close()

	people := []model.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return people, nil
}

// utc normalises scanned timestamps; both backends store UTC.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
