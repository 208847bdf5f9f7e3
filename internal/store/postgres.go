package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Easy-Rad/wally/internal/model"
)

//go:embed schema_postgres.sql
var postgresSchemaSQL string

// PostgresStore is the pgxpool-backed Gateway.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool of at most maxConns connections (4 when
// zero) and makes sure the users table exists.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping acquires a connection and pings the server.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertEvents queues one guarded update per event and sends them as a
// single batch, which pgx runs in an implicit transaction.
func (s *PostgresStore) UpsertEvents(ctx context.Context, events []model.ActivityEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			UPDATE users SET
				ps360_last_event_type = $1,
				ps360_last_event_timestamp = $2,
				ps360_last_event_workstation = $3,
				ps360_last_event_info = $4
			WHERE ps360 = $5
			AND (ps360_last_event_timestamp IS NULL OR ps360_last_event_timestamp < $2)
		`, string(ev.Kind), ev.Timestamp.UTC(), ev.Workstation, ev.Note, ev.PersonID)
	}

	results := s.pool.SendBatch(ctx, batch)
	changed := 0
	for _, ev := range events {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("upsert events: person %d: %w", ev.PersonID, err)
		}
		changed += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("upsert events: %w", err)
	}
	return changed, nil
}

// UpdatePresence changes a person's presence only when it differs from the
// stored value.
func (s *PostgresStore) UpdatePresence(ctx context.Context, handle string, presence model.Presence, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET pacs_presence = $1, pacs_last_updated = $2
		WHERE pacs = $3 AND pacs_presence <> $1
	`, string(presence), at.UTC(), handle)
	if err != nil {
		return false, fmt.Errorf("update presence: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ResetPresence marks everyone Offline.
func (s *PostgresStore) ResetPresence(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET pacs_presence = $1`, string(model.PresenceOffline))
	if err != nil {
		return 0, fmt.Errorf("reset presence: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PersonByHandle returns the person whose chat handle code matches exactly.
func (s *PostgresStore) PersonByHandle(ctx context.Context, handle string) (model.Person, error) {
	var r personRow
	err := s.pool.QueryRow(ctx, `SELECT`+personColumns+` FROM users WHERE pacs = $1`, handle).Scan(r.dest()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Person{}, fmt.Errorf("handle %q: %w", handle, ErrNotFound)
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("person by handle: %w", err)
	}
	return r.person(), nil
}

// FindPerson loads every candidate whose identifiers could match and lets
// Match decide.
func (s *PostgresStore) FindPerson(ctx context.Context, query string) (model.Person, error) {
	candidates, err := s.queryPeople(ctx, `SELECT`+personColumns+` FROM users
		WHERE lower(pacs) = lower($1)
		OR lower(ps360_login) = lower($1)
		OR lower(physch) = lower($1)
		OR lower(first_name || ' ' || last_name) = lower($1)
		OR lower(last_name) = lower($1)
		OR lower(first_name) = lower($1)
		ORDER BY id ASC
	`, query)
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
func (s *PostgresStore) LocatorPeople(ctx context.Context) ([]model.Person, error) {
	people, err := s.queryPeople(ctx, `SELECT`+personColumns+` FROM users
		WHERE show_in_locator AND pacs IS NOT NULL
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("locator people: %w", err)
	}
	return people, nil
}

func (s *PostgresStore) queryPeople(ctx context.Context, query string, args ...any) ([]model.Person, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	people := []model.Person{}
	for rows.Next() {
		var r personRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, err
		}
		people = append(people, r.person())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return people, nil
}
