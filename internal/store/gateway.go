package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
)

// ErrNotFound is returned when no person matches a lookup.
var ErrNotFound = errors.New("person not found")

// Gateway is the shared store as seen by the engines.
type Gateway interface {
	// UpsertEvents writes each event into the row whose reporting ID
	// matches event.PersonID, in one transaction. A row is only changed
	// when the stored event is absent or strictly older. Returns the number
	// of rows changed.
	UpsertEvents(ctx context.Context, events []model.ActivityEvent) (int, error)

	// UpdatePresence sets the presence of the person with the given chat
	// handle code. Returns true only when the stored value changed.
	UpdatePresence(ctx context.Context, handle string, presence model.Presence, at time.Time) (bool, error)

	// ResetPresence marks every person Offline. Returns the number of rows
	// touched.
	ResetPresence(ctx context.Context) (int, error)

	// PersonByHandle returns the person with the given chat handle code.
	PersonByHandle(ctx context.Context, handle string) (model.Person, error)

	// FindPerson resolves free text against the known identifiers of every
	// person. See Match for the precedence rules.
	FindPerson(ctx context.Context, query string) (model.Person, error)

	// LocatorPeople returns everyone flagged to appear in the presence
	// directory.
	LocatorPeople(ctx context.Context) ([]model.Person, error)

	// Ping checks that a connection can be acquired.
	Ping(ctx context.Context) error

	Close() error
}

// Config selects and sizes a backend.
type Config struct {
	Driver   string // "sqlite3" or "postgres"
	DSN      string
	MaxConns int
}

// Open returns the Gateway for cfg.Driver.
func Open(ctx context.Context, cfg Config) (Gateway, error) {
	switch cfg.Driver {
	case "", "sqlite3":
		return OpenSQLite(cfg.DSN, cfg.MaxConns)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// Compile-time checks.
var (
	_ Gateway = (*SQLiteStore)(nil)
	_ Gateway = (*PostgresStore)(nil)
)
