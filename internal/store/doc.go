// Package store is the shared store gateway: a pooled, concurrency-safe
// handle on the users table that both sync engines write into.
//
// Two backends implement Gateway:
//   - SQLiteStore: mattn/go-sqlite3 with WAL mode, used for single-host
//     deployments and tests.
//   - PostgresStore: pgxpool, used when the table lives in the shared
//     PostgreSQL database read by downstream consumers.
//
// # Row ownership
//
// Rows are provisioned outside this process. The gateway only updates the
// reporting-event columns (ps360_last_event_*) and the presence columns
// (pacs_presence, pacs_last_updated); it never inserts or deletes people.
//
// # Connection discipline
//
// Every method holds a pooled connection for exactly one statement or one
// transaction and returns it before returning. Callers must not hold a
// Person value as a lock; there is none.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// All timestamps are written in UTC so that SQLite's text ordering matches
// time ordering.
package store
