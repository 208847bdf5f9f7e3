package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenSQLite_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := OpenSQLite(path, 1)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path, 2)
		if err != nil {
			t.Fatalf("OpenSQLite() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := OpenSQLite(path, 2)
	if err != nil {
		t.Fatalf("final OpenSQLite() failed: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/test.db", 1)
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpenSQLite_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestMigrateToV1_AddsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := OpenSQLite(path, 1)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	// Rebuild the table the way the first deployment shipped it.
	for _, stmt := range []string{
		`DROP TABLE users`,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '', pacs TEXT UNIQUE, ps360 INTEGER UNIQUE,
			ps360_login TEXT, physch TEXT, show_in_locator BOOLEAN NOT NULL DEFAULT 0,
			ps360_last_event_type TEXT, ps360_last_event_timestamp TIMESTAMP,
			ps360_last_event_workstation TEXT, pacs_presence TEXT NOT NULL DEFAULT 'Offline',
			pacs_last_updated TIMESTAMP)`,
		`PRAGMA user_version = 0`,
	} {
		if _, err := legacy.db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	legacy.Close()

	s, err := OpenSQLite(path, 1)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if _, err := s.db.Exec(`UPDATE users SET ps360_last_event_info = 'x'`); err != nil {
		t.Errorf("column not added: %v", err)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &SQLiteStore{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPing(t *testing.T) {
	s := createTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}
