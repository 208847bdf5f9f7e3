package store

import (
	"path/filepath"
	"testing"

	"github.com/Easy-Rad/wally/internal/model"
)

// createTestStore opens a SQLite store in a temp directory.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path, 4)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertPerson provisions a row the way the external admin tooling does.
func insertPerson(t *testing.T, s *SQLiteStore, p model.Person) {
	t.Helper()
	nullable := func(v string) any {
		if v == "" {
			return nil
		}
		return v
	}
	var reporting any
	if p.ReportingID != 0 {
		reporting = p.ReportingID
	}
	presence := p.Presence
	if presence == "" {
		presence = model.PresenceOffline
	}
	_, err := s.DB().Exec(`
		INSERT INTO users (id, first_name, last_name, pacs, ps360, ps360_login, physch, show_in_locator, pacs_presence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.FirstName, p.LastName, nullable(p.Handle), reporting, nullable(p.LoginName),
		nullable(p.ScheduleCode), p.ShowInLocator, string(presence))
	if err != nil {
		t.Fatalf("insert person %d: %v", p.ID, err)
	}
}
