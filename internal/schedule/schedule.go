// Package schedule queries the PhySch staff-scheduling database.
//
// Queries use named @parameters so the same SQL runs on SQL Server in
// production and SQLite in tests.
package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
)

// Config configures a Source.
type Config struct {
	Driver   string // "sqlserver" (default) or "sqlite3"
	Host     string
	Database string
	Domain   string // Windows domain prepended to User, e.g. "cdhb"
	User     string
	Password string

	// DSN, when set, is passed to the driver verbatim.
	DSN string

	MeetingShifts    []string
	PlaceholderStaff string
	QueryTimeout     time.Duration
	Location         *time.Location
	Logger           *slog.Logger
}

// Meeting is one meeting assignment.
type Meeting struct {
	Start     time.Time
	Shift     string
	FirstName string
	LastName  string
}

// Source runs roster and meeting queries.
type Source struct {
	db            *sql.DB
	meetingShifts []string
	placeholder   string
	timeout       time.Duration
	loc           *time.Location
	logger        *slog.Logger
}

// Open connects to the scheduling database described by cfg.
func Open(cfg Config) (*Source, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlserver"
	}
	dsn := cfg.DSN
	if dsn == "" {
		if driver != "sqlserver" {
			return nil, fmt.Errorf("schedule: dsn is required for driver %q", driver)
		}
		dsn = SQLServerDSN(cfg.Host, cfg.Database, cfg.Domain, cfg.User, cfg.Password)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("schedule: open: %w", err)
	}
	return New(db, cfg), nil
}

// New wraps an open database.
func New(db *sql.DB, cfg Config) *Source {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 20 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Source{
		db:            db,
		meetingShifts: append([]string(nil), cfg.MeetingShifts...),
		placeholder:   cfg.PlaceholderStaff,
		timeout:       cfg.QueryTimeout,
		loc:           cfg.Location,
		logger:        cfg.Logger.With("component", "schedule"),
	}
}

// SQLServerDSN builds a go-mssqldb URL. A non-empty domain selects
// DOMAIN\user (NTLM) authentication.
func SQLServerDSN(host, database, domain, user, password string) string {
	login := user
	if domain != "" {
		login = domain + `\` + user
	}
	q := url.Values{}
	if database != "" {
		q.Set("database", database)
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(login, password),
		Host:     host,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Close closes the database.
func (s *Source) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Source) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Location is the time zone "today" is evaluated in.
func (s *Source) Location() *time.Location {
	return s.loc
}

// DayKey returns the yyyymmdd integer AssignDate uses for day.
func DayKey(day time.Time) int {
	y, m, d := day.Date()
	return y*10000 + int(m)*100 + d
}

const shiftsQuery = `
	SELECT Shift.ShiftName
	FROM SchedData
	JOIN Employee ON SchedData.EmployeeID = Employee.EmployeeID
	JOIN Shift ON SchedData.ShiftID = Shift.ShiftID
	WHERE SchedData.AssignDate = @day
	AND Employee.Abbr = @code
	ORDER BY Shift.StartTime, Shift.DisplayOrder, Shift.ShiftName`

// ShiftsFor returns the names of the shifts assigned to the employee with
// schedule code on day, ordered by start time then display order.
func (s *Source) ShiftsFor(ctx context.Context, code string, day time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, shiftsQuery,
		sql.Named("day", DayKey(day.In(s.loc))),
		sql.Named("code", code),
	)
	if err != nil {
		return nil, fmt.Errorf("shifts for %s: %w", code, err)
	}
	defer rows.Close()

	var shifts []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("shifts for %s: scan: %w", code, err)
		}
		shifts = append(shifts, strings.TrimSpace(name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shifts for %s: %w", code, err)
	}
	return shifts, nil
}

// Meetings returns the meeting assignments on day, ordered by start time.
// A shift is a meeting when its name starts with one of the configured
// meeting shift names. Shifts whose name mentions "prep" and the
// placeholder employee are excluded.
func (s *Source) Meetings(ctx context.Context, day time.Time) ([]Meeting, error) {
	if len(s.meetingShifts) == 0 {
		return nil, errors.New("meetings: no meeting shifts configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := []any{
		sql.Named("day", DayKey(day.In(s.loc))),
		sql.Named("placeholder", s.placeholder),
	}
	like := make([]string, len(s.meetingShifts))
	for i, shift := range s.meetingShifts {
		name := fmt.Sprintf("shift%d", i)
		like[i] = "Shift.ShiftName LIKE @" + name
		args = append(args, sql.Named(name, shift+"%"))
	}
	query := `
	SELECT Shift.StartTime, Shift.ShiftName, Employee.FirstName, Employee.LastName
	FROM SchedData
	JOIN Employee ON SchedData.EmployeeID = Employee.EmployeeID
	JOIN Shift ON SchedData.ShiftID = Shift.ShiftID
	WHERE SchedData.AssignDate = @day
	AND (` + strings.Join(like, " OR ") + `)
	AND LOWER(Shift.ShiftName) NOT LIKE '%prep%'
	AND Employee.Abbr <> @placeholder
	ORDER BY Shift.StartTime, Shift.DisplayOrder, Employee.LastName`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("meetings: %w", err)
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.Start, &m.Shift, &m.FirstName, &m.LastName); err != nil {
			return nil, fmt.Errorf("meetings: scan: %w", err)
		}
		m.Shift = strings.TrimSpace(m.Shift)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("meetings: %w", err)
	}
	s.logger.Debug("meetings", "day", DayKey(day.In(s.loc)), "count", len(out))
	return out, nil
}
