// Package config loads wally's settings from a YAML file with environment
// overrides for hosts and credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all wally configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Reporting ReportingConfig `yaml:"reporting"`
	Chat      ChatConfig      `yaml:"chat"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Status    StatusConfig    `yaml:"status"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig configures the shared store connection pool.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // sqlite3, postgres
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
}

// ReportingConfig configures the reporting-system session and poll loop.
type ReportingConfig struct {
	Host            string `yaml:"host"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Version         string `yaml:"version"`
	Locale          string `yaml:"locale"`
	TimeZoneID      string `yaml:"time_zone_id"`
	SiteID          int    `yaml:"site_id"`
	PageSize        int    `yaml:"page_size"`
	PollInterval    string `yaml:"poll_interval"`
	Lookback        string `yaml:"lookback"`
	SessionLifetime string `yaml:"session_lifetime"`
	RetryDelay      string `yaml:"retry_delay"`
	RequestTimeout  string `yaml:"request_timeout"`
}

// ChatConfig configures the chat-network connection.
type ChatConfig struct {
	JID             string `yaml:"jid"`
	Password        string `yaml:"password"`
	Server          string `yaml:"server"`
	Port            int    `yaml:"port"`
	Domain          string `yaml:"domain"`
	StartTLS        bool   `yaml:"starttls"`
	InsecureTLS     bool   `yaml:"insecure_tls"`
	ReconnectDelay  string `yaml:"reconnect_delay"`
	SessionLifetime string `yaml:"session_lifetime"`
	MaxReplies      int    `yaml:"max_replies"`
}

// ScheduleConfig configures the scheduling source.
type ScheduleConfig struct {
	Driver   string `yaml:"driver"` // sqlserver, sqlite3
	Host     string `yaml:"host"`
	Database string `yaml:"database"`
	Domain   string `yaml:"domain"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// DSN, when set, is used verbatim instead of building one from the
	// fields above.
	DSN string `yaml:"dsn"`

	MeetingShifts    []string `yaml:"meeting_shifts"`
	PlaceholderStaff string   `yaml:"placeholder_staff"`
	QueryTimeout     string   `yaml:"query_timeout"`
	TimeZone         string   `yaml:"time_zone"`
}

// StatusConfig configures the read-only status API.
type StatusConfig struct {
	Addr string `yaml:"addr"` // empty disables the API
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:   "sqlite3",
			DSN:      "wally.db",
			MaxConns: 4,
		},
		Reporting: ReportingConfig{
			Version:         "7.0.212.0",
			Locale:          "en-NZ",
			TimeZoneID:      "New Zealand Standard Time",
			SiteID:          0,
			PageSize:        3000,
			PollInterval:    "60s",
			Lookback:        "60m",
			SessionLifetime: "24h",
			RetryDelay:      "60s",
			RequestTimeout:  "30s",
		},
		Chat: ChatConfig{
			Server:          "app-inteleradha-p.healthhub.health.nz",
			Port:            5222,
			Domain:          "cdhb",
			StartTLS:        true,
			InsecureTLS:     true,
			ReconnectDelay:  "15s",
			SessionLifetime: "24h",
			MaxReplies:      4,
		},
		Schedule: ScheduleConfig{
			Driver:   "sqlserver",
			Database: "PhySch",
			Domain:   "cdhb",
			MeetingShifts: []string{
				"MDM", "Meeting", "Teaching", "Journal Club", "Audit",
			},
			PlaceholderStaff: "XXX",
			QueryTimeout:     "20s",
			TimeZone:         "Pacific/Auckland",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults plus overrides; an empty
// path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides reads the deployment's environment variables.
func (c *Config) applyEnvOverrides() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("DB_DRIVER", &c.Store.Driver)
	setString("DB_CONN", &c.Store.DSN)

	setString("PS360_HOST", &c.Reporting.Host)
	setString("PS360_USER", &c.Reporting.User)
	setString("PS360_PASSWORD", &c.Reporting.Password)

	setString("XMPP_JID", &c.Chat.JID)
	setString("XMPP_PASSWORD", &c.Chat.Password)
	setString("XMPP_SERVER", &c.Chat.Server)
	if v := os.Getenv("XMPP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("XMPP_PORT: %w", err)
		}
		c.Chat.Port = port
	}

	setString("PHYSCH_HOST", &c.Schedule.Host)
	setString("PHYSCH_DB", &c.Schedule.Database)
	setString("SSO_USER", &c.Schedule.User)
	setString("SSO_PASSWORD", &c.Schedule.Password)

	setString("WALLY_STATUS_ADDR", &c.Status.Addr)
	return nil
}

// PollInterval returns the delay between reporting-system polls.
func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Reporting.PollInterval, 60*time.Second)
}

// Lookback returns how far before process start the watermark begins.
func (c *Config) Lookback() time.Duration {
	return parseDuration(c.Reporting.Lookback, 60*time.Minute)
}

// ReportingSessionLifetime returns the maximum age of a reporting session.
func (c *Config) ReportingSessionLifetime() time.Duration {
	return parseDuration(c.Reporting.SessionLifetime, 24*time.Hour)
}

// ReportingRetryDelay returns the backoff after a failed reporting session.
func (c *Config) ReportingRetryDelay() time.Duration {
	return parseDuration(c.Reporting.RetryDelay, 60*time.Second)
}

// RequestTimeout bounds a single reporting-system RPC.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.Reporting.RequestTimeout, 30*time.Second)
}

// ChatReconnectDelay returns the wait between chat connection attempts.
func (c *Config) ChatReconnectDelay() time.Duration {
	return parseDuration(c.Chat.ReconnectDelay, 15*time.Second)
}

// ChatSessionLifetime returns how long a chat connection is kept before a
// scheduled reconnect.
func (c *Config) ChatSessionLifetime() time.Duration {
	return parseDuration(c.Chat.SessionLifetime, 24*time.Hour)
}

// ScheduleQueryTimeout bounds a single scheduling-source query.
func (c *Config) ScheduleQueryTimeout() time.Duration {
	return parseDuration(c.Schedule.QueryTimeout, 20*time.Second)
}

// ScheduleLocation returns the time zone in which "today" is evaluated.
func (c *Config) ScheduleLocation() *time.Location {
	if c.Schedule.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Schedule.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidStoreDrivers lists the supported shared-store backends.
var ValidStoreDrivers = []string{"sqlite3", "postgres"}

// Validate checks that every required value is present.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require("store.dsn (DB_CONN)", c.Store.DSN)
	require("reporting.host (PS360_HOST)", c.Reporting.Host)
	require("reporting.user (PS360_USER)", c.Reporting.User)
	require("reporting.password (PS360_PASSWORD)", c.Reporting.Password)
	require("chat.jid (XMPP_JID)", c.Chat.JID)
	require("chat.password (XMPP_PASSWORD)", c.Chat.Password)
	require("chat.server (XMPP_SERVER)", c.Chat.Server)
	if c.Schedule.DSN == "" {
		require("schedule.host (PHYSCH_HOST)", c.Schedule.Host)
		require("schedule.user (SSO_USER)", c.Schedule.User)
		require("schedule.password (SSO_PASSWORD)", c.Schedule.Password)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}

	validDriver := false
	for _, d := range ValidStoreDrivers {
		if c.Store.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid store driver: %s (valid: %v)", c.Store.Driver, ValidStoreDrivers)
	}
	if c.Chat.Port <= 0 || c.Chat.Port > 65535 {
		return fmt.Errorf("invalid chat port: %d", c.Chat.Port)
	}
	return nil
}

// Redacted returns a copy with every secret replaced, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Schedule.MeetingShifts = append([]string(nil), c.Schedule.MeetingShifts...)
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.Reporting.Password = mask(c.Reporting.Password)
	out.Chat.Password = mask(c.Chat.Password)
	out.Schedule.Password = mask(c.Schedule.Password)
	if c.Store.Driver == "postgres" {
		out.Store.DSN = mask(c.Store.DSN)
	}
	if c.Schedule.DSN != "" {
		out.Schedule.DSN = mask(c.Schedule.DSN)
	}
	return &out
}
