package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_DRIVER", "DB_CONN", "PS360_HOST", "PS360_USER", "PS360_PASSWORD",
		"XMPP_JID", "XMPP_PASSWORD", "XMPP_SERVER", "XMPP_PORT",
		"PHYSCH_HOST", "PHYSCH_DB", "SSO_USER", "SSO_PASSWORD", "WALLY_STATUS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Reporting.Host = "ps360.example"
	cfg.Reporting.User = "svc"
	cfg.Reporting.Password = "pw"
	cfg.Chat.JID = "|wally@cdhb"
	cfg.Chat.Password = "pw"
	cfg.Schedule.Host = "physch.example"
	cfg.Schedule.User = "svc"
	cfg.Schedule.Password = "pw"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Store.MaxConns)
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, 60*time.Minute, cfg.Lookback())
	assert.Equal(t, 24*time.Hour, cfg.ReportingSessionLifetime())
	assert.Equal(t, 60*time.Second, cfg.ReportingRetryDelay())
	assert.Equal(t, 15*time.Second, cfg.ChatReconnectDelay())
	assert.Equal(t, 5222, cfg.Chat.Port)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "wally.yaml")
	data := []byte(`
store:
  driver: postgres
  dsn: postgres://wally@db/wally
reporting:
  host: ps360.example
  poll_interval: 30s
chat:
  port: 5223
schedule:
  meeting_shifts: [MDM]
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://wally@db/wally", cfg.Store.DSN)
	assert.Equal(t, "ps360.example", cfg.Reporting.Host)
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
	assert.Equal(t, 5223, cfg.Chat.Port)
	assert.Equal(t, []string{"MDM"}, cfg.Schedule.MeetingShifts)
	// untouched fields keep defaults
	assert.Equal(t, "en-NZ", cfg.Reporting.Locale)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PS360_HOST", "env-host")
	t.Setenv("PS360_USER", "env-user")
	t.Setenv("XMPP_PORT", "5333")
	t.Setenv("DB_CONN", "/var/lib/wally.db")
	t.Setenv("SSO_USER", "sso")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Reporting.Host)
	assert.Equal(t, "env-user", cfg.Reporting.User)
	assert.Equal(t, 5333, cfg.Chat.Port)
	assert.Equal(t, "/var/lib/wally.db", cfg.Store.DSN)
	assert.Equal(t, "sso", cfg.Schedule.User)
}

func TestEnvOverrides_BadPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("XMPP_PORT", "not-a-port")
	_, err := Load("")
	assert.Error(t, err)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reporting.PollInterval = "garbage"
	cfg.Reporting.Lookback = "-5m"
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, 60*time.Minute, cfg.Lookback())
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	t.Run("missing credentials", func(t *testing.T) {
		cfg := validConfig()
		cfg.Reporting.Password = ""
		cfg.Chat.JID = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PS360_PASSWORD")
		assert.Contains(t, err.Error(), "XMPP_JID")
	})

	t.Run("schedule DSN replaces host fields", func(t *testing.T) {
		cfg := validConfig()
		cfg.Schedule.Host = ""
		cfg.Schedule.DSN = "file:sched.db"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("invalid driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Driver = "mysql"
		assert.ErrorContains(t, cfg.Validate(), "invalid store driver")
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Chat.Port = 0
		assert.ErrorContains(t, cfg.Validate(), "invalid chat port")
	})
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	red := cfg.Redacted()
	assert.Equal(t, "********", red.Reporting.Password)
	assert.Equal(t, "********", red.Chat.Password)
	assert.Equal(t, "********", red.Schedule.Password)
	assert.Equal(t, "wally.db", red.Store.DSN, "sqlite paths are not secret")
	assert.Equal(t, "pw", cfg.Reporting.Password, "original untouched")
}
