package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Easy-Rad/wally/internal/config"
	"github.com/Easy-Rad/wally/internal/engine"
	"github.com/Easy-Rad/wally/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blocker runs until its context ends.
func blocker(started *atomic.Int32) ComponentFunc {
	return func(ctx context.Context) error {
		started.Add(1)
		<-ctx.Done()
		return nil
	}
}

func TestSupervisor_RunsComponentsUntilCancel(t *testing.T) {
	var started atomic.Int32
	var startupRan atomic.Bool
	s := New(func(context.Context) error {
		require.Zero(t, started.Load(), "startup must finish before components start")
		startupRan.Store(true)
		return nil
	}, testutil.Logger(t))
	s.Add("a", blocker(&started))
	s.Add("b", blocker(&started))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return started.Load() == 2 }, 5*time.Second, 5*time.Millisecond)
	assert.True(t, startupRan.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestSupervisor_FailureStopsSiblings(t *testing.T) {
	var started atomic.Int32
	s := New(nil, testutil.Logger(t))
	s.Add("steady", blocker(&started))
	s.Add("broken", ComponentFunc(func(ctx context.Context) error {
		return errors.New("listen: address in use")
	}))

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "broken: listen: address in use")
}

func TestSupervisor_StartupFailureStartsNothing(t *testing.T) {
	var started atomic.Int32
	s := New(func(context.Context) error { return errors.New("store unreachable") }, testutil.Logger(t))
	s.Add("a", blocker(&started))

	err := s.Run(context.Background())
	assert.EqualError(t, err, "startup: store unreachable")
	assert.Zero(t, started.Load())
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.DSN = filepath.Join(dir, "wally.db")
	cfg.Schedule.Driver = "sqlite3"
	cfg.Schedule.DSN = filepath.Join(dir, "physch.db")
	cfg.Reporting.Host = "ps360.example"
	cfg.Reporting.User = "wally"
	cfg.Reporting.Password = "secret"
	cfg.Chat.JID = "wally@chat.example"
	cfg.Chat.Password = "secret"
	return cfg
}

func TestBuild_WiresComponents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Status.Addr = "127.0.0.1:0"

	app, err := Build(context.Background(), cfg, testutil.Logger(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	assert.NotNil(t, app.Status)
	assert.Len(t, app.Supervisor.components, 3)
	assert.Equal(t, engine.StateDisconnected, app.Loop.State())
	assert.False(t, app.Chat.Connected())
	assert.NoError(t, app.Store.Ping(context.Background()))
}

func TestBuild_StatusDisabled(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t), testutil.Logger(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	assert.Nil(t, app.Status)
	names := make([]string, 0, len(app.Supervisor.components))
	for _, n := range app.Supervisor.components {
		names = append(names, n.name)
	}
	assert.Equal(t, []string{"reporting", "chat"}, names)
}

func TestBuild_BadStoreDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "oracle"
	_, err := Build(context.Background(), cfg, testutil.Logger(t))
	assert.ErrorContains(t, err, "open store")
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://ps360", baseURL("ps360"))
	assert.Equal(t, "https://ps360:8443", baseURL("https://ps360:8443"))
}
