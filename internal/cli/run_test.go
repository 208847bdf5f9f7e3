package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInvalidConfig(t *testing.T) {
	t.Setenv("PS360_HOST", "")
	path := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := execute(t, "run", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRunBadStoreDriverFlag(t *testing.T) {
	path := writeConfig(t, "")

	_, err := execute(t, "run", "--config", path, "--db-driver", "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid store driver")
}

func TestRunRejectsArgs(t *testing.T) {
	_, err := execute(t, "run", "extra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	path := writeConfig(t, "status:\n  addr: 127.0.0.1:0\n")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--config", path})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- cmd.ExecuteContext(ctx)
	}()

	select {
	case err := <-errChan:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after context cancellation")
	}
	assert.Contains(t, buf.String(), "Wally started")
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newLogger(buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=WARN msg=shown k=v")

	buf.Reset()
	newLogger(buf, "DEBUG", "json").Debug("detail")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
	assert.Contains(t, buf.String(), `"msg":"detail"`)
}
