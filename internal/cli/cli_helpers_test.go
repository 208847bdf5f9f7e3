package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeConfig writes a complete config to a temp dir, with SQLite for
// both databases and unreachable remote hosts. extra is appended verbatim.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`store:
  driver: sqlite3
  dsn: %s
reporting:
  host: 127.0.0.1:1
  user: wally
  password: ps-secret
  request_timeout: 1s
chat:
  jid: wally@cdhb
  password: chat-secret
  server: 127.0.0.1
  port: 1
schedule:
  driver: sqlite3
  dsn: %s
%s`, filepath.Join(dir, "wally.db"), filepath.Join(dir, "physch.db"), extra)
	path := filepath.Join(dir, "wally.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
