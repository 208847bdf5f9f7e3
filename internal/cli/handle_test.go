package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	noConfig := filepath.Join(t.TempDir(), "absent.yaml")

	tests := []struct {
		name string
		args []string
		want HandleResult
	}{
		{
			name: "code with domain flag",
			args: []string{"handle", "AnnLee", "--domain", "chat.local"},
			want: HandleResult{Code: "AnnLee", JID: "|ann|lee@chat.local"},
		},
		{
			name: "code with configured domain",
			args: []string{"handle", "AnnLee", "--config", noConfig},
			want: HandleResult{Code: "AnnLee", JID: "|ann|lee@cdhb"},
		},
		{
			name: "full jid keeps its domain",
			args: []string{"handle", "|bob|king@chat.local/Viewer"},
			want: HandleResult{Code: "BobKing", JID: "|bob|king@chat.local"},
		},
		{
			name: "local part only",
			args: []string{"handle", "|bob|king", "--domain", "cdhb"},
			want: HandleResult{Code: "BobKing", JID: "|bob|king@cdhb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(tt.args, "--format", "json")...)
			require.NoError(t, err)

			var resp struct {
				Data HandleResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, tt.want, resp.Data)
		})
	}
}

func TestHandle_Text(t *testing.T) {
	out, err := execute(t, "handle", "AnnLee", "--domain", "cdhb")
	require.NoError(t, err)
	assert.Equal(t, "code: AnnLee\njid:  |ann|lee@cdhb\n", out)
}

func TestHandle_RequiresOneArg(t *testing.T) {
	_, err := execute(t, "handle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
