package command

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want Command
	}{
		{"roster", Command{Kind: Roster}},
		{"  Roster  ", Command{Kind: Roster}},
		{"ROSTER tomorrow", Command{Kind: Roster, Tomorrow: true}},
		{"roster AnnLee", Command{Kind: Roster, Target: "AnnLee"}},
		{"roster Ann Lee", Command{Kind: Roster, Target: "Ann Lee"}},
		{"roster Ann  Lee Tomorrow", Command{Kind: Roster, Target: "Ann Lee", Tomorrow: true}},
		{"meetings", Command{Kind: Meetings}},
		{"Meetings TOMORROW", Command{Kind: Meetings, Tomorrow: true}},
		{"meetings next week", Command{Kind: Help}},
		{"tomorrow", Command{Kind: Help}},
		{"hello", Command{Kind: Help}},
		{"", Command{Kind: Help}},
		{"   ", Command{Kind: Help}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "roster", Roster.String())
	assert.Equal(t, "meetings", Meetings.String())
	assert.Equal(t, "help", Help.String())
}

func TestParse_ConcurrentCallers(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, Command{Kind: Meetings, Tomorrow: true}, Parse("MEETINGS Tomorrow"))
			}
		}()
	}
	wg.Wait()
}
