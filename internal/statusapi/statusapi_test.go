package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Easy-Rad/wally/internal/engine"
	"github.com/Easy-Rad/wally/internal/model"
	"github.com/Easy-Rad/wally/internal/presence"
	"github.com/Easy-Rad/wally/internal/testutil"
)

var t0 = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

type fakeChat bool

func (f fakeChat) Connected() bool { return bool(f) }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newDirectory() *presence.Directory {
	d := presence.NewDirectory()
	d.Load([]model.Person{
		{Handle: "AnnLee", FirstName: "Ann", LastName: "Lee"},
		{Handle: "BobKing", FirstName: "Bob", LastName: "King"},
	})
	d.SetPresence("AnnLee", model.PresenceAvailable, t0)
	return d
}

func newLoop() *engine.Loop {
	clock := testutil.NewFakeClock(t0)
	e := engine.New(nil, nil, engine.Options{Clock: clock, Lookback: 30 * time.Minute})
	return engine.NewLoop(e, nil, engine.LoopConfig{}, clock, nil, nil)
}

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return h.Router(nil)
}

func get(t *testing.T, r http.Handler, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestPresenceRoutes(t *testing.T) {
	r := setupRouter(&Handler{Presence: newDirectory()})

	var online []presence.Entry
	require.Equal(t, http.StatusOK, get(t, r, "/presence/online", &online))
	require.Len(t, online, 1)
	assert.Equal(t, "AnnLee", online[0].Handle)
	assert.Equal(t, model.PresenceAvailable, online[0].Presence)

	var all []presence.Entry
	require.Equal(t, http.StatusOK, get(t, r, "/presence/all", &all))
	assert.Len(t, all, 2)

	var one presence.Entry
	require.Equal(t, http.StatusOK, get(t, r, "/presence/BobKing", &one))
	assert.Equal(t, model.PresenceOffline, one.Presence)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, get(t, r, "/presence/Nobody", &errBody))
	assert.Contains(t, errBody["error"], "Nobody")
}

func TestSyncStatus(t *testing.T) {
	r := setupRouter(&Handler{Sync: newLoop()})

	var status SyncStatus
	require.Equal(t, http.StatusOK, get(t, r, "/sync/status", &status))
	assert.Equal(t, engine.StateDisconnected, status.State)
	assert.True(t, status.Watermark.Equal(t0.Add(-30*time.Minute)), "watermark %v", status.Watermark)
	assert.Zero(t, status.IndexedPeople)
}

func TestHealth(t *testing.T) {
	r := setupRouter(&Handler{Sync: newLoop(), Chat: fakeChat(true), Store: fakePinger{}})
	var h Health
	require.Equal(t, http.StatusOK, get(t, r, "/healthz", &h))
	assert.Equal(t, Health{Status: "ok", Store: "ok", ChatConnected: true, SyncState: engine.StateDisconnected}, h)

	r = setupRouter(&Handler{Store: fakePinger{err: errors.New("pool closed")}})
	require.Equal(t, http.StatusServiceUnavailable, get(t, r, "/healthz", &h))
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "pool closed", h.Store)
}

func TestMissingSources(t *testing.T) {
	r := setupRouter(&Handler{})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/presence/all", nil))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/sync/status", nil))
	assert.Equal(t, http.StatusOK, get(t, r, "/healthz", nil))
	assert.Equal(t, http.StatusNotFound, get(t, r, "/nope", nil))
}

func TestServer_StopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := NewServer(ln.Addr().String(), &Handler{Presence: newDirectory()}, testutil.Logger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/presence/all"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewServer(ln.Addr().String(), &Handler{}, testutil.Logger(t))
	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status api listen")
}
