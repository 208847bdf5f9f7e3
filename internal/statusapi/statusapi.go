// Package statusapi serves a read-only view of wally's state over HTTP.
package statusapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Easy-Rad/wally/internal/engine"
	"github.com/Easy-Rad/wally/internal/presence"
)

// Presence is the directory being served. Implemented by *presence.Directory.
type Presence interface {
	All() []presence.Entry
	Online() []presence.Entry
	Get(handle string) (presence.Entry, bool)
}

// Sync reports the reporting loop. Implemented by *engine.Loop.
type Sync interface {
	State() engine.State
	Engine() *engine.Engine
}

// Chat reports the chat connection. Implemented by *chat.Session.
type Chat interface {
	Connected() bool
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SyncStatus is the body of GET /sync/status.
type SyncStatus struct {
	State         engine.State `json:"state"`
	Watermark     time.Time    `json:"watermark"`
	IndexedPeople int          `json:"indexed_people"`
}

// Health is the body of GET /healthz.
type Health struct {
	Status        string       `json:"status"`
	Store         string       `json:"store"`
	ChatConnected bool         `json:"chat_connected"`
	SyncState     engine.State `json:"sync_state"`
}

// Handler holds the sources behind each route. Nil sources are reported
// as unavailable.
type Handler struct {
	Presence Presence
	Sync     Sync
	Chat     Chat
	Store    Pinger
}

// Router builds the gin engine.
func (h *Handler) Router(logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", h.GetHealth)
	r.GET("/presence/online", h.GetOnline)
	r.GET("/presence/all", h.GetAll)
	r.GET("/presence/:handle", h.GetPerson)
	r.GET("/sync/status", h.GetSyncStatus)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := Health{Status: "ok", Store: "ok"}
	if h.Chat != nil {
		health.ChatConnected = h.Chat.Connected()
	}
	if h.Sync != nil {
		health.SyncState = h.Sync.State()
	}

	code := http.StatusOK
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			health.Status = "degraded"
			health.Store = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, health)
}

func (h *Handler) GetOnline(c *gin.Context) {
	if h.Presence == nil {
		unavailable(c, "presence")
		return
	}
	c.JSON(http.StatusOK, h.Presence.Online())
}

func (h *Handler) GetAll(c *gin.Context) {
	if h.Presence == nil {
		unavailable(c, "presence")
		return
	}
	c.JSON(http.StatusOK, h.Presence.All())
}

func (h *Handler) GetPerson(c *gin.Context) {
	if h.Presence == nil {
		unavailable(c, "presence")
		return
	}
	handle := c.Param("handle")
	entry, ok := h.Presence.Get(handle)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown handle %q", handle)})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) GetSyncStatus(c *gin.Context) {
	if h.Sync == nil {
		unavailable(c, "sync")
		return
	}
	e := h.Sync.Engine()
	c.JSON(http.StatusOK, SyncStatus{
		State:         h.Sync.State(),
		Watermark:     e.Watermark(),
		IndexedPeople: e.IndexSize(),
	})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not available"})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "statusapi")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Server runs the Handler on an address until its context ends.
type Server struct {
	addr    string
	handler *Handler
	logger  *slog.Logger
}

// NewServer creates a Server.
func NewServer(addr string, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, handler: handler, logger: logger}
}

// Run listens and serves until ctx is cancelled, then shuts down. It
// returns an error only when the listener cannot be opened or fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status api listen: %w", err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler.Router(s.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("status api listening", "component", "statusapi", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("status api: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("status api shutdown", "component", "statusapi", "error", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status api: %w", err)
	}
	return nil
}
