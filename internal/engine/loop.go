package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
)

// State is the lifecycle state of the outer session/poll loop.
type State string

const (
	StateDisconnected   State = "Disconnected"
	StateLoggingIn      State = "LoggingIn"
	StatePolling        State = "Polling"
	StateSessionExpired State = "SessionExpired"
	StateLoggingOut     State = "LoggingOut"
)

// Sessions opens and closes remote sessions.
// Implemented by *reporting.SessionManager.
type Sessions interface {
	Login(ctx context.Context) (*model.Session, error)
	Logout(ctx context.Context) error
}

// LoopConfig holds the loop timings. Zero values take the defaults.
type LoopConfig struct {
	PollInterval    time.Duration // default 60s
	RetryDelay      time.Duration // default 60s
	SessionLifetime time.Duration // default 24h
	LogoutTimeout   time.Duration // default 10s
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 60 * time.Second
	}
	if c.SessionLifetime <= 0 {
		c.SessionLifetime = 24 * time.Hour
	}
	if c.LogoutTimeout <= 0 {
		c.LogoutTimeout = 10 * time.Second
	}
	return c
}

// Loop owns a remote session and runs the Engine inside it:
//
//	Disconnected → LoggingIn → Polling → SessionExpired → LoggingOut → Disconnected
//
// A failure while logging in or polling goes straight to LoggingOut, then
// waits RetryDelay before logging in again. Run only returns when its
// context is cancelled, after releasing the session.
type Loop struct {
	engine   *Engine
	sessions Sessions
	clock    Clock
	ids      IDGenerator
	cfg      LoopConfig
	logger   *slog.Logger

	state atomic.Value // State
}

// NewLoop creates a Loop. clock and ids may be nil.
func NewLoop(engine *Engine, sessions Sessions, cfg LoopConfig, clock Clock, ids IDGenerator, logger *slog.Logger) *Loop {
	if clock == nil {
		clock = SystemClock{}
	}
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		engine:   engine,
		sessions: sessions,
		clock:    clock,
		ids:      ids,
		cfg:      cfg.withDefaults(),
		logger:   logger.With("component", "engine"),
	}
	l.state.Store(StateDisconnected)
	return l
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return l.state.Load().(State)
}

// Engine returns the wrapped engine.
func (l *Loop) Engine() *Engine {
	return l.engine
}

func (l *Loop) setState(s State) {
	if prev := l.state.Swap(s); prev != s {
		l.logger.Debug("state", "from", prev, "to", s)
	}
}

// Run drives the loop until ctx is cancelled. It always returns nil.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		l.logger.Info("starting reporting session")
		err := l.session(ctx)

		l.setState(StateLoggingOut)
		l.logout(ctx)
		l.setState(StateDisconnected)

		if ctx.Err() != nil {
			l.logger.Info("reporting loop stopped")
			return nil
		}
		if err == nil {
			continue
		}

		l.logger.Error("reporting session failed",
			"code", Classify(err),
			"error", err,
			"retry_in", l.cfg.RetryDelay,
		)
		select {
		case <-ctx.Done():
			l.logger.Info("reporting loop stopped")
			return nil
		case <-l.clock.After(l.cfg.RetryDelay):
		}
	}
}

// session logs in and polls until the session lifetime is used up. A nil
// return means the session expired or ctx was cancelled.
func (l *Loop) session(ctx context.Context) error {
	l.setState(StateLoggingIn)
	if _, err := l.sessions.Login(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return wrap("login", err)
	}

	started := l.clock.Now()
	l.setState(StatePolling)
	for l.clock.Now().Sub(started) < l.cfg.SessionLifetime {
		cycle := l.ids.Generate()

		// A poll that has started runs to completion even if ctx is
		// cancelled meanwhile; request timeouts bound it.
		n, err := l.engine.PollCycle(context.WithoutCancel(ctx), cycle)
		if err != nil {
			return err
		}
		if n > 0 {
			l.logger.Info("poll cycle", "cycle", cycle, "updated", n, "watermark", l.engine.Watermark())
		} else {
			l.logger.Debug("poll cycle", "cycle", cycle, "updated", 0)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.clock.After(l.cfg.PollInterval):
		}
	}

	l.setState(StateSessionExpired)
	l.logger.Info("reporting session lifetime reached", "lifetime", l.cfg.SessionLifetime)
	return nil
}

// logout releases the session on a context that survives cancellation of
// parent, bounded by LogoutTimeout.
func (l *Loop) logout(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), l.cfg.LogoutTimeout)
	defer cancel()
	if err := l.sessions.Logout(ctx); err != nil {
		l.logger.Warn("reporting logout failed", "error", err)
	}
}
