package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Easy-Rad/wally/internal/model"
	"github.com/Easy-Rad/wally/internal/presence"
)

// Clock is the time source of a Session.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// PresenceSink receives roster and presence updates.
// Implemented by *presence.Mirror.
type PresenceSink interface {
	SessionStarted()
	OnRosterItem(jid, name string)
	OnPresence(ctx context.Context, u presence.Update) (model.Presence, error)
}

// Responder answers command text. Implemented by *command.Responder.
type Responder interface {
	Respond(ctx context.Context, sender, text string) string
}

// Config holds the session timings. Zero values take the defaults.
type Config struct {
	ReconnectDelay  time.Duration // default 15s
	SessionLifetime time.Duration // default 24h
	MaxReplies      int           // default 4
	ReplyTimeout    time.Duration // default 30s
	DrainTimeout    time.Duration // default 10s
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 15 * time.Second
	}
	if c.SessionLifetime <= 0 {
		c.SessionLifetime = 24 * time.Hour
	}
	if c.MaxReplies <= 0 {
		c.MaxReplies = 4
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = 30 * time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 10 * time.Second
	}
	return c
}

// Session keeps a chat connection open, mirrors presence and answers
// messages. A dropped connection is re-dialled after ReconnectDelay; a
// connection older than SessionLifetime is closed and re-dialled at once.
type Session struct {
	dialer    Dialer
	sink      PresenceSink
	responder Responder
	clock     Clock
	cfg       Config
	logger    *slog.Logger

	// NewID returns the id of an outbound message. Defaults to a random
	// UUID; replace before Run.
	NewID func() string

	replies   *semaphore.Weighted
	connected atomic.Bool
}

// NewSession creates a Session. clock and logger may be nil.
func NewSession(dialer Dialer, sink PresenceSink, responder Responder, cfg Config, clock Clock, logger *slog.Logger) *Session {
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Session{
		dialer:    dialer,
		sink:      sink,
		responder: responder,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With("component", "chat"),
		NewID:     uuid.NewString,
		replies:   semaphore.NewWeighted(int64(cfg.MaxReplies)),
	}
}

// Connected reports whether a connection is currently established.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// Run connects and serves until ctx is cancelled. It always returns nil.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		s.logger.Info("chat client connecting")
		err := s.connect(ctx)

		if ctx.Err() != nil {
			s.logger.Info("chat session stopped")
			return nil
		}
		if err == nil {
			continue
		}

		s.logger.Error("chat connection failed", "error", err, "retry_in", s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			s.logger.Info("chat session stopped")
			return nil
		case <-s.clock.After(s.cfg.ReconnectDelay):
		}
	}
}

// connect dials and serves one connection. A nil return means the
// lifetime ran out or ctx was cancelled.
func (s *Session) connect(ctx context.Context) error {
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	s.connected.Store(true)
	defer s.connected.Store(false)
	s.logger.Info("chat client connected")

	l := &link{session: s, conn: conn, queue: newEventQueue()}
	return l.serve(ctx)
}

// link is the state of one connection.
type link struct {
	session *Session
	conn    Conn
	queue   *eventQueue
	readErr error // written by the reader before it closes the queue

	sendMu  sync.Mutex
	pending sync.WaitGroup
}

func (l *link) serve(ctx context.Context) error {
	s := l.session
	d := l.dispatcher()

	l.queue.Enqueue(Event{Kind: SessionStart})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		l.read()
	}()

	err := l.loop(ctx, d)

	l.drain()
	if cerr := l.conn.Close(); cerr != nil {
		s.logger.Debug("close connection", "error", cerr)
	}
	<-readerDone
	return err
}

func (l *link) read() {
	for {
		ev, err := l.conn.Recv()
		if err != nil {
			l.readErr = err
			l.queue.Close()
			return
		}
		if !l.queue.Enqueue(ev) {
			return
		}
	}
}

func (l *link) loop(ctx context.Context, d *Dispatcher) error {
	s := l.session
	lifetime := s.clock.After(s.cfg.SessionLifetime)
	for {
		for {
			ev, ok := l.queue.TryDequeue()
			if !ok {
				break
			}
			handled, err := d.Dispatch(ctx, ev)
			if err != nil {
				s.logger.Warn("event failed", "error", err)
			} else if !handled {
				s.logger.Debug("event ignored", "kind", ev.Kind)
			}
		}
		if l.queue.Drained() {
			return fmt.Errorf("connection lost: %w", l.readErr)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-lifetime:
			s.logger.Info("chat session lifetime reached", "lifetime", s.cfg.SessionLifetime)
			return nil
		case <-l.queue.Wait():
		}
	}
}

func (l *link) dispatcher() *Dispatcher {
	s := l.session
	d := NewDispatcher()

	d.Handle(SessionStart, func(context.Context, Event) error {
		s.sink.SessionStarted()
		l.sendMu.Lock()
		defer l.sendMu.Unlock()
		if err := l.conn.RequestRoster(); err != nil {
			return fmt.Errorf("request roster: %w", err)
		}
		if err := l.conn.SendAvailable(); err != nil {
			return fmt.Errorf("send presence: %w", err)
		}
		return nil
	})

	d.Handle(RosterReceived, func(_ context.Context, ev Event) error {
		for _, item := range ev.Roster.Items {
			s.sink.OnRosterItem(item.JID, item.Name)
		}
		s.logger.Info("roster received", "contacts", len(ev.Roster.Items))
		return nil
	})

	d.Handle(PresenceChanged, func(ctx context.Context, ev Event) error {
		_, err := s.sink.OnPresence(ctx, presence.Update{
			From: ev.Presence.From,
			Type: ev.Presence.Type,
			Show: ev.Presence.Show,
		})
		return err
	})

	d.Handle(MessageReceived, func(ctx context.Context, ev Event) error {
		if ev.Message.Type != "chat" {
			return nil
		}
		l.reply(ctx, *ev.Message)
		return nil
	})

	return d
}

// reply answers m on its own goroutine. At most MaxReplies run at once
// across the session; a reply that has started finishes even if ctx is
// cancelled, bounded by ReplyTimeout.
func (l *link) reply(ctx context.Context, m Message) {
	s := l.session
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		if err := s.replies.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.replies.Release(1)

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ReplyTimeout)
		defer cancel()

		out := s.compose(rctx, m)
		if err := l.send(out); err != nil {
			s.logger.Warn("send reply failed", "to", out.To, "error", err)
		}
	}()
}

// compose builds the answer to m. Messages carrying a viewer payload are
// echoed with that payload; anything else is read as a command.
func (s *Session) compose(ctx context.Context, m Message) Message {
	bare := model.BareJID(m.From)
	sender := model.CodeFromJID(bare)
	s.logger.Info("message", "from", sender, "body", m.Body)

	out := Message{ID: s.NewID(), To: bare, Type: "chat"}
	if payload, ok := m.Payload(); ok {
		out.Body = m.Body
		out.Elements = []Element{payload}
		return out
	}
	out.Body = s.responder.Respond(ctx, sender, m.Body)
	return out
}

func (l *link) send(m Message) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	return l.conn.SendMessage(m)
}

// drain waits for replies in flight, bounded by DrainTimeout of wall
// time.
func (l *link) drain() {
	done := make(chan struct{})
	go func() {
		l.pending.Wait()
		close(done)
	}()

	timer := time.NewTimer(l.session.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		l.session.logger.Warn("replies still running at disconnect", "timeout", l.session.cfg.DrainTimeout)
	}
}
