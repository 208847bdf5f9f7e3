package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
)

// Store is the part of the shared store the Mirror writes to.
// Implemented by store.Gateway.
type Store interface {
	UpdatePresence(ctx context.Context, handle string, presence model.Presence, at time.Time) (bool, error)
	ResetPresence(ctx context.Context) (int, error)
	LocatorPeople(ctx context.Context) ([]model.Person, error)
}

// Mirror applies presence stanzas to the store and the Directory.
type Mirror struct {
	store   Store
	tracker *Tracker
	dir     *Directory
	now     func() time.Time
	logger  *slog.Logger
}

// NewMirror creates a Mirror. now may be nil.
func NewMirror(store Store, dir *Directory, now func() time.Time, logger *slog.Logger) *Mirror {
	if dir == nil {
		dir = NewDirectory()
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		store:   store,
		tracker: NewTracker(),
		dir:     dir,
		now:     now,
		logger:  logger.With("component", "presence"),
	}
}

// Directory returns the Directory the Mirror maintains.
func (m *Mirror) Directory() *Directory {
	return m.dir
}

// Reset marks everyone Offline in the store and reloads the Directory.
// Called once before the first connection: until fresh notifications
// arrive the real state is unknown.
func (m *Mirror) Reset(ctx context.Context) error {
	m.logger.Info("setting all users to offline")
	if _, err := m.store.ResetPresence(ctx); err != nil {
		return fmt.Errorf("reset presence: %w", err)
	}
	people, err := m.store.LocatorPeople(ctx)
	if err != nil {
		return fmt.Errorf("load locator people: %w", err)
	}
	m.dir.Load(people)
	m.tracker.Clear()
	m.logger.Info("presence directory loaded", "people", m.dir.Len())
	return nil
}

// SessionStarted forgets per-resource state from a previous connection.
func (m *Mirror) SessionStarted() {
	m.tracker.Clear()
}

// OnRosterItem records a contact's display name.
func (m *Mirror) OnRosterItem(jid, name string) {
	m.dir.SetName(model.CodeFromJID(jid), name)
}

// OnPresence applies one presence stanza and returns the resulting
// presence of the sender. The store is only written when the value
// differs from what it holds. Updates without availability are not
// written.
func (m *Mirror) OnPresence(ctx context.Context, u Update) (model.Presence, error) {
	bare, show, ok := m.tracker.Apply(u)
	if !u.Availability() {
		m.logger.Debug("presence ignored", "from", u.From, "type", u.Type)
		return MapShow(show, ok), nil
	}
	p := MapShow(show, ok)
	handle := model.CodeFromJID(bare)
	at := m.now()

	if m.dir.SetPresence(handle, p, at) {
		m.logger.Debug("directory presence", "handle", handle, "presence", p)
	}

	changed, err := m.store.UpdatePresence(ctx, handle, p, at)
	if err != nil {
		return p, fmt.Errorf("update presence of %s: %w", handle, err)
	}
	if changed {
		m.logger.Info("presence", "handle", handle, "presence", p)
	}
	return p, nil
}
