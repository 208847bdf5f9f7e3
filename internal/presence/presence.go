// Package presence mirrors chat-network availability into the shared
// store.
//
// Tracker folds raw presence stanzas into per-account resource lists.
// Mirror turns the result into a model.Presence, writes it through the
// store's guarded update and keeps the in-memory Directory current.
package presence

import (
	"sync"

	"github.com/Easy-Rad/wally/internal/model"
)

// MapShow maps a raw show value to a Presence. ok is false when the
// account has no presence data at all.
//
//	""     → Available
//	"away" → Away
//	"dnd"  → Busy
//	other  → Offline
func MapShow(show string, ok bool) model.Presence {
	if !ok {
		return model.PresenceOffline
	}
	switch show {
	case "":
		return model.PresenceAvailable
	case "away":
		return model.PresenceAway
	case "dnd":
		return model.PresenceBusy
	default:
		return model.PresenceOffline
	}
}

// Update is one inbound presence stanza.
type Update struct {
	From string // full JID, resource included
	Type string // "" or "unavailable"; anything else is ignored
	Show string
}

// Availability reports whether u carries availability. Subscription,
// probe and error stanzas do not.
func (u Update) Availability() bool {
	return u.Type == "" || u.Type == "unavailable"
}

type resourceShow struct {
	resource string
	show     string
}

// Tracker keeps, per bare JID, the show value of every online resource in
// the order the resources first appeared. The earliest resource still
// online decides the account's presence.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	byJID map[string][]resourceShow
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{byJID: make(map[string][]resourceShow)}
}

// Apply records u and returns the bare JID it concerns together with the
// deciding show value. ok is false when no resource is online. An update
// without availability leaves the state as it was.
func (t *Tracker) Apply(u Update) (bare, show string, ok bool) {
	bare = model.BareJID(u.From)
	resource := ""
	if len(bare) < len(u.From) {
		resource = u.From[len(bare)+1:]
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.byJID[bare]
	idx := -1
	for i, r := range list {
		if r.resource == resource {
			idx = i
			break
		}
	}
	switch {
	case !u.Availability():
	case u.Type == "unavailable":
		if idx >= 0 {
			list = append(list[:idx], list[idx+1:]...)
		}
	case idx >= 0:
		list[idx].show = u.Show
	default:
		list = append(list, resourceShow{resource: resource, show: u.Show})
	}

	if len(list) == 0 {
		delete(t.byJID, bare)
		return bare, "", false
	}
	t.byJID[bare] = list
	return bare, list[0].show, true
}

// Presence returns the current presence of a bare JID.
func (t *Tracker) Presence(bare string) model.Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.byJID[bare]
	if len(list) == 0 {
		return model.PresenceOffline
	}
	return MapShow(list[0].show, true)
}

// Clear forgets everything. Used when a new connection starts.
func (t *Tracker) Clear() {
	t.mu.Lock()
	clear(t.byJID)
	t.mu.Unlock()
}
