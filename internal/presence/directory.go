package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
)

// Entry is one person in the Directory.
type Entry struct {
	Handle    string         `json:"handle"`
	Name      string         `json:"name"`
	Presence  model.Presence `json:"presence"`
	UpdatedAt time.Time      `json:"updated"`
}

// Directory is the in-memory view of everyone flagged to appear in the
// locator. Only handles loaded from the store are tracked.
type Directory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewDirectory returns an empty Directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]*Entry)}
}

// Load replaces the known handles with people, all Offline.
func (d *Directory) Load(people []model.Person) {
	entries := make(map[string]*Entry, len(people))
	for _, p := range people {
		if p.Handle == "" {
			continue
		}
		entries[p.Handle] = &Entry{
			Handle:   p.Handle,
			Name:     p.DisplayName(),
			Presence: model.PresenceOffline,
		}
	}
	d.mu.Lock()
	d.entries = entries
	d.mu.Unlock()
}

// Known reports whether handle is tracked.
func (d *Directory) Known(handle string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[handle]
	return ok
}

// SetName updates the display name of a known handle.
func (d *Directory) SetName(handle, name string) {
	if name == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[handle]; ok {
		e.Name = name
	}
}

// SetPresence records p for a known handle. It reports whether the stored
// value changed.
func (d *Directory) SetPresence(handle string, p model.Presence, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[handle]
	if !ok || e.Presence == p {
		return false
	}
	e.Presence = p
	e.UpdatedAt = at
	return true
}

// Get returns a copy of the entry for handle.
func (d *Directory) Get(handle string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[handle]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// All returns every entry ordered by handle.
func (d *Directory) All() []Entry {
	return d.filter(func(Entry) bool { return true })
}

// Online returns every entry whose presence is not Offline, ordered by
// handle.
func (d *Directory) Online() []Entry {
	return d.filter(func(e Entry) bool { return e.Presence != model.PresenceOffline })
}

// Len returns the number of known handles.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

func (d *Directory) filter(keep func(Entry) bool) []Entry {
	d.mu.RLock()
	out := make([]Entry, 0, len(d.entries))
	for _, e := range d.entries {
		if keep(*e) {
			out = append(out, *e)
		}
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}
