package engine

import (
	"sort"

	"github.com/Easy-Rad/wally/internal/model"
)

// ActivityIndex holds the newest known event per reporting account and
// the set of accounts whose entry changed since the last flush.
//
// ActivityIndex is not safe for concurrent use. It is owned by the
// goroutine running PollOnce.
type ActivityIndex struct {
	latest map[int64]model.ActivityEvent
	dirty  map[int64]struct{}
}

// NewActivityIndex returns an empty index.
func NewActivityIndex() *ActivityIndex {
	return &ActivityIndex{
		latest: make(map[int64]model.ActivityEvent),
		dirty:  make(map[int64]struct{}),
	}
}

// Merge records ev if it is strictly newer than the current entry for its
// person, or if there is none. It reports whether the index changed.
func (x *ActivityIndex) Merge(ev model.ActivityEvent) bool {
	if cur, ok := x.latest[ev.PersonID]; ok && !ev.NewerThan(cur) {
		return false
	}
	x.latest[ev.PersonID] = ev
	x.dirty[ev.PersonID] = struct{}{}
	return true
}

// Latest returns the current entry for a person.
func (x *ActivityIndex) Latest(personID int64) (model.ActivityEvent, bool) {
	ev, ok := x.latest[personID]
	return ev, ok
}

// Dirty returns the current entries of every dirty person, ordered by
// person ID.
func (x *ActivityIndex) Dirty() []model.ActivityEvent {
	if len(x.dirty) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(x.dirty))
	for id := range x.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]model.ActivityEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, x.latest[id])
	}
	return out
}

// ClearDirty empties the dirty set. Entries are kept.
func (x *ActivityIndex) ClearDirty() {
	clear(x.dirty)
}

// Len returns the number of people with a known event.
func (x *ActivityIndex) Len() int {
	return len(x.latest)
}
