package model

import (
	"errors"
	"fmt"
	"time"
)

// EventKind is the internal classification of a reporting-system activity.
type EventKind string

const (
	EventSigned             EventKind = "Sign"
	EventEdited             EventKind = "Edit"
	EventQueuedForSignature EventKind = "QueueForSignature"
	EventOverread           EventKind = "Overread"
)

// ErrUnknownEventKind is returned by ParseEventKind for kinds that are not
// tracked. Callers drop the event.
var ErrUnknownEventKind = errors.New("unknown event kind")

// ParseEventKind maps the reporting system's event type to an EventKind.
func ParseEventKind(external string) (EventKind, error) {
	switch kind := EventKind(external); kind {
	case EventSigned, EventEdited, EventQueuedForSignature, EventOverread:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEventKind, external)
	}
}

// ActivityEvent is one user action observed on a report.
type ActivityEvent struct {
	Kind        EventKind
	Timestamp   time.Time
	Workstation string
	Note        string

	// PersonID is the reporting-system account ID of the actor. It is the
	// key the store uses to find the matching Person row.
	PersonID int64

	// PersonName is the account name as the reporting system spells it.
	// Used for logging only.
	PersonName string
}

// NewerThan reports whether e happened strictly after other.
func (e ActivityEvent) NewerThan(other ActivityEvent) bool {
	return e.Timestamp.After(other.Timestamp)
}

// Presence is the four-valued chat-network availability of a person.
type Presence string

const (
	PresenceAvailable Presence = "Available"
	PresenceAway      Presence = "Away"
	PresenceBusy      Presence = "Busy"
	PresenceOffline   Presence = "Offline"
)

// Person is a row of the shared store.
type Person struct {
	ID            int64
	FirstName     string
	LastName      string
	Handle        string // chat-network code, e.g. "JohnSmith"
	ReportingID   int64
	LoginName     string // reporting-system login
	ScheduleCode  string // empty when not registered with the scheduling source
	ShowInLocator bool

	LastEvent         *ActivityEvent
	Presence          Presence
	PresenceUpdatedAt time.Time
}

// DisplayName returns "First Last", falling back to the handle.
func (p Person) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "" || p.LastName != "":
		return p.FirstName + p.LastName
	default:
		return p.Handle
	}
}

// Session is the credential material for one reporting-system sign-in.
type Session struct {
	AccountID  int64
	PersonName string
	Token      string
	IssuedAt   time.Time
}

// ExpiresAt returns the instant after which the session must be renewed.
func (s Session) ExpiresAt(lifetime time.Duration) time.Time {
	return s.IssuedAt.Add(lifetime)
}
