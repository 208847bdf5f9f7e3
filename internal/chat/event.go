package chat

// EventKind identifies what happened on the connection.
type EventKind string

const (
	SessionStart    EventKind = "session_start"
	PresenceChanged EventKind = "presence_changed"
	MessageReceived EventKind = "message_received"
	RosterReceived  EventKind = "roster_received"
)

// Event is one inbound notification. Exactly one of Message, Presence or
// Roster is set, matching Kind; SessionStart carries none.
type Event struct {
	Kind     EventKind
	Message  *Message
	Presence *Presence
	Roster   *Roster
}
