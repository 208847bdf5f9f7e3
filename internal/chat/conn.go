package chat

import "context"

// Conn is an established, authenticated chat-network session.
//
// Recv blocks until the next inbound event and is called from a single
// goroutine. The Send methods and RequestRoster may be called from any
// goroutine but the caller serialises them. Close unblocks a pending Recv.
type Conn interface {
	Recv() (Event, error)
	SendAvailable() error
	RequestRoster() error
	SendMessage(m Message) error
	Close() error
}

// Dialer opens a Conn.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}
