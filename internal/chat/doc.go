// Package chat runs the chat-network side of wally.
//
// A Session dials the server through a Dialer, feeds inbound stanzas
// through an unbounded queue to a single dispatch goroutine and answers
// chat messages on a bounded set of reply goroutines. Presence and roster
// updates go to a PresenceSink; command text goes to a Responder.
//
// XMPPDialer is the production Dialer, built on github.com/xmppo/go-xmpp.
package chat
