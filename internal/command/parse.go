// Package command answers chat commands from staff.
//
// Parse turns message text into a Command; Responder.Respond resolves
// people through the shared store, queries the scheduling source and
// formats the reply. Respond never fails: lookup problems become a textual
// reply.
package command

import (
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the command verb.
type Kind int

const (
	Help Kind = iota
	Roster
	Meetings
)

func (k Kind) String() string {
	switch k {
	case Roster:
		return "roster"
	case Meetings:
		return "meetings"
	default:
		return "help"
	}
}

// Command is a parsed chat command.
type Command struct {
	Kind     Kind
	Target   string // roster only; empty means the sender
	Tomorrow bool
}

// Casers are not safe for concurrent use.
func is(word, keyword string) bool {
	return cases.Fold().String(word) == keyword
}

// Parse reads text with the grammar
//
//	roster [tomorrow]
//	roster <name-or-login> [tomorrow]
//	meetings [tomorrow]
//
// Keywords are case-insensitive and surrounding whitespace is ignored.
// Anything else is Help.
func Parse(text string) Command {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Command{Kind: Help}
	}
	verb, rest := words[0], words[1:]

	tomorrow := false
	if n := len(rest); n > 0 && is(rest[n-1], "tomorrow") {
		tomorrow = true
		rest = rest[:n-1]
	}

	switch {
	case is(verb, "roster"):
		return Command{Kind: Roster, Target: strings.Join(rest, " "), Tomorrow: tomorrow}
	case is(verb, "meetings") && len(rest) == 0:
		return Command{Kind: Meetings, Tomorrow: tomorrow}
	default:
		return Command{Kind: Help}
	}
}
