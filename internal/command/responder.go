package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
	"github.com/Easy-Rad/wally/internal/schedule"
	"github.com/Easy-Rad/wally/internal/store"
)

// People resolves persons. Implemented by store.Gateway.
type People interface {
	PersonByHandle(ctx context.Context, handle string) (model.Person, error)
	FindPerson(ctx context.Context, query string) (model.Person, error)
}

// Schedule answers roster questions. Implemented by *schedule.Source.
type Schedule interface {
	ShiftsFor(ctx context.Context, code string, day time.Time) ([]string, error)
	Meetings(ctx context.Context, day time.Time) ([]schedule.Meeting, error)
}

// HelpText lists every command.
const HelpText = `
Wally commands:
roster: Show your roster for today
roster tomorrow: Show your roster for tomorrow
roster <name>: Show someone else's roster for today
roster <name> tomorrow: Show someone else's roster for tomorrow
meetings: Show today's meetings
meetings tomorrow: Show tomorrow's meetings`

const apology = "Sorry, something went wrong looking that up. Please try again later."

// Responder formats replies to chat commands.
type Responder struct {
	people   People
	schedule Schedule
	now      func() time.Time
	loc      *time.Location
	logger   *slog.Logger
}

// NewResponder creates a Responder. now and loc may be nil.
func NewResponder(people People, sched Schedule, now func() time.Time, loc *time.Location, logger *slog.Logger) *Responder {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		people:   people,
		schedule: sched,
		now:      now,
		loc:      loc,
		logger:   logger.With("component", "command"),
	}
}

// Respond returns the reply to text sent by the person with chat handle
// sender.
func (r *Responder) Respond(ctx context.Context, sender, text string) string {
	cmd := Parse(text)
	var (
		reply string
		err   error
	)
	switch cmd.Kind {
	case Roster:
		reply, err = r.roster(ctx, sender, cmd)
	case Meetings:
		reply, err = r.meetings(ctx, cmd.Tomorrow)
	default:
		return HelpText
	}
	if err != nil {
		r.logger.Error("command failed", "sender", sender, "command", cmd.Kind, "error", err)
		return apology
	}
	return reply
}

func (r *Responder) day(tomorrow bool) (time.Time, string) {
	today := r.now().In(r.loc)
	if tomorrow {
		return today.AddDate(0, 0, 1), "tomorrow"
	}
	return today, "today"
}

func (r *Responder) roster(ctx context.Context, sender string, cmd Command) (string, error) {
	var (
		p   model.Person
		err error
	)
	if cmd.Target == "" {
		p, err = r.people.PersonByHandle(ctx, sender)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("Username \"%s\" is not registered in the database, please contact my overlords", sender), nil
		}
	} else {
		p, err = r.people.FindPerson(ctx, cmd.Target)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("Could not find anyone matching \"%s\"", cmd.Target), nil
		}
	}
	if err != nil {
		return "", err
	}
	if p.ScheduleCode == "" {
		if cmd.Target == "" {
			return fmt.Sprintf("Username \"%s\" is not registered in the database, please contact my overlords", sender), nil
		}
		return fmt.Sprintf("%s is not registered in the roster", p.DisplayName()), nil
	}

	// The store lookup above has returned its connection before the
	// scheduling query starts.
	day, word := r.day(cmd.Tomorrow)
	shifts, err := r.schedule.ShiftsFor(ctx, p.ScheduleCode, day)
	if err != nil {
		return "", err
	}
	who := fmt.Sprintf("%s %s (%s)", p.FirstName, p.LastName, p.ScheduleCode)
	if len(shifts) == 0 {
		return fmt.Sprintf("%s is not rostered %s", who, word), nil
	}
	return fmt.Sprintf("\n%s roster for %s:\n%s", possessive(word), who, strings.Join(shifts, "\n")), nil
}

func (r *Responder) meetings(ctx context.Context, tomorrow bool) (string, error) {
	day, word := r.day(tomorrow)
	meetings, err := r.schedule.Meetings(ctx, day)
	if err != nil {
		return "", err
	}
	if len(meetings) == 0 {
		return "No meetings " + word, nil
	}
	var b strings.Builder
	b.WriteString("\n" + possessive(word) + " meetings:")
	for _, m := range meetings {
		fmt.Fprintf(&b, "\n%s: %s: %s %s", m.Start.Format("15:04"), m.Shift, m.FirstName, m.LastName)
	}
	return b.String(), nil
}

// possessive turns "today" into "Today's".
func possessive(word string) string {
	return strings.ToUpper(word[:1]) + word[1:] + "'s"
}
