package chat

import (
	"context"
	"fmt"
)

// Handler reacts to one event.
type Handler func(ctx context.Context, ev Event) error

// Dispatcher routes events to the handler registered for their kind.
// It is built once per connection and not modified afterwards.
type Dispatcher struct {
	handlers map[EventKind]Handler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventKind]Handler)}
}

// Handle registers h for kind, replacing any earlier handler.
func (d *Dispatcher) Handle(kind EventKind, h Handler) {
	d.handlers[kind] = h
}

// Dispatch runs the handler for ev.Kind. Events without a handler are
// ignored and reported as handled=false.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (handled bool, err error) {
	h, ok := d.handlers[ev.Kind]
	if !ok {
		return false, nil
	}
	if err := h(ctx, ev); err != nil {
		return true, fmt.Errorf("%s: %w", ev.Kind, err)
	}
	return true, nil
}
