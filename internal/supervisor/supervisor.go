// Package supervisor runs wally's long-lived loops side by side.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Component is a long-running loop. Run returns when ctx is cancelled; a
// non-nil error stops every other component.
type Component interface {
	Run(ctx context.Context) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f ComponentFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type named struct {
	name string
	c    Component
}

// Supervisor runs a startup step and then its components concurrently.
type Supervisor struct {
	startup    func(ctx context.Context) error
	components []named
	logger     *slog.Logger
}

// New creates a Supervisor. startup may be nil; when set it runs before
// any component starts and its failure aborts Run.
func New(startup func(ctx context.Context) error, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{startup: startup, logger: logger.With("component", "supervisor")}
}

// Add registers a component. Not safe to call once Run has started.
func (s *Supervisor) Add(name string, c Component) {
	s.components = append(s.components, named{name: name, c: c})
}

// Run executes startup, then every component until ctx is cancelled or a
// component fails. It waits for all components to return.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.startup != nil {
		if err := s.startup(ctx); err != nil {
			return fmt.Errorf("startup: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range s.components {
		n := n
		g.Go(func() error {
			s.logger.Info("starting", "name", n.name)
			err := n.c.Run(gctx)
			if err != nil {
				s.logger.Error("stopped with error", "name", n.name, "error", err)
				return fmt.Errorf("%s: %w", n.name, err)
			}
			s.logger.Info("stopped", "name", n.name)
			return nil
		})
	}
	return g.Wait()
}
