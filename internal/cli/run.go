package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Easy-Rad/wally/internal/config"
	"github.com/Easy-Rad/wally/internal/supervisor"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	StatusAddr  string
	StoreDriver string
	StoreDSN    string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reporting sync and chat loops",
		Long: `Start wally: the reporting-activity poll loop and the chat session run side by
side until SIGINT or SIGTERM. Every person is marked Offline before the chat
session first connects.

Example:
  wally run --config /etc/wally.yaml
  wally run --db-driver postgres --db postgres://wally@db/wally --status-addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWally(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.StatusAddr, "status-addr", "", "listen address of the status API (overrides config)")
	cmd.Flags().StringVar(&opts.StoreDriver, "db-driver", "", "shared store driver: sqlite3 or postgres (overrides config)")
	cmd.Flags().StringVar(&opts.StoreDSN, "db", "", "shared store DSN or SQLite path (overrides config)")

	return cmd
}

func runWally(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.StatusAddr != "" {
		cfg.Status.Addr = opts.StatusAddr
	}
	if opts.StoreDriver != "" {
		cfg.Store.Driver = opts.StoreDriver
	}
	if opts.StoreDSN != "" {
		cfg.Store.DSN = opts.StoreDSN
	}

	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), level, cfg.Logging.Format))

	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("opening shared store", "driver", cfg.Store.Driver)
	app, err := supervisor.Build(ctx, cfg, slog.Default())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			slog.Error("error closing connections", "error", closeErr)
		}
	}()

	fmt.Fprintln(cmd.OutOrStdout(), "Wally started. Press Ctrl-C to stop.")
	if err := app.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "wally stopped", err)
	}

	slog.Info("wally stopped gracefully")
	return nil
}

// newLogger builds the process logger. Unknown levels mean info; format
// "json" selects the JSON handler, anything else the text handler.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
