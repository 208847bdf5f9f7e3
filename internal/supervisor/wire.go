package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Easy-Rad/wally/internal/chat"
	"github.com/Easy-Rad/wally/internal/command"
	"github.com/Easy-Rad/wally/internal/config"
	"github.com/Easy-Rad/wally/internal/engine"
	"github.com/Easy-Rad/wally/internal/presence"
	"github.com/Easy-Rad/wally/internal/reporting"
	"github.com/Easy-Rad/wally/internal/schedule"
	"github.com/Easy-Rad/wally/internal/statusapi"
	"github.com/Easy-Rad/wally/internal/store"
)

// App is a fully wired wally process.
type App struct {
	Store      store.Gateway
	Schedule   *schedule.Source
	Sessions   *reporting.SessionManager
	Loop       *engine.Loop
	Mirror     *presence.Mirror
	Chat       *chat.Session
	Status     *statusapi.Server // nil when the status API is disabled
	Supervisor *Supervisor
}

// Build opens the shared store and the scheduling source and wires every
// component from cfg. Nothing is dialled until Run.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(ctx, store.Config{
		Driver:   cfg.Store.Driver,
		DSN:      cfg.Store.DSN,
		MaxConns: cfg.Store.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sched, err := schedule.Open(schedule.Config{
		Driver:           cfg.Schedule.Driver,
		Host:             cfg.Schedule.Host,
		Database:         cfg.Schedule.Database,
		Domain:           cfg.Schedule.Domain,
		User:             cfg.Schedule.User,
		Password:         cfg.Schedule.Password,
		DSN:              cfg.Schedule.DSN,
		MeetingShifts:    cfg.Schedule.MeetingShifts,
		PlaceholderStaff: cfg.Schedule.PlaceholderStaff,
		QueryTimeout:     cfg.ScheduleQueryTimeout(),
		Location:         cfg.ScheduleLocation(),
		Logger:           logger,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open schedule: %w", err)
	}

	app := &App{Store: st, Schedule: sched}

	client := reporting.NewClient(reporting.ClientConfig{
		BaseURL: baseURL(cfg.Reporting.Host),
		Timeout: cfg.RequestTimeout(),
		Logger:  logger,
	})
	app.Sessions = reporting.NewSessionManager(client, reporting.Credentials{
		LoginName:  cfg.Reporting.User,
		Password:   cfg.Reporting.Password,
		Version:    cfg.Reporting.Version,
		Locale:     cfg.Reporting.Locale,
		TimeZoneID: cfg.Reporting.TimeZoneID,
	}, nil, logger)

	eng := engine.New(app.Sessions, st, engine.Options{
		Lookback: cfg.Lookback(),
		PageSize: cfg.Reporting.PageSize,
		SiteID:   cfg.Reporting.SiteID,
		Logger:   logger,
	})
	app.Loop = engine.NewLoop(eng, app.Sessions, engine.LoopConfig{
		PollInterval:    cfg.PollInterval(),
		RetryDelay:      cfg.ReportingRetryDelay(),
		SessionLifetime: cfg.ReportingSessionLifetime(),
	}, nil, nil, logger)

	app.Mirror = presence.NewMirror(st, nil, nil, logger)
	responder := command.NewResponder(st, sched, nil, sched.Location(), logger)
	dialer := chat.XMPPDialer{Config: chat.XMPPConfig{
		JID:         cfg.Chat.JID,
		Password:    cfg.Chat.Password,
		Server:      cfg.Chat.Server,
		Port:        cfg.Chat.Port,
		Domain:      cfg.Chat.Domain,
		StartTLS:    cfg.Chat.StartTLS,
		InsecureTLS: cfg.Chat.InsecureTLS,
	}}
	app.Chat = chat.NewSession(dialer, app.Mirror, responder, chat.Config{
		ReconnectDelay:  cfg.ChatReconnectDelay(),
		SessionLifetime: cfg.ChatSessionLifetime(),
		MaxReplies:      cfg.Chat.MaxReplies,
	}, nil, logger)

	app.Supervisor = New(app.Mirror.Reset, logger)
	app.Supervisor.Add("reporting", app.Loop)
	app.Supervisor.Add("chat", app.Chat)

	if cfg.Status.Addr != "" {
		app.Status = statusapi.NewServer(cfg.Status.Addr, &statusapi.Handler{
			Presence: app.Mirror.Directory(),
			Sync:     app.Loop,
			Chat:     app.Chat,
			Store:    st,
		}, logger)
		app.Supervisor.Add("status", app.Status)
	}
	return app, nil
}

// Run runs the supervisor until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Supervisor.Run(ctx)
}

// Close releases the scheduling source and the store.
func (a *App) Close() error {
	return errors.Join(a.Schedule.Close(), a.Store.Close())
}

// baseURL accepts either a bare host or a URL.
func baseURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}
