package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Easy-Rad/wally/internal/model"
	"github.com/Easy-Rad/wally/internal/reporting"
)

// Remote is the session-bearing part of the reporting API.
// Implemented by *reporting.SessionManager.
type Remote interface {
	BrowseOrders(ctx context.Context, req reporting.BrowseRequest) ([]reporting.Order, error)
	GetReportEvents(ctx context.Context, reportID int64) ([]reporting.Event, error)
}

// EventWriter persists the latest event per person.
// Implemented by store.Gateway.
type EventWriter interface {
	UpsertEvents(ctx context.Context, events []model.ActivityEvent) (int, error)
}

const (
	// DefaultLookback is how far before process start the watermark begins.
	DefaultLookback = 60 * time.Minute

	// DefaultPageSize caps the orders returned by one query. One page is
	// assumed to cover a poll interval.
	DefaultPageSize = 3000

	// watermarkEpsilon keeps the order at the watermark out of the next
	// query window.
	watermarkEpsilon = 500 * time.Millisecond
)

// Options configures an Engine.
type Options struct {
	Lookback time.Duration
	PageSize int
	SiteID   int
	Clock    Clock
	Logger   *slog.Logger
}

// Engine discovers newly modified orders since a watermark and folds their
// events into an ActivityIndex, flushing changed people to the store.
//
// PollOnce must be called from one goroutine at a time. Watermark and
// IndexSize may be called from any goroutine.
type Engine struct {
	remote   Remote
	store    EventWriter
	clock    Clock
	logger   *slog.Logger
	pageSize int
	siteID   int

	watermark time.Time
	index     *ActivityIndex

	// Published copies for concurrent readers.
	publishedWatermark atomic.Int64
	publishedSize      atomic.Int64
}

// New creates an Engine whose watermark starts at now minus the lookback.
func New(remote Remote, store EventWriter, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	e := &Engine{
		remote:   remote,
		store:    store,
		clock:    opts.Clock,
		logger:   opts.Logger.With("component", "engine"),
		pageSize: opts.PageSize,
		siteID:   opts.SiteID,
		index:    NewActivityIndex(),
	}
	e.setWatermark(opts.Clock.Now().Add(-opts.Lookback))
	return e
}

// Watermark returns the current watermark.
func (e *Engine) Watermark() time.Time {
	return time.Unix(0, e.publishedWatermark.Load())
}

// IndexSize returns the number of people with a known event.
func (e *Engine) IndexSize() int {
	return int(e.publishedSize.Load())
}

func (e *Engine) setWatermark(t time.Time) {
	e.watermark = t
	e.publishedWatermark.Store(t.UnixNano())
}

// advance moves the watermark forward to t. Earlier times are ignored.
func (e *Engine) advance(t time.Time) {
	if t.After(e.watermark) {
		e.setWatermark(t)
	}
}

// PollOnce runs one poll cycle and returns the number of people written
// to the store.
//
// The watermark advances per order seen, before that order's events are
// fetched, so orders without tracked events are not queried again. An RPC
// failure aborts the cycle; whatever advance was made stands and the dirty
// set is kept for the next successful flush. Events fetched again after a
// failure are absorbed by the newest-wins merge.
func (e *Engine) PollOnce(ctx context.Context) (int, error) {
	return e.poll(ctx, e.logger)
}

// PollCycle is PollOnce with every log line tagged with the cycle ID.
func (e *Engine) PollCycle(ctx context.Context, cycle string) (int, error) {
	return e.poll(ctx, e.logger.With("cycle", cycle))
}

func (e *Engine) poll(ctx context.Context, logger *slog.Logger) (int, error) {
	from := e.watermark.Add(watermarkEpsilon)
	to := e.clock.Now()

	orders, err := e.remote.BrowseOrders(ctx, reporting.BrowseRequest{
		SiteID:         e.siteID,
		Time:           reporting.TimeRange{From: from, To: to},
		OrderStatus:    "Completed",
		TransferStatus: "All",
		ReportStatus:   "Reported",
		Sort:           "LastModifiedDate ASC",
		PageSize:       e.pageSize,
		PageNumber:     1,
	})
	if err != nil {
		return 0, wrap("browse orders", err)
	}
	if len(orders) > 0 {
		logger.Info("found updated orders", "count", len(orders), "since", e.watermark)
	}
	if len(orders) >= e.pageSize {
		logger.Warn("order page is full, later orders wait for the next cycle", "page_size", e.pageSize)
	}

	for _, order := range orders {
		e.advance(order.LastModifiedDate.Time)

		events, err := e.remote.GetReportEvents(ctx, order.ReportID)
		if err != nil {
			return 0, wrap("get report events", err)
		}
		for _, raw := range events {
			e.mergeEvent(logger, order.ReportID, raw)
		}
	}
	e.publishedSize.Store(int64(e.index.Len()))

	return e.flush(ctx, logger)
}

func (e *Engine) mergeEvent(logger *slog.Logger, reportID int64, raw reporting.Event) {
	kind, err := model.ParseEventKind(raw.Type)
	if err != nil {
		logger.Debug("event dropped", "report", reportID, "error", err)
		return
	}
	ev := model.ActivityEvent{
		Kind:        kind,
		Timestamp:   raw.EventTime.Time,
		Workstation: raw.Workstation,
		Note:        raw.AdditionalInfo,
		PersonID:    raw.Account.ID,
		PersonName:  raw.Account.Name,
	}
	if !e.index.Merge(ev) {
		return
	}
	logger.Info("activity",
		"kind", ev.Kind,
		"at", ev.Timestamp,
		"person", ev.PersonName,
		"person_id", ev.PersonID,
		"workstation", ev.Workstation,
		"note", ev.Note,
	)
}

// flush writes every dirty person in one batch and clears the dirty set.
func (e *Engine) flush(ctx context.Context, logger *slog.Logger) (int, error) {
	dirty := e.index.Dirty()
	if len(dirty) == 0 {
		return 0, nil
	}
	rows, err := e.store.UpsertEvents(ctx, dirty)
	if err != nil {
		return 0, wrap("upsert events", err)
	}
	e.index.ClearDirty()
	logger.Debug("flushed activity", "people", len(dirty), "rows", rows)
	return len(dirty), nil
}
