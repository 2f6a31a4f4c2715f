package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PortNumber53/brandhub/internal/calendar"
	"github.com/PortNumber53/brandhub/internal/dragdrop"
	"github.com/PortNumber53/brandhub/internal/logging"
	"github.com/PortNumber53/brandhub/internal/metrics"
	"github.com/PortNumber53/brandhub/internal/platforms"
	"github.com/PortNumber53/brandhub/internal/store"
)

// CellCaps are the per-cell visible limits for each view.
type CellCaps struct {
	Month int
	Week  int
}

func (c CellCaps) For(mode calendar.ViewMode) int {
	if mode == calendar.Week {
		return c.Week
	}
	return c.Month
}

// Options wires a Handler. Zero values get in-memory or default implementations.
type Options struct {
	Repo       store.Repository
	Engine     calendar.Engine
	Caps       *CellCaps
	Aggregator *platforms.Aggregator
	Sessions   dragdrop.SessionStore
	DragTTL    time.Duration
	Metrics    *metrics.Metrics
	Logger     *logrus.Logger
	WSSecret   string
}

type Handler struct {
	repo     store.Repository
	engine   calendar.Engine
	caps     CellCaps
	agg      *platforms.Aggregator
	drag     *dragdrop.Coordinator
	metrics  *metrics.Metrics
	log      *logrus.Entry
	rt       *realtimeHub
	wsSecret string
	now      func() time.Time
}

func New(opts Options) *Handler {
	if opts.Repo == nil {
		opts.Repo = store.NewMemory()
	}
	if opts.Aggregator == nil {
		opts.Aggregator = platforms.NewAggregator(nil)
	}
	if opts.Sessions == nil {
		opts.Sessions = dragdrop.NewMemoryStore()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	caps := CellCaps{Month: calendar.MonthCellCap, Week: calendar.WeekCellCap}
	if opts.Caps != nil {
		caps = *opts.Caps
	}
	return &Handler{
		repo:     opts.Repo,
		engine:   opts.Engine,
		caps:     caps,
		agg:      opts.Aggregator,
		drag:     dragdrop.NewCoordinator(opts.Engine, opts.Repo, opts.Sessions, opts.DragTTL, logging.Component(opts.Logger, "dragdrop")),
		metrics:  opts.Metrics,
		log:      logging.Component(opts.Logger, "http"),
		rt:       newRealtimeHub(),
		wsSecret: strings.TrimSpace(opts.WSSecret),
		now:      time.Now,
	}
}

// Metrics exposes the collectors so middleware and workers can share them.
func (h *Handler) Metrics() *metrics.Metrics { return h.metrics }

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dragdrop.ErrStaleDrag):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrInvalidView),
		errors.Is(err, calendar.ErrMissingSchedule),
		errors.Is(err, platforms.ErrUnknownPlatform):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Server-side failures are logged and hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, status, "internal error")
	case http.StatusConflict:
		writeError(w, status, dragdrop.ErrStaleDrag.Error())
	default:
		writeError(w, status, err.Error())
	}
}

// viewerLocation loads the tz query parameter. Empty means no viewer zone.
func viewerLocation(r *http.Request) (*time.Location, error) {
	tz := strings.TrimSpace(r.URL.Query().Get("tz"))
	if tz == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.New("invalid tz")
	}
	return loc, nil
}

func (h *Handler) engineFor(loc *time.Location) calendar.Engine {
	e := h.engine
	if loc != nil {
		e.Location = loc
	}
	return e
}
