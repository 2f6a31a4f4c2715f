// Package metrics exposes Prometheus counters for calendar rendering and rescheduling.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	CalendarRenders   *prometheus.CounterVec
	SkippedEntries    prometheus.Counter
	Reschedules       *prometheus.CounterVec
	StaleDrops        prometheus.Counter
	RateLimited       prometheus.Counter
	DragSessionsSwept prometheus.Counter
}

// New registers every collector on a private registry so tests can build as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		CalendarRenders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandhub_calendar_renders_total",
			Help: "Calendar windows rendered, by view mode.",
		}, []string{"view"}),
		SkippedEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "brandhub_calendar_skipped_entries_total",
			Help: "Schedule entries left out of a render because they had no usable timestamp.",
		}),
		Reschedules: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brandhub_reschedules_total",
			Help: "Reschedule attempts, by source (drop, edit) and outcome.",
		}, []string{"source", "outcome"}),
		StaleDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "brandhub_stale_drops_total",
			Help: "Drops that resolved to a post or schedule entry that no longer exists.",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "brandhub_rate_limited_requests_total",
			Help: "Requests rejected by the per-team rate limiter.",
		}),
		DragSessionsSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "brandhub_drag_sessions_swept_total",
			Help: "Expired drag sessions removed by the sweeper.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
