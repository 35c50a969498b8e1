// Package metrics provides the Prometheus collectors of the player.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "player"

// Metrics holds the player collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	itemsShown    *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	commands      *prometheus.CounterVec
	contentItems  prometheus.Gauge
	playbackState *prometheus.GaugeVec
	shellClients  prometheus.Gauge
	widgetsActive prometheus.Gauge
	nudges        prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cms_fetch_total",
			Help:      "CMS requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cms_fetch_duration_seconds",
			Help:      "CMS request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		itemsShown: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_shown_total",
			Help:      "Items shown by content type and cause.",
		}, []string{"type", "cause"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transitions started by effect.",
		}, []string{"effect"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_commands_total",
			Help:      "Remote commands dispatched by kind.",
		}, []string{"kind"}),
		contentItems: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_items",
			Help:      "Items in the current content list.",
		}),
		playbackState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_state",
			Help:      "1 for the current playback state.",
		}, []string{"state"}),
		shellClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shell_clients",
			Help:      "Connected kiosk pages.",
		}),
		widgetsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "widgets_active",
			Help:      "Running overlay widgets.",
		}),
		nudges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nudges_total",
			Help:      "Push hints received.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Shell HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Shell HTTP latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch records one CMS request.
func (m *Metrics) ObserveFetch(endpoint string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetchTotal.WithLabelValues(endpoint, result).Inc()
	m.fetchDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveEmpty records a successful fetch that returned no items.
func (m *Metrics) ObserveEmpty(endpoint string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(endpoint, "empty").Inc()
	m.fetchDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ItemShown records a displayed item.
func (m *Metrics) ItemShown(contentType, cause string) {
	if m == nil {
		return
	}
	m.itemsShown.WithLabelValues(contentType, cause).Inc()
}

// TransitionStarted records a transition.
func (m *Metrics) TransitionStarted(effect string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(effect).Inc()
}

// CommandDispatched records a remote command.
func (m *Metrics) CommandDispatched(kind string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
}

// SetContentItems sets the size of the content list.
func (m *Metrics) SetContentItems(n int) {
	if m == nil {
		return
	}
	m.contentItems.Set(float64(n))
}

// SetPlaybackState marks state as the current one among all.
func (m *Metrics) SetPlaybackState(state string, all ...string) {
	if m == nil {
		return
	}
	for _, s := range all {
		m.playbackState.WithLabelValues(s).Set(0)
	}
	m.playbackState.WithLabelValues(state).Set(1)
}

// SetShellClients sets the number of connected pages.
func (m *Metrics) SetShellClients(n int) {
	if m == nil {
		return
	}
	m.shellClients.Set(float64(n))
}

// SetWidgetsActive sets the number of running widgets.
func (m *Metrics) SetWidgetsActive(n int) {
	if m == nil {
		return
	}
	m.widgetsActive.Set(float64(n))
}

// NudgeReceived records a push hint.
func (m *Metrics) NudgeReceived() {
	if m == nil {
		return
	}
	m.nudges.Inc()
}
