// Package metric exposes the panel's Prometheus metrics.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cotpanel/cotpanel/internal/unit"
)

const namespace = "cotpanel"

// Metrics contains all panel metrics
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	UnitActions    *prometheus.CounterVec
	UnitStatus     prometheus.Gauge
	ConfigSaves    *prometheus.CounterVec
	FollowSessions prometheus.Gauge
	WSClients      prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		UnitActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "unit",
				Name:      "actions_total",
				Help:      "Total number of unit control actions",
			},
			[]string{"action", "result"},
		),

		UnitStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "unit",
				Name:      "status",
				Help:      "Managed unit status (0=unknown, 1=stopped, 2=running, 3=failed)",
			},
		),

		ConfigSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "config",
				Name:      "saves_total",
				Help:      "Total number of configuration save attempts",
			},
			[]string{"result"},
		),

		FollowSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "journal",
				Name:      "follow_sessions",
				Help:      "Number of active journal follow sessions",
			},
		),

		WSClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "websocket",
				Name:      "clients",
				Help:      "Number of connected status WebSocket clients",
			},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.UnitActions,
		m.UnitStatus,
		m.ConfigSaves,
		m.FollowSessions,
		m.WSClients,
	)

	// Go runtime metrics
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape endpoint handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest counts one request and its duration
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordUnitAction counts one control action and its result
func (m *Metrics) RecordUnitAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.UnitActions.WithLabelValues(action, result).Inc()
}

// RecordUnitStatus maps the normalized status onto the status gauge
func (m *Metrics) RecordUnitStatus(status string) {
	var value float64
	switch status {
	case unit.StatusStopped:
		value = 1
	case unit.StatusRunning:
		value = 2
	case unit.StatusFailed:
		value = 3
	}
	m.UnitStatus.Set(value)
}

// RecordConfigSave counts one save attempt by result
func (m *Metrics) RecordConfigSave(result string) {
	m.ConfigSaves.WithLabelValues(result).Inc()
}

// SetFollowSessions updates the follow session gauge
func (m *Metrics) SetFollowSessions(n int) {
	m.FollowSessions.Set(float64(n))
}

// SetWSClients updates the WebSocket client gauge
func (m *Metrics) SetWSClients(n int) {
	m.WSClients.Set(float64(n))
}
