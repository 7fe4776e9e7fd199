// Package metrics exposes prometheus collectors for the HTTP layer, logins and storage.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goldenbrick/markermap/internal/apperr"
	"github.com/goldenbrick/markermap/internal/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers do not collide.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequests counts requests by method, route and status.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration observes request latency by method and route.
	HTTPDuration *prometheus.HistogramVec
	// LoginAttempts counts logins by outcome code ("ok" on success).
	LoginAttempts *prometheus.CounterVec
	// StorageDegraded is 1 while the substitute store serves requests.
	StorageDegraded prometheus.Gauge
	// StorageFallbacks counts switches to the substitute store.
	StorageFallbacks prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markermap_http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "markermap_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markermap_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		StorageDegraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "markermap_storage_degraded",
			Help: "1 when markers are served from the local substitute store",
		}),
		StorageFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "markermap_storage_fallback_total",
			Help: "Number of switches from the database to the substitute store",
		}),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// OnDegrade records the switch to the substitute store.
func (m *Metrics) OnDegrade(error) {
	m.StorageDegraded.Set(1)
	m.StorageFallbacks.Inc()
}

// OnLogin implements auth.Hook.
func (m *Metrics) OnLogin(_ context.Context, result auth.LoginResult) {
	outcome := "ok"
	if !result.Success {
		outcome = string(apperr.CodeInternal)
		if result.Err != nil {
			outcome = string(apperr.From(result.Err).Code)
		}
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
