// Package metrics exposes the service counters in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry so tests can build independent instances.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RelationHints   *prometheus.CounterVec
	DroppedFields   *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "display_api_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "display_api_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RelationHints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "display_api_relation_hints_total",
			Help: "Eager-loading hints added by the display filter.",
		}, []string{"model", "kind"}),
		DroppedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "display_api_dropped_fields_total",
			Help: "Requested display names that were not in the whitelist.",
		}, []string{"model"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "display_api_cache_lookups_total",
			Help: "Response cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.RequestDuration,
		m.RelationHints,
		m.DroppedFields,
		m.CacheLookups,
	)
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, code int, seconds float64) {
	m.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// ObserveHints records the relation hints of one list request.
func (m *Metrics) ObserveHints(model string, direct, reverse int) {
	if direct > 0 {
		m.RelationHints.WithLabelValues(model, "select_related").Add(float64(direct))
	}
	if reverse > 0 {
		m.RelationHints.WithLabelValues(model, "prefetch_related").Add(float64(reverse))
	}
}

func (m *Metrics) ObserveDropped(model string, n int) {
	if n > 0 {
		m.DroppedFields.WithLabelValues(model).Add(float64(n))
	}
}

func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
