package ui

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the report server collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ReportsServed   *prometheus.CounterVec
}

// NewMetrics creates and registers the server collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uplift_http_requests_total",
			Help: "HTTP requests served by the report server",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uplift_http_request_duration_seconds",
			Help:    "Latency of report server requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ReportsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uplift_reports_served_total",
			Help: "Stored run reports returned, by format",
		}, []string{"format"}),
	}
	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ReportsServed,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
