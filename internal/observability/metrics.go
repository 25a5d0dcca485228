// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Provider metrics
	ProviderFetches       *prometheus.CounterVec
	ProviderFetchDuration *prometheus.HistogramVec
	ProviderRecords       prometheus.Histogram

	// Chart metrics
	ChartsRendered    prometheus.Counter
	ChartRenderErrors prometheus.Counter
}

// NewMetrics creates a Metrics instance backed by its own registry, so several
// instances can coexist (e.g. in tests).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "covid_trends"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ProviderFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetches_total",
			Help:      "Total number of upstream fetches by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		ProviderRecords: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "records_fetched",
			Help:      "Number of daily records returned per successful fetch",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),

		ChartsRendered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "rendered_total",
			Help:      "Total number of charts rendered",
		}),
		ChartRenderErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chart",
			Name:      "render_errors_total",
			Help:      "Total number of chart render failures",
		}),
	}
}

// ObserveFetch records the outcome of one upstream fetch.
func (m *Metrics) ObserveFetch(provider, outcome string, elapsed time.Duration, records int) {
	if m == nil {
		return
	}
	m.ProviderFetches.WithLabelValues(provider, outcome).Inc()
	m.ProviderFetchDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if outcome == "ok" {
		m.ProviderRecords.Observe(float64(records))
	}
}

// RecordChart records a chart render attempt.
func (m *Metrics) RecordChart(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ChartRenderErrors.Inc()
		return
	}
	m.ChartsRendered.Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
