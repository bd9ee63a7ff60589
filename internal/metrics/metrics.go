// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "visearch"

// Metrics holds the server's collectors on a private registry, so several
// servers can live in one process (as tests do).
type Metrics struct {
	Registry *prometheus.Registry

	analyzeTotal    *prometheus.CounterVec
	analyzeTokens   *prometheus.CounterVec
	analyzeDuration *prometheus.HistogramVec
	documents       *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	searchTotal     *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	indexes         prometheus.Gauge
	plugins         prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		analyzeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyze_requests_total",
				Help:      "Analyze calls by analyzer and outcome.",
			},
			[]string{"analyzer", "outcome"},
		),
		analyzeTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyze_tokens_total",
				Help:      "Tokens produced by analyze calls.",
			},
			[]string{"analyzer"},
		),
		analyzeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analyze_duration_seconds",
				Help:      "Analyze call latency.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"analyzer"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_total",
				Help:      "Document write operations by index and operation.",
			},
			[]string{"index", "op"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_total",
				Help:      "Index refreshes.",
			},
			[]string{"index"},
		),
		searchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Search requests by index and outcome.",
			},
			[]string{"index", "outcome"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Search latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"index"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method and status.",
			},
			[]string{"method", "status"},
		),
		indexes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexes",
			Help:      "Open indexes.",
		}),
		plugins: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plugins",
			Help:      "Installed plugins.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.analyzeTotal, m.analyzeTokens, m.analyzeDuration,
		m.documents, m.refreshes,
		m.searchTotal, m.searchDuration,
		m.requests, m.indexes, m.plugins,
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveAnalyze records one analyze call.
func (m *Metrics) ObserveAnalyze(analyzer string, tokens int, took time.Duration, err error) {
	m.analyzeTotal.WithLabelValues(analyzer, outcome(err)).Inc()
	if err != nil {
		return
	}
	m.analyzeTokens.WithLabelValues(analyzer).Add(float64(tokens))
	m.analyzeDuration.WithLabelValues(analyzer).Observe(took.Seconds())
}

// ObserveDocument records a document write; op is index or delete.
func (m *Metrics) ObserveDocument(index, op string) {
	m.documents.WithLabelValues(index, op).Inc()
}

// ObserveRefresh records an index refresh.
func (m *Metrics) ObserveRefresh(index string) {
	m.refreshes.WithLabelValues(index).Inc()
}

// ObserveSearch records one search request.
func (m *Metrics) ObserveSearch(index string, took time.Duration, err error) {
	m.searchTotal.WithLabelValues(index, outcome(err)).Inc()
	if err == nil {
		m.searchDuration.WithLabelValues(index).Observe(took.Seconds())
	}
}

// ObserveRequest records a completed HTTP request.
func (m *Metrics) ObserveRequest(method, status string) {
	m.requests.WithLabelValues(method, status).Inc()
}

// SetIndexes sets the open index gauge.
func (m *Metrics) SetIndexes(n int) {
	m.indexes.Set(float64(n))
}

// SetPlugins sets the installed plugin gauge.
func (m *Metrics) SetPlugins(n int) {
	m.plugins.Set(float64(n))
}
