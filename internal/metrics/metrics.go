// Package metrics exposes Prometheus counters for the HTTP API, the
// assistant, model calls, reminders and caches.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chitieu/internal/cache"
)

const namespace = "chitieu"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	messages     *prometheus.CounterVec
	expenses     *prometheus.CounterVec
	modelCalls   *prometheus.CounterVec
	modelLatency *prometheus.HistogramVec
	reminders    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, so that several
// instances can coexist in tests.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat messages handled by detected intent.",
		}, []string{"intent"}),
		expenses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_recorded_total",
			Help:      "Expenses stored by category and currency.",
		}, []string{"category", "currency"}),
		modelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Learned-model requests by provider, operation and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		modelLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Learned-model request latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		}, []string{"provider", "operation"}),
		reminders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Daily reminders by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func (m *Metrics) MessageHandled(intent string) {
	m.messages.WithLabelValues(intent).Inc()
}

func (m *Metrics) ExpenseRecorded(category, currency string) {
	m.expenses.WithLabelValues(category, currency).Inc()
}

func (m *Metrics) ObserveModelCall(provider, operation string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.modelCalls.WithLabelValues(provider, operation, outcome).Inc()
	m.modelLatency.WithLabelValues(provider, operation).Observe(took.Seconds())
}

func (m *Metrics) RemindersSent(sent, failed int) {
	m.reminders.WithLabelValues("sent").Add(float64(sent))
	m.reminders.WithLabelValues("failed").Add(float64(failed))
}

// StatsSource is anything reporting cache effectiveness.
type StatsSource interface {
	Stats() cache.Stats
}

// RegisterCache exports size, hits and misses of a cache under name.
func (m *Metrics) RegisterCache(name string, c StatsSource) {
	labels := prometheus.Labels{"cache": name}
	f := promauto.With(m.registry)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "cache_entries",
		Help:        "Entries currently held by the cache.",
		ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Size) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "cache_hits_total",
		Help:        "Cache lookups that found a live entry.",
		ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Hits) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "cache_misses_total",
		Help:        "Cache lookups that found nothing.",
		ConstLabels: labels,
	}, func() float64 { return float64(c.Stats().Misses) })
}
