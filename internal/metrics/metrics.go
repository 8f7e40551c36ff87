package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters and histograms the billing server exports.
// All methods are safe on a nil receiver so callers may run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	stockAdjustments *prometheus.CounterVec
	billsFinalized   prometheus.Counter
	billAmount       prometheus.Histogram
	logins           *prometheus.CounterVec
}

// New builds a Metrics instance backed by its own registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		stockAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "inventory", Name: "adjustments_total",
			Help: "Per-item stock decrements by outcome.",
		}, []string{"outcome"}),
		billsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "billing", Name: "bills_finalized_total",
			Help: "Bills whose stock adjustments were accepted.",
		}),
		billAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "billing", Name: "bill_amount",
			Help:    "Grand total of finalized bills.",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth", Name: "logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.stockAdjustments,
		m.billsFinalized,
		m.billAmount,
		m.logins,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// StockAdjusted counts one per-item decrement; outcome is "ok" or a failure reason.
func (m *Metrics) StockAdjusted(outcome string) {
	if m == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BillFinalized(total float64) {
	if m == nil {
		return
	}
	m.billsFinalized.Inc()
	m.billAmount.Observe(total)
}

func (m *Metrics) Login(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}
