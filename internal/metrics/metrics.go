// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	OrdersCreated     prometheus.Counter
	WorkOrdersCreated prometheus.Counter
	StatusChanges     *prometheus.CounterVec // labels: record, status
	TxRollbacks       *prometheus.CounterVec // labels: operation
	RequestDuration   *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders committed.",
		}),
		WorkOrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "work_orders_created_total",
			Help: "Work orders committed.",
		}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "status_changes_total",
			Help: "Committed status updates by record type and new status.",
		}, []string{"record", "status"}),
		TxRollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "transaction_rollbacks_total",
			Help: "Write transactions rolled back after a datastore failure.",
		}, []string{"operation"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSubscribers exports count as the live subscriber gauge for topic.
func (m *Metrics) ObserveSubscribers(topic string, count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "ws_subscribers",
		Help:        "WebSocket clients currently subscribed, by topic.",
		ConstLabels: prometheus.Labels{"topic": topic},
	}, func() float64 { return float64(count()) }))
}

// Middleware observes request latency labelled by the chi route pattern,
// so path ids do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
