// Package metrics exposes Prometheus instruments for the accounting engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private Prometheus registry. A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	operations    *prometheus.HistogramVec
	materialized  prometheus.Counter
	rollovers     prometheus.Counter
	contributions *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	published     *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spendwise",
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		materialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "recurring_materialized_total",
			Help:      "Expenses created from recurring transactions.",
		}),
		rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "budget_rollovers_total",
			Help:      "Budgets that received unused amount at month close.",
		}),
		contributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "goal_contributions_total",
			Help:      "Savings goal contributions by source.",
		}, []string{"source"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spendwise",
			Name:      "events_published_total",
			Help:      "Ledger events handed to the broker.",
		}, []string{"type", "result"}),
	}
	r.reg.MustRegister(
		r.operations, r.materialized, r.rollovers, r.contributions, r.httpRequests, r.published,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveOperation records the duration since start under op.
func (r *Registry) ObserveOperation(op string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.operations.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (r *Registry) AddMaterialized(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.materialized.Add(float64(n))
}

func (r *Registry) AddRollovers(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rollovers.Add(float64(n))
}

func (r *Registry) IncContribution(source string) {
	if r == nil {
		return
	}
	r.contributions.WithLabelValues(source).Inc()
}

func (r *Registry) IncHTTPRequest(method string, code int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func (r *Registry) IncPublished(eventType string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.published.WithLabelValues(eventType, result).Inc()
}
