package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the application's Prometheus collectors.
type Registry struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitHits       prometheus.Counter
	SuspiciousRequests  prometheus.Counter
	TransactionsCreated prometheus.Counter
	RecurringProcessed  prometheus.Counter
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
}

// New creates a registry with all application collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_http_requests_total",
			Help: "Total HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tally_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		SuspiciousRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_suspicious_requests_total",
			Help: "Requests flagged by security detection.",
		}),
		TransactionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_transactions_created_total",
			Help: "Transactions persisted through the API.",
		}),
		RecurringProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_recurring_transactions_total",
			Help: "Transactions generated from recurring definitions.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_dashboard_cache_hits_total",
			Help: "Dashboard responses served from cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_dashboard_cache_misses_total",
			Help: "Dashboard responses computed from storage.",
		}),
	}
}

// Handler returns an HTTP handler exposing the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
