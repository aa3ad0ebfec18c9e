package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()
	once     sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	authzDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denied_total",
			Help: "Requests rejected by the auth wrapper.",
		},
		[]string{"reason"},
	)
	rbacCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_cache_lookups_total",
			Help: "Permission cache lookups by result.",
		},
		[]string{"result"},
	)
	rbacInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbac_cache_invalidations_total",
			Help: "Permission cache invalidations by origin.",
		},
		[]string{"origin"},
	)
)

// Init registers metrics with the registry once.
func Init() {
	once.Do(func() {
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
			httpRequests,
			httpLatency,
			authzDenied,
			rbacCache,
			rbacInvalidations,
		)
	})
}

// Handler exposes the Prometheus metrics endpoint handler.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func ObserveRequest(method, route string, status int, d time.Duration) {
	Init()
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func IncAuthzDenied(reason string) {
	Init()
	authzDenied.WithLabelValues(reason).Inc()
}

// IncRBACCache records a cache lookup; result is "hit" or "miss".
func IncRBACCache(result string) {
	Init()
	rbacCache.WithLabelValues(result).Inc()
}

// IncRBACInvalidation records an invalidation; origin is "local" or "remote".
func IncRBACInvalidation(origin string) {
	Init()
	rbacInvalidations.WithLabelValues(origin).Inc()
}
