package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveltales_http_requests_total",
			Help: "HTTP requests by route template, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traveltales_http_request_duration_seconds",
			Help:    "HTTP request latency by route template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// RouteMutations counts route aggregate changes: create, update, delete,
	// like, comment_add, comment_delete.
	RouteMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveltales_route_mutations_total",
			Help: "Route aggregate mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	FollowMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveltales_follow_mutations_total",
			Help: "Follow graph edge mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	ReconcileRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traveltales_follow_reconcile_repairs_total",
			Help: "User documents rewritten by follow graph reconciliation",
		},
	)

	// GeocodeLookups results: hit (cache), ok, empty, error, rejected (breaker open).
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveltales_geocode_lookups_total",
			Help: "Reverse geocoding lookups by result",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "traveltales_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// Result labels an operation outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
