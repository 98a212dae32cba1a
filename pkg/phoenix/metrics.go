// Prometheus instruments for Phoenix requests
package phoenix

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure reasons recorded on the failures counter.
const (
	reasonTransport = "transport"
	reasonGraphQL   = "graphql"
	reasonNotFound  = "not_found"
	reasonCanceled  = "canceled"
)

type clientMetrics struct {
	latency   *prometheus.HistogramVec
	failures  *prometheus.CounterVec
	cacheHits prometheus.Counter
}

// newClientMetrics creates the client instruments. A nil registerer leaves
// them unregistered.
func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	factory := promauto.With(reg)
	return &clientMetrics{
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tracelens",
			Subsystem: "phoenix",
			Name:      "request_duration_seconds",
			Help:      "Phoenix GraphQL request latency in seconds",
		}, []string{"operation"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracelens",
			Subsystem: "phoenix",
			Name:      "request_failures_total",
			Help:      "Total failed Phoenix GraphQL requests",
		}, []string{"operation", "reason"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tracelens",
			Subsystem: "phoenix",
			Name:      "cache_hits_total",
			Help:      "Trace lookups served from the in-memory cache",
		}),
	}
}
