package cluster

import "github.com/prometheus/client_golang/prometheus"

var (
	connectionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka_gateway",
			Subsystem: "pool",
			Name:      "connections_created_total",
			Help:      "Admin clients created per cluster.",
		}, []string{"cluster"})
	connectionsInvalidated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka_gateway",
			Subsystem: "pool",
			Name:      "connections_invalidated_total",
			Help:      "Admin clients evicted from the pool per cluster.",
		}, []string{"cluster"})
)

// InitMetrics registers all metrics in this package.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(connectionsCreated)
	registry.MustRegister(connectionsInvalidated)
}
