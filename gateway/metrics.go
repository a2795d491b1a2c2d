package gateway

import "github.com/prometheus/client_golang/prometheus"

// classOK labels successful operations.
const classOK = "ok"

var (
	// OperationCount counts dispatched operations by outcome class.
	OperationCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka_gateway",
			Subsystem: "dispatcher",
			Name:      "operation_total",
			Help:      "Dispatched operations by outcome class.",
		}, []string{"op", "cluster", "class"})
	// OperationDuration records the end to end duration of operations.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kafka_gateway",
			Subsystem: "dispatcher",
			Name:      "operation_duration_seconds",
			Help:      "Operation duration(s), including throttling and connection setup.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms~41s
		}, []string{"op"})
	// InFlight tracks operations awaiting a broker response.
	InFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kafka_gateway",
			Subsystem: "dispatcher",
			Name:      "in_flight",
			Help:      "Operations awaiting a broker response.",
		}, []string{"cluster"})
)

// InitMetrics registers all metrics in this package.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(OperationCount)
	registry.MustRegister(OperationDuration)
	registry.MustRegister(InFlight)
}
