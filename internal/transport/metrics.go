package transport

import "github.com/prometheus/client_golang/prometheus"

// Prometheus transport metrics.
var (
	readingsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsense_transport_readings_total",
			Help: "Total readings delivered by each transport.",
		},
		[]string{"transport"},
	)
	reconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsense_transport_reconnects_total",
			Help: "Total reconnection attempts per transport.",
		},
		[]string{"transport"},
	)
	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revsense_transport_errors_total",
			Help: "Total transport-level request errors.",
		},
		[]string{"transport"},
	)
)

func init() {
	prometheus.MustRegister(readingsDelivered)
	prometheus.MustRegister(reconnectsTotal)
	prometheus.MustRegister(requestErrors)
}
