package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revsense_ticks_total",
			Help: "Completed analytics ticks",
		},
	)

	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "revsense_tick_duration_seconds",
			Help:    "Analytics tick duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	readingsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revsense_readings_processed_total",
			Help: "Readings drained into the analytics engine",
		},
	)

	activeAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "revsense_active_alerts",
			Help: "Alerts currently retained in history",
		},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal, tickDuration, readingsProcessed, activeAlerts)
}
