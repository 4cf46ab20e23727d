package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orbitaldb",
		Subsystem: "server",
		Name:      "websocket_clients",
		Help:      "Number of connected connection-event WebSocket clients.",
	})

	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orbitaldb",
		Subsystem: "server",
		Name:      "queries_total",
		Help:      "Total queries run through the API, by result.",
	}, []string{"result"})

	queryDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orbitaldb",
		Subsystem: "server",
		Name:      "query_duration_seconds",
		Help:      "Query execution time in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)
